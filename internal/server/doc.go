// Package server runs the short-lived local HTTP server used by `radiosync auth login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [Middleware] added first runs outermost.
// [BasicRouter] uses [http.ServeMux] method patterns internally.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback: it validates the state parameter, exchanges the code
// for a token and sends the result through a channel. Only the first callback is processed.
//
// # Callback Server
//
// [CallbackServer] binds the configured host and port, serves the router until a result arrives or the wait times
// out, then shuts down.
package server
