// Package server provides HTTP routing and middleware, and serves a feed paginator as a small local JSON API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally; routes are "METHOD /path" patterns,
// so mismatched methods get a 405 from the mux.
//
// # Feed Handler
//
// [FeedHandler] exposes one user's [feed.Paginator]: the current snapshot, loading the next page,
// resetting, switching feed types and deleting recommendations or pins. Responses are JSON encoded
// [FeedResponse] values; failures carry an "error" field and a status derived from the error taxonomy
// in the shared package (400 for invalid input, 502 for upstream failures).
//
// [Serve] runs the router until its context is cancelled and then shuts down gracefully.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
