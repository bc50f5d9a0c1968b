// Package server hosts the Fiber HTTP gateway that exposes the cached Codecov
// API locally. It owns the middleware chain (panic recovery, request ids,
// JSON fallbacks) and the shared upstream http.Client; the concrete routes live
// in the routes subpackage so that main can wire them against explicit
// dependencies. Keep exports narrow and accept explicit dependencies.
package server
