// Package codecov is a small client for the Codecov v2 REST API. It covers the
// read endpoints the cache needs (branch detail, branch and commit listings,
// repository listing with pagination) and reports HTTP-level failures as
// *APIError. Transient failures are retried with exponential backoff.
//
// The client performs no caching itself; see package fetch for the cache-aside
// layer built on top of it.
package codecov
