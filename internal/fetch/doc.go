// Package fetch layers a cache-aside policy over the Codecov client for branch
// detail queries.
//
// A query that names a commit id is looked up under
// [service, owner, repo, branch, commit]. A valid hit is returned without any
// network call. On a miss (absent entry, unreadable entry, or bytes that no
// longer decode into a complete BranchDetail) the branch is fetched live and,
// when the API reports success, written back under the head commit id taken
// from the response. Queries without a commit id never touch the cache.
//
// Failure policy:
//   - cache reads and decodes never fail a query, they only cause a live fetch;
//   - cache writes are best effort, reported through a cache.FailureReporter;
//   - remote failures are returned to the caller unchanged.
package fetch
