// Package bitbucket provides a minimal Bitbucket Cloud API client for repolist.
// It lists the repositories of a workspace filtered by project key, following
// the API-supplied pagination links until the listing is exhausted.
//
// The package includes:
// - Client for authenticated, paginated repository listings
// - Error taxonomy classifying HTTP and transport failures
// - Retry helpers with bounded exponential backoff for idempotent requests
package bitbucket
