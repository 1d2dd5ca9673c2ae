// Package services implements the outbound HTTP clients of the transfer pipeline.
//
// # Source fetchers
//
// [SourceFetcher] is the single capability both image sources implement:
// list lightweight image descriptors, then fetch one image's bytes on demand.
// The two variants are selected by an explicit source tag, never by runtime
// type inspection:
//
//   - [DriveService]: lists image files in the user's Google Drive with an
//     OAuth bearer token; the same token is required to dereference each
//     file's content URL (deferred fetch, nothing is pre-downloaded).
//   - [AlbumService]: scrapes a publicly shared Google Photos album page
//     without credentials. The album URL's host is validated against a fixed
//     allowlist before any network call, so arbitrary user-supplied hosts are
//     never fetched.
//
// # Commons uploader
//
// [CommonsService] performs the two-step MediaWiki write sequence: fetch a
// CSRF token with the bearer token, then POST the multipart upload. Neither
// step is retried automatically; every attempt yields exactly one
// [models.UploadResult].
package services
