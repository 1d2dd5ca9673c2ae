// Package models defines the data model for the image transfer web service.
//
// The central entity is [Session]: one browser session's progress through the
// upload wizard, from Google login through source selection, image selection,
// metadata entry, Wikimedia login, and the final upload batch. Sessions are
// persisted server-side (see internal/repositories) and expire a fixed one
// hour after creation.
//
// [ImageRef], [Metadata], and [UploadResult] are the per-image value types
// flowing through the pipeline. No entity outlives its Session.
package models
