// Package repositories provides the persistence layer for server-side sessions.
//
// Session wizard state is stored as a JSON document in SQLite alongside its
// creation and expiry timestamps, so expiry can be enforced in SQL without
// deserializing rows. The browser only ever holds the opaque session ID.
package repositories
