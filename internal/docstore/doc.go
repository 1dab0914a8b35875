// Package docstore defines the remote document store the application talks
// to: plain JSON documents addressed by collection and key, written with
// shallow top-level merges and observed through live subscriptions.
//
// Backends live in subpackages:
//
//	memory  in-process, for tests and single-process use
//	sqlite  local file, polling subscriptions
//	redis   one hash per document, pub/sub notifications
//	mongo   one BSON document per key, change streams
package docstore
