// Package job wraps River to provide background job processing over the
// existing Postgres pool. Tasks register by name; payloads travel as JSON.
// The transcode pipeline and the scheduled session cleanup run through it.
package job
