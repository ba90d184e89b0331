// Package storage provides S3-compatible object storage for uploaded
// agreement forms and video drafts. Uploads return a storage URL that is
// persisted on the submission record.
package storage
