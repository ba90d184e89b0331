package storage

import "time"

// Option configures Put operations.
type Option func(*putOptions)

type putOptions struct {
	key         string // explicit key (replaces auto-generated)
	prefix      string // path prefix (e.g. "agreements")
	contentType string // override detected content type
	filename    string // original filename, used for the key extension
	acl         ACL
}

// WithKey sets an explicit storage key, replacing the auto-generated one.
func WithKey(key string) Option {
	return func(o *putOptions) {
		o.key = key
	}
}

// WithPrefix sets a path prefix for the uploaded file.
// Example: WithPrefix("agreements") results in "agreements/{uuid}.{ext}".
func WithPrefix(prefix string) Option {
	return func(o *putOptions) {
		o.prefix = prefix
	}
}

// WithContentType overrides the auto-detected content type.
func WithContentType(ct string) Option {
	return func(o *putOptions) {
		o.contentType = ct
	}
}

// WithFilename supplies the original upload filename; its extension is
// carried into the generated storage key.
func WithFilename(name string) Option {
	return func(o *putOptions) {
		o.filename = name
	}
}

// WithACL overrides the default ACL for this upload.
func WithACL(acl ACL) Option {
	return func(o *putOptions) {
		o.acl = acl
	}
}

// URLOption configures URL generation.
type URLOption func(*urlOptions)

type urlOptions struct {
	expiry      time.Duration
	forcePublic bool
}

// DefaultURLExpiry is the default expiry for signed URLs.
const DefaultURLExpiry = 15 * time.Minute

// WithExpiry sets the expiry duration for signed URLs.
func WithExpiry(d time.Duration) URLOption {
	return func(o *urlOptions) {
		o.expiry = d
	}
}

// WithPublic forces a public URL regardless of the file's ACL.
// Only useful when the file was uploaded with ACLPublicRead.
func WithPublic() URLOption {
	return func(o *urlOptions) {
		o.forcePublic = true
	}
}
