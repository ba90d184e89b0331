package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  Config{Bucket: "b", AccessKey: "a", SecretKey: "s"},
		},
		{
			name:    "missing bucket",
			cfg:     Config{AccessKey: "a", SecretKey: "s"},
			wantErr: true,
		},
		{
			name:    "missing access key",
			cfg:     Config{Bucket: "b", SecretKey: "s"},
			wantErr: true,
		},
		{
			name:    "missing secret key",
			cfg:     Config{Bucket: "b", AccessKey: "a"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestS3Storage_BuildKey(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)

	key := s.buildKey("agreements", "contract.pdf", "application/pdf")
	assert.True(t, len(key) > len("agreements/"))
	assert.Contains(t, key, "agreements/")
	assert.Contains(t, key, ".pdf")

	key = s.buildKey("", "", "application/octet-stream")
	assert.NotContains(t, key, "/")
}

func TestS3Storage_PublicURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		key  string
		want string
	}{
		{
			name: "cdn prefix",
			cfg:  Config{Bucket: "b", AccessKey: "a", SecretKey: "s", PublicURL: "https://cdn.example.com/"},
			key:  "agreements/x.pdf",
			want: "https://cdn.example.com/agreements/x.pdf",
		},
		{
			name: "custom endpoint",
			cfg:  Config{Bucket: "b", AccessKey: "a", SecretKey: "s", Endpoint: "http://localhost:9000"},
			key:  "x.pdf",
			want: "http://localhost:9000/b/x.pdf",
		},
		{
			name: "aws default",
			cfg:  Config{Bucket: "b", AccessKey: "a", SecretKey: "s", Region: "eu-west-1"},
			key:  "x.pdf",
			want: "https://b.s3.eu-west-1.amazonaws.com/x.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.publicURL(tt.key))
		})
	}
}
