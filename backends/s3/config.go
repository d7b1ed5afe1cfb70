// Package s3 provides a VFS backend for MinIO and other S3-compatible
// object stores.
//
// Object stores have no real directories. Directories are key prefixes;
// Mkdir writes an empty marker object ending in "/" so that empty
// directories survive, and a directory exists as long as its marker or any
// key below it does.
package s3

import (
	"github.com/minio/minio-go/v7"

	"github.com/Nazg-Gul/fm/errors"
)

// DefaultName is the qualifier used when Config.Name is empty.
const DefaultName = "s3"

const (
	defaultMultipartThreshold = 5 * 1024 * 1024
	defaultRenameConcurrency  = 10
)

// Config holds S3 backend configuration.
type Config struct {
	// Name is the backend qualifier in VFS paths (default "s3").
	Name string

	// Endpoint is the server address, e.g. "localhost:9000".
	Endpoint string

	// Bucket is the bucket name. Required.
	Bucket string

	AccessKey string
	SecretKey string

	// UseSSL enables HTTPS connections.
	UseSSL bool

	// Prefix is an optional prefix for all object keys.
	Prefix string

	// Client is an optional pre-configured client. If provided,
	// Endpoint, AccessKey and SecretKey are ignored.
	Client *minio.Client

	// MultipartThreshold is the size at which writes switch from a
	// buffered upload to a streamed one. Default: 5MB.
	MultipartThreshold int64

	// MaxRenameConcurrency limits concurrent copies during a directory
	// rename. Default: 10.
	MaxRenameConcurrency int
}

// validate checks that either Client or the connection fields are set.
func (c *Config) validate() error {
	if c.Bucket == "" {
		return errors.New(errors.CodeInvalidArgument, "bucket is required")
	}

	if c.Client != nil {
		return nil
	}

	if c.Endpoint == "" {
		return errors.New(errors.CodeInvalidArgument, "endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return errors.New(errors.CodeInvalidArgument, "access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return errors.New(errors.CodeInvalidArgument, "secret key is required when client is not provided")
	}

	return nil
}
