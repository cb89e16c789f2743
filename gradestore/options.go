package gradestore

import (
	"github.com/aws/aws-sdk-go/aws"
)

// ReadOption assign various settings to the read options
type ReadOption func(opts *ReadOptions)

// ReadOptions contains optional request parameters
type ReadOptions struct {
	consistent bool
	limit      *int64
	startKey   *string
}

// NewReadOptions create read options, assign defaults then accept overrides
// enable the read consistent flag by default
func NewReadOptions(opts ...ReadOption) *ReadOptions {
	readOpts := &ReadOptions{
		consistent: true,
	}

	for _, opt := range opts {
		opt(readOpts)
	}

	return readOpts
}

// ReadConsistentDisable disable consistent reads
func ReadConsistentDisable() ReadOption {
	return func(opts *ReadOptions) {
		opts.consistent = false
	}
}

// ReadWithStartKey read a page of records with the exclusive start key
// provided, this will apply to scan operations only.
func ReadWithStartKey(key string) ReadOption {
	return func(opts *ReadOptions) {
		opts.startKey = aws.String(key)
	}
}

// ReadWithLimit read a page of records with the limit provided
// this will apply to scan operations only.
func ReadWithLimit(limit int64) ReadOption {
	return func(opts *ReadOptions) {
		opts.limit = aws.Int64(limit)
	}
}
