package gradestore

import "errors"

var (
	// ErrKeyNotFound record not found in the table
	ErrKeyNotFound = errors.New("key not found in table")

	// ErrKeyExists record already exists in table
	ErrKeyExists = errors.New("key already exists in table")

	// ErrBatchTooLarge batch exceeds the DynamoDB per-request item limit
	ErrBatchTooLarge = errors.New("batch exceeds the store limit")
)
