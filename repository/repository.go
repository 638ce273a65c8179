// Package repository holds the storage access contracts plus their MongoDB
// implementations and in-memory equivalents used by the test suite.
package repository

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)
