package memutils

import "github.com/cockroachdb/errors"

// InvalidSizeError is the error returned from CheckPositive or other methods if a byte count is below 1
var InvalidSizeError error = errors.New("size must be at least one byte")
