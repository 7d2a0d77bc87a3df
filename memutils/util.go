package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

// CheckPositive returns an error wrapping InvalidSizeError if number is below 1
func CheckPositive[T Number](number T, name string) error {
	if number < 1 {
		return cerrors.Wrapf(InvalidSizeError, "%s is %d", name, number)
	}
	return nil
}
