package algorithms

import "errors"

var (
	// ErrInvalidInput covers sizes and marked states outside the register.
	ErrInvalidInput = errors.New("algorithms: invalid input")

	// ErrTooSmall is returned for N < 4, which has no non-trivial factors.
	ErrTooSmall = errors.New("algorithms: number too small to factor")

	ErrPrime = errors.New("algorithms: number is prime")

	// ErrNoFactor means every attempt produced an unusable period.
	ErrNoFactor = errors.New("algorithms: no factor found")

	ErrEmptyWord = errors.New("algorithms: empty word")
)
