package readings

import "errors"

var (
	// ErrValidation is returned when an inbound payload is malformed or
	// misses the required numeric value.
	ErrValidation = errors.New("readings: invalid payload")
	// ErrPersistence is returned when the store cannot commit a reading.
	ErrPersistence = errors.New("readings: persistence failure")
)
