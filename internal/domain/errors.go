package domain

import "errors"

var (
	// ErrBindHostExhausted is returned when allocation gives up after the
	// bounded number of random draws. Callers must report it distinctly
	// from other provisioning failures.
	ErrBindHostExhausted = errors.New("bind host range exhausted")

	// ErrUserExists is returned when provisioning is asked to create an
	// account name that is already recorded.
	ErrUserExists = errors.New("BNC account already exists")
)
