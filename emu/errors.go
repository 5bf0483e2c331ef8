package emu

import "errors"

var (
	// ErrUnsupportedInstruction is reported when no engine claims a word.
	ErrUnsupportedInstruction = errors.New("unsupported instruction")

	// ErrMaxInstructions is reported when the instruction limit is hit.
	ErrMaxInstructions = errors.New("max instructions reached")

	// ErrImageOutOfRange is reported when a program image does not fit in
	// memory.
	ErrImageOutOfRange = errors.New("image outside memory")
)
