package event

import "errors"

var (
	// ErrNilCallback is the panic value (wrapped) when a binding gets a nil func.
	ErrNilCallback = errors.New("nil callback")
	// ErrNilTask is the panic value (wrapped) when a binding gets a nil task.
	ErrNilTask = errors.New("nil task")
	// ErrNilRegistrar is the panic value (wrapped) when New gets a nil registrar.
	ErrNilRegistrar = errors.New("nil registrar")
	// ErrNegativeWindow is returned for a debounce window below zero.
	ErrNegativeWindow = errors.New("negative debounce window")
	// ErrUnknownDebounceMode is returned for a mode outside the defined set.
	ErrUnknownDebounceMode = errors.New("unknown debounce mode")
)
