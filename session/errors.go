package session

import "go.trai.ch/zerr"

var (
	// ErrMissingShaderRoot is returned when the config names no shader tree.
	ErrMissingShaderRoot = zerr.New("shader root is required")

	// ErrMissingModulePath is returned when the config names no module artifact.
	ErrMissingModulePath = zerr.New("module path is required")

	// ErrNoSlots is returned when the config defines no shader slots.
	ErrNoSlots = zerr.New("at least one shader slot is required")
)
