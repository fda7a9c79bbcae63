package gim

import "fmt"

// ParseError is returned when a geometry image cannot be loaded. No partial image is returned with it.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse geometry image %q: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExportError is returned when a geometry image cannot be written. The image itself is left untouched.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("cannot export geometry image to %q: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
