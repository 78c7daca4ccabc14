// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package glerr defines the errors reported by the
// resource packages.
// Errors are either sentinels, to be compared with
// errors.Is, or structs carrying diagnostic data, to be
// extracted with errors.As.
package glerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gviegas/glrt/driver"
)

// Sentinel errors.
var (
	ErrAlreadyPrepared   = errors.New("texture data already prepared")
	ErrNotPrepared       = errors.New("texture data not prepared")
	ErrProgramNotActive  = errors.New("shader program is not active")
	ErrIncompleteCubemap = errors.New("cubemap framebuffer ended before all six sides were bound")
	ErrDisposed          = errors.New("resource already disposed")
)

// ConfigurationError means that a request cannot be
// satisfied as given: a format is not allowed for an
// attachment, a capacity was exceeded or a capability
// is missing.
// It is always reported before any GPU call is made.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string { return e.Op + ": " + e.Reason }

// Configf creates a ConfigurationError.
func Configf(op, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// FormatError means that some encoded data is invalid
// or uses a format that is not known.
type FormatError struct {
	// Container names the data format (e.g., "ktx").
	Container string
	// Offset is the byte offset where the error was
	// detected, or -1.
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: invalid data at offset %d: %s", e.Container, e.Offset, e.Reason)
	}
	return e.Container + ": " + e.Reason
}

// CompletenessError means that a framebuffer could not
// be made complete, even after the fallback attempt.
type CompletenessError struct {
	Status driver.Enum
	Width  int
	Height int
	// Attachments lists the attachment formats that
	// were requested.
	Attachments []driver.Enum
	// Fallback indicates whether the packed depth/stencil
	// retry was made.
	Fallback bool
}

// Reason returns a description of e.Status.
func (e *CompletenessError) Reason() string {
	switch e.Status {
	case driver.FramebufferIncompleteAttachment:
		return "incomplete attachment"
	case driver.FramebufferIncompleteDimensions:
		return "incomplete dimensions"
	case driver.FramebufferIncompleteMissingAttachent:
		return "missing attachment"
	case driver.FramebufferUnsupported:
		return "unsupported combination of formats"
	}
	return fmt.Sprintf("unknown error %d", uint32(e.Status))
}

func (e *CompletenessError) Error() string {
	s := make([]string, len(e.Attachments))
	for i, a := range e.Attachments {
		s[i] = a.String()
	}
	msg := fmt.Sprintf("framebuffer: %s (%dx%d, attachments [%s])",
		e.Reason(), e.Width, e.Height, strings.Join(s, " "))
	if e.Fallback {
		msg += " after packed depth/stencil fallback"
	}
	return msg
}

// CompileError means that a shader stage failed to
// compile or that the program failed to link.
type CompileError struct {
	// Stage is the failed stage, or driver.None for link
	// errors.
	Stage driver.Enum
	// Log is the driver's info log, unmodified.
	Log string
}

func (e *CompileError) Error() string {
	switch e.Stage {
	case driver.VertexShader:
		return "shader: vertex shader failed to compile:\n" + e.Log
	case driver.FragmentShader:
		return "shader: fragment shader failed to compile:\n" + e.Log
	}
	return "shader: program failed to link:\n" + e.Log
}

// NotSupportedError means that a valid request uses a
// path that is not implemented (e.g., 3D texture upload).
type NotSupportedError struct {
	Feature string
}

func (e *NotSupportedError) Error() string { return "not supported: " + e.Feature }

// RebuildError reports the failure to recreate one
// managed resource after a context loss.
type RebuildError struct {
	Name string
	Err  error
}

func (e *RebuildError) Error() string { return "rebuild " + e.Name + ": " + e.Err.Error() }

func (e *RebuildError) Unwrap() error { return e.Err }
