package main

import (
	"errors"
	"fmt"

	"github.com/cwsl/ka9q_sstvtx/sstv"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitUnknown = 1000
	ExitConfig  = 2

	ExitImageLoad = 201

	ExitNoInputImage       = 111
	ExitInvalidProtocol    = 112
	ExitInvalidFormat      = 113
	ExitInvalidSampleRate  = 114
	ExitInvalidAspectMode  = 115
	ExitInvalidCallsign    = 116
	ExitInvalidWpm         = 117
	ExitInvalidTone        = 118
	ExitCwRequiresCallsign = 119

	ExitFileOpen     = 501
	ExitFileRead     = 502
	ExitFileWrite    = 503
	ExitFileNotFound = 504
)

// kindExitCodes maps encoder error kinds to exit codes
var kindExitCodes = map[sstv.Kind]int{
	sstv.KindNoInputImage:       ExitNoInputImage,
	sstv.KindInvalidProtocol:    ExitInvalidProtocol,
	sstv.KindInvalidFormat:      ExitInvalidFormat,
	sstv.KindInvalidSampleRate:  ExitInvalidSampleRate,
	sstv.KindInvalidAspectMode:  ExitInvalidAspectMode,
	sstv.KindInvalidCallsign:    ExitInvalidCallsign,
	sstv.KindInvalidWpm:         ExitInvalidWpm,
	sstv.KindInvalidTone:        ExitInvalidTone,
	sstv.KindCwRequiresCallsign: ExitCwRequiresCallsign,
}

// FileError is a filesystem or decode failure carrying its exit code
type FileError struct {
	Code int
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ConfigError wraps configuration load and validation failures
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "config: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// exitCodeFor returns the process exit code for err
func exitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Code
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ExitConfig
	}
	if code, ok := kindExitCodes[sstv.KindOf(err)]; ok {
		return code
	}
	return ExitUnknown
}
