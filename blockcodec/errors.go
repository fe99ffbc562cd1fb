package blockcodec

import (
	"errors"
	"fmt"
)

// ErrCodec is the sentinel matched by every *Error.
var ErrCodec = errors.New("block codec failure")

// Status classifies codec failures.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusBadParam
	StatusBadBlockSize
	StatusBadProfile
	StatusBadQuality
	StatusBadFlags
	StatusBadSwizzle
	StatusBadContext
	StatusOutOfMem
)

var statusNames = [...]string{
	"success", "bad parameter", "bad block size", "bad profile",
	"bad quality", "bad flags", "bad swizzle", "bad context", "out of memory",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Error carries a Status and a message.
type Error struct {
	Status Status
	Msg    string
}

func (e *Error) Error() string { return fmt.Sprintf("blockcodec: %s: %s", e.Status, e.Msg) }

func (e *Error) Unwrap() error { return ErrCodec }

func newError(s Status, format string, args ...any) error {
	return &Error{Status: s, Msg: fmt.Sprintf(format, args...)}
}

// StatusOf returns the Status of err, StatusSuccess for nil and StatusBadParam for foreign errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status
	}
	return StatusBadParam
}
