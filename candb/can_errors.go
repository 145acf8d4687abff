package candb

import "github.com/cockroachdb/errors"

// Build errors. A Library is never returned when one of these occurs.
var (
	ErrDuplicateFrameID    = errors.New("duplicate frame id")
	ErrDuplicateFrameName  = errors.New("duplicate frame name")
	ErrDuplicateSignalName = errors.New("duplicate signal name")
	ErrOrphanSignal        = errors.New("signal declared before any message")
	ErrBitRangeOverflow    = errors.New("signal bit range exceeds frame length")
	ErrSignalOverlap       = errors.New("signal bit ranges overlap")
	ErrInvalidFrame        = errors.New("invalid frame definition")
	ErrInvalidSignal       = errors.New("invalid signal definition")
)

// Lookup errors.
var (
	ErrFrameNotFound  = errors.New("frame not found")
	ErrSignalNotFound = errors.New("signal not found")
)

// Codec errors.
var (
	ErrBitRangeOutOfBounds   = errors.New("bit range out of bounds")
	ErrValueOutOfRange       = errors.New("value out of range")
	ErrInvalidFloatWidth     = errors.New("invalid float width")
	ErrMissingSignalValue    = errors.New("missing signal value")
	ErrMultiplexerUnresolved = errors.New("multiplexer unresolved")
)
