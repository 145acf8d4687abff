package candb

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
)

// ExtendedIDFlag marks a 29-bit identifier in DBC message ids.
const ExtendedIDFlag uint32 = 0x80000000

const (
	standardIDMask uint32 = 0x7FF
	extendedIDMask uint32 = 0x1FFFFFFF
)

// longNameAttribute holds the unabbreviated signal name in Vector tooling.
const longNameAttribute = "SystemSignalLongSymbol"

type ByteOrder uint8

const (
	// LittleEndian is the DBC "Intel" layout (@1).
	LittleEndian ByteOrder = iota
	// BigEndian is the DBC "Motorola" layout (@0).
	BigEndian
)

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little_endian"
	case BigEndian:
		return "big_endian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", uint8(o))
	}
}

type ValueType uint8

const (
	Unsigned ValueType = iota
	Signed
	Float
)

func (t ValueType) String() string {
	switch t {
	case Unsigned:
		return "unsigned"
	case Signed:
		return "signed"
	case Float:
		return "float"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Multiplexing is the multiplexer role of a signal. It is one of
// NotMultiplexed, Multiplexor or MultiplexedBy.
type Multiplexing interface {
	multiplexing()
	String() string
}

// NotMultiplexed signals are present in every frame instance.
type NotMultiplexed struct{}

// Multiplexor signals select which MultiplexedBy signals are present.
type Multiplexor struct{}

// MultiplexedBy signals are present only when the frame's multiplexor raw
// value equals Switch.
type MultiplexedBy struct {
	Switch uint64
}

func (NotMultiplexed) multiplexing() {}
func (Multiplexor) multiplexing()    {}
func (MultiplexedBy) multiplexing()  {}

func (NotMultiplexed) String() string  { return "-" }
func (Multiplexor) String() string     { return "M" }
func (m MultiplexedBy) String() string { return fmt.Sprintf("m%d", m.Switch) }

// mutuallyExclusive reports whether two roles can never be active in the
// same frame instance.
func mutuallyExclusive(a, b Multiplexing) bool {
	ma, ok := a.(MultiplexedBy)
	if !ok {
		return false
	}
	mb, ok := b.(MultiplexedBy)
	if !ok {
		return false
	}
	return ma.Switch != mb.Switch
}

// Signal is the immutable definition of one signal inside a frame.
type Signal struct {
	name         string
	startBit     int
	bitLength    int
	byteOrder    ByteOrder
	valueType    ValueType
	factor       float64
	offset       float64
	min          float64
	max          float64
	unit         string
	receivers    []string
	multiplexing Multiplexing

	description string
	attributes  map[string]string

	// frameLength is the byte length of the owning frame, 0 when standalone.
	frameLength int
}

func (s *Signal) Name() string               { return s.name }
func (s *Signal) StartBit() int              { return s.startBit }
func (s *Signal) BitLength() int             { return s.bitLength }
func (s *Signal) ByteOrder() ByteOrder       { return s.byteOrder }
func (s *Signal) ValueType() ValueType       { return s.valueType }
func (s *Signal) Factor() float64            { return s.factor }
func (s *Signal) Offset() float64            { return s.offset }
func (s *Signal) Min() float64               { return s.min }
func (s *Signal) Max() float64               { return s.max }
func (s *Signal) Unit() string               { return s.unit }
func (s *Signal) Multiplexing() Multiplexing { return s.multiplexing }
func (s *Signal) Description() string        { return s.description }

// Receivers returns a copy of the receiving node names.
func (s *Signal) Receivers() []string {
	return append([]string(nil), s.receivers...)
}

// Attribute returns the raw value of a BA_ attribute attached to the signal.
func (s *Signal) Attribute(name string) (string, bool) {
	v, ok := s.attributes[name]
	return v, ok
}

// LongName returns the SystemSignalLongSymbol attribute if present, the
// signal name otherwise.
func (s *Signal) LongName() string {
	if v, ok := s.attributes[longNameAttribute]; ok && v != "" {
		return v
	}
	return s.name
}

// HasRange reports whether [Min, Max] is enforced. A declared range of
// [0|0] means no range.
func (s *Signal) HasRange() bool {
	return s.min != 0 || s.max != 0
}

func (s *Signal) String() string {
	return fmt.Sprintf("%s %s %d|%d@%s %s (%g,%g) [%g|%g] %q",
		s.name, s.multiplexing, s.startBit, s.bitLength, s.byteOrder, s.valueType,
		s.factor, s.offset, s.min, s.max, s.unit)
}

// Frame is the immutable definition of one CAN message.
type Frame struct {
	id          uint32
	name        string
	length      int
	transmitter string
	description string
	attributes  map[string]string

	signals     []*Signal
	byName      map[string]*Signal
	multiplexor *Signal
}

// ID returns the DBC message id, including ExtendedIDFlag for 29-bit ids.
func (f *Frame) ID() uint32 { return f.id }

func (f *Frame) Name() string        { return f.name }
func (f *Frame) Length() int         { return f.length }
func (f *Frame) Transmitter() string { return f.transmitter }
func (f *Frame) Description() string { return f.description }

// IsExtended reports whether the frame uses a 29-bit identifier.
func (f *Frame) IsExtended() bool {
	return f.id&ExtendedIDFlag != 0
}

// CANID returns the arbitration id without the DBC extended flag.
func (f *Frame) CANID() uint32 {
	if f.IsExtended() {
		return f.id & extendedIDMask
	}
	return f.id & standardIDMask
}

// Attribute returns the raw value of a BA_ attribute attached to the frame.
func (f *Frame) Attribute(name string) (string, bool) {
	v, ok := f.attributes[name]
	return v, ok
}

// Signals returns the frame's signals in declaration order.
func (f *Frame) Signals() []*Signal {
	return append([]*Signal(nil), f.signals...)
}

// Signal looks up a signal of this frame by exact name.
func (f *Frame) Signal(name string) (*Signal, error) {
	s, ok := f.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrSignalNotFound, "frame %s has no signal %q", f.name, name)
	}
	return s, nil
}

// Multiplexor returns the frame's multiplexor signal, if it has one.
func (f *Frame) Multiplexor() (*Signal, bool) {
	return f.multiplexor, f.multiplexor != nil
}

func (f *Frame) SignalNames() []string {
	out := make([]string, 0, len(f.signals))
	for _, s := range f.signals {
		out = append(out, s.name)
	}
	return out
}

// Library is the immutable, indexed set of frame definitions built from a
// DBC entry sequence. It is safe for concurrent use.
type Library struct {
	version string
	frames  []*Frame
	byID    map[uint32]*Frame
	byName  map[string]*Frame
	signals map[string]*Signal
}

// Version returns the VERSION string of the source database.
func (l *Library) Version() string { return l.version }

func (l *Library) Len() int      { return len(l.frames) }
func (l *Library) IsEmpty() bool { return len(l.frames) == 0 }

// Frames returns all frames in declaration order.
func (l *Library) Frames() []*Frame {
	return append([]*Frame(nil), l.frames...)
}

func (l *Library) FrameNames() []string {
	out := make([]string, 0, len(l.byName))
	for k := range l.byName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (l *Library) FrameIDs() []uint32 {
	out := make([]uint32, 0, len(l.byID))
	for id := range l.byID {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
