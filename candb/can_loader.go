package candb

import (
	"math"

	"github.com/cockroachdb/errors"
)

// NewSignal validates a signal entry and returns a standalone definition.
// Standalone signals encode into the smallest buffer that holds them.
func NewSignal(e SignalEntry) (*Signal, error) {
	if e.Name == "" {
		return nil, errors.Wrap(ErrInvalidSignal, "signal without name")
	}
	if e.BitLength < 1 || e.BitLength > 64 {
		return nil, errors.Wrapf(ErrInvalidSignal, "signal %s: invalid bit_length %d", e.Name, e.BitLength)
	}
	if e.StartBit < 0 || e.StartBit >= FDMaxLength*8 {
		return nil, errors.Wrapf(ErrInvalidSignal, "signal %s: invalid start_bit %d", e.Name, e.StartBit)
	}
	if e.ByteOrder != LittleEndian && e.ByteOrder != BigEndian {
		return nil, errors.Wrapf(ErrInvalidSignal, "signal %s: unknown byte order %s", e.Name, e.ByteOrder)
	}
	switch e.ValueType {
	case Unsigned, Signed:
	case Float:
		if err := checkFloatWidth(e.BitLength); err != nil {
			return nil, errors.Wrapf(err, "signal %s", e.Name)
		}
	default:
		return nil, errors.Wrapf(ErrInvalidSignal, "signal %s: unknown value type %s", e.Name, e.ValueType)
	}
	if e.Factor == 0 || math.IsNaN(e.Factor) || math.IsInf(e.Factor, 0) {
		return nil, errors.Wrapf(ErrInvalidSignal, "signal %s: invalid factor %g", e.Name, e.Factor)
	}
	if e.Min > e.Max {
		return nil, errors.Wrapf(ErrInvalidSignal, "signal %s: min %g above max %g", e.Name, e.Min, e.Max)
	}

	mux := e.Multiplexing
	if mux == nil {
		mux = NotMultiplexed{}
	}
	if _, ok := mux.(Multiplexor); ok && e.ValueType == Float {
		return nil, errors.Wrapf(ErrInvalidSignal, "signal %s: multiplexor cannot be a float", e.Name)
	}

	return &Signal{
		name:         e.Name,
		startBit:     e.StartBit,
		bitLength:    e.BitLength,
		byteOrder:    e.ByteOrder,
		valueType:    e.ValueType,
		factor:       e.Factor,
		offset:       e.Offset,
		min:          e.Min,
		max:          e.Max,
		unit:         e.Unit,
		receivers:    append([]string(nil), e.Receivers...),
		multiplexing: mux,
	}, nil
}

// Builder assembles a Library from an ordered entry sequence. A message
// entry opens a frame and the signal entries that follow attach to it.
// The first error sticks: every later Add and Finish return it.
type Builder struct {
	opts buildOptions
	log  *Logger

	version string
	frames  []*Frame
	byID    map[uint32]*Frame
	byName  map[string]*Frame
	current *Frame

	// descriptions and attributes may reference frames declared later.
	pending []Entry

	err error
}

var errBuilderFinished = errors.New("builder already finished")

func NewBuilder(opts ...Option) *Builder {
	o := defaultBuildOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder{
		opts:   o,
		log:    o.log,
		byID:   map[uint32]*Frame{},
		byName: map[string]*Frame{},
	}
}

// Build runs a Builder over entries.
func Build(entries []Entry, opts ...Option) (*Library, error) {
	b := NewBuilder(opts...)
	for _, e := range entries {
		if err := b.Add(e); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}

func (b *Builder) Add(entry Entry) error {
	if b.err != nil {
		return b.err
	}
	var err error
	switch e := entry.(type) {
	case VersionEntry:
		b.version = e.Version
		b.log.Debug("dbc version %q", e.Version)
	case MessageEntry:
		err = b.openFrame(e)
	case SignalEntry:
		err = b.addSignal(e)
	case MessageDescriptionEntry, MessageAttributeEntry, SignalDescriptionEntry, SignalAttributeEntry:
		b.pending = append(b.pending, e)
	default:
		err = errors.Newf("unsupported entry %T", entry)
	}
	if err != nil {
		b.err = err
	}
	return err
}

func (b *Builder) openFrame(e MessageEntry) error {
	if e.Name == "" {
		return errors.Wrapf(ErrInvalidFrame, "message %d without name", e.ID)
	}
	if e.Length < 0 || e.Length > b.opts.maxFrameLength {
		return errors.Wrapf(ErrInvalidFrame, "message %s: length %d outside 0..%d", e.Name, e.Length, b.opts.maxFrameLength)
	}
	if prev, ok := b.byID[e.ID]; ok {
		return errors.Wrapf(ErrDuplicateFrameID, "message %s reuses id %d of %s", e.Name, e.ID, prev.name)
	}
	if _, ok := b.byName[e.Name]; ok {
		return errors.Wrapf(ErrDuplicateFrameName, "message %s", e.Name)
	}

	f := &Frame{
		id:          e.ID,
		name:        e.Name,
		length:      e.Length,
		transmitter: e.Transmitter,
		byName:      map[string]*Signal{},
	}
	b.frames = append(b.frames, f)
	b.byID[f.id] = f
	b.byName[f.name] = f
	b.current = f
	b.log.Debug("frame %s id=0x%X length=%d", f.name, f.id, f.length)
	return nil
}

func (b *Builder) addSignal(e SignalEntry) error {
	f := b.current
	if f == nil {
		return errors.Wrapf(ErrOrphanSignal, "signal %s", e.Name)
	}
	s, err := NewSignal(e)
	if err != nil {
		return errors.Wrapf(err, "frame %s", f.name)
	}
	if need := byteSpan(s.startBit, s.bitLength, s.byteOrder); need > f.length {
		return errors.Wrapf(ErrBitRangeOverflow, "frame %s signal %s needs %d bytes, frame has %d",
			f.name, s.name, need, f.length)
	}
	if _, ok := f.byName[s.name]; ok {
		return errors.Wrapf(ErrDuplicateSignalName, "frame %s signal %s", f.name, s.name)
	}
	if _, ok := s.multiplexing.(Multiplexor); ok && f.multiplexor != nil {
		return errors.Wrapf(ErrInvalidSignal, "frame %s: second multiplexor %s (first is %s)",
			f.name, s.name, f.multiplexor.name)
	}

	bits := fieldBits(s.startBit, s.bitLength, s.byteOrder)
	for _, other := range f.signals {
		if mutuallyExclusive(s.multiplexing, other.multiplexing) {
			continue
		}
		if bitsOverlap(bits, fieldBits(other.startBit, other.bitLength, other.byteOrder)) {
			return errors.Wrapf(ErrSignalOverlap, "frame %s: %s overlaps %s", f.name, s.name, other.name)
		}
	}

	s.frameLength = f.length
	f.signals = append(f.signals, s)
	f.byName[s.name] = s
	if _, ok := s.multiplexing.(Multiplexor); ok {
		f.multiplexor = s
	}
	b.log.Trace("frame %s signal %s", f.name, s)
	return nil
}

// Finish resolves deferred metadata and returns the Library. The Builder
// cannot be used afterwards.
func (b *Builder) Finish() (*Library, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.err = errBuilderFinished

	for _, e := range b.pending {
		b.applyMetadata(e)
	}

	lib := &Library{
		version: b.version,
		frames:  b.frames,
		byID:    b.byID,
		byName:  b.byName,
		signals: map[string]*Signal{},
	}
	nSignals := 0
	for _, f := range lib.frames {
		for _, s := range f.signals {
			nSignals++
			if _, ok := lib.signals[s.name]; !ok {
				lib.signals[s.name] = s
			}
		}
	}
	b.log.Info("library built: %d frames, %d signals, version %q", len(lib.frames), nSignals, lib.version)
	return lib, nil
}

func (b *Builder) applyMetadata(entry Entry) {
	switch e := entry.(type) {
	case MessageDescriptionEntry:
		if f := b.metadataFrame(e.ID, entry); f != nil {
			f.description = e.Description
		}
	case MessageAttributeEntry:
		if f := b.metadataFrame(e.ID, entry); f != nil {
			if f.attributes == nil {
				f.attributes = map[string]string{}
			}
			f.attributes[e.Name] = e.Value
		}
	case SignalDescriptionEntry:
		if s := b.metadataSignal(e.ID, e.Signal, entry); s != nil {
			s.description = e.Description
		}
	case SignalAttributeEntry:
		if s := b.metadataSignal(e.ID, e.Signal, entry); s != nil {
			if s.attributes == nil {
				s.attributes = map[string]string{}
			}
			s.attributes[e.Name] = e.Value
		}
	}
}

func (b *Builder) metadataFrame(id uint32, entry Entry) *Frame {
	f, ok := b.byID[id]
	if !ok {
		b.log.Warn("skipping %s for unknown frame id %d", entry.entryKind(), id)
		return nil
	}
	return f
}

func (b *Builder) metadataSignal(id uint32, name string, entry Entry) *Signal {
	f := b.metadataFrame(id, entry)
	if f == nil {
		return nil
	}
	s, ok := f.byName[name]
	if !ok {
		b.log.Warn("skipping %s for unknown signal %s in frame %s", entry.entryKind(), name, f.name)
		return nil
	}
	return s
}

func (l *Library) FrameByID(id uint32) (*Frame, error) {
	f, ok := l.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrFrameNotFound, "unknown frame id 0x%X", id)
	}
	return f, nil
}

func (l *Library) FrameByName(name string) (*Frame, error) {
	f, ok := l.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrFrameNotFound, "unknown frame %q (available: %v)", name, l.FrameNames())
	}
	return f, nil
}

// Signal looks a signal up by name across all frames. When several frames
// declare the same name, the first declaration wins.
func (l *Library) Signal(name string) (*Signal, error) {
	s, ok := l.signals[name]
	if !ok {
		return nil, errors.Wrapf(ErrSignalNotFound, "unknown signal %q", name)
	}
	return s, nil
}
