package candb

import (
	"math"

	"github.com/cockroachdb/errors"
	"go.einride.tech/can"
)

// DecodeRaw extracts the unsigned bit pattern of the signal.
func (s *Signal) DecodeRaw(data []byte) (uint64, error) {
	raw, err := getBits(data, s.startBit, s.bitLength, s.byteOrder)
	if err != nil {
		return 0, errors.Wrapf(err, "signal %s", s.name)
	}
	return raw, nil
}

func (s *Signal) decode(data []byte, o decodeOptions) (float64, uint64, error) {
	raw, err := s.DecodeRaw(data)
	if err != nil {
		return 0, 0, err
	}
	numeric, err := rawToNumeric(raw, s.bitLength, s.valueType)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "signal %s", s.name)
	}
	phys := numeric*s.factor + s.offset
	if o.rangeCheck && s.HasRange() && (phys < s.min || phys > s.max) {
		return 0, 0, errors.Wrapf(ErrValueOutOfRange, "signal %s decoded %g outside [%g, %g]",
			s.name, phys, s.min, s.max)
	}
	return phys, raw, nil
}

// DecodeMessage returns the physical value of the signal in data. Values
// outside [Min, Max] are returned as-is unless WithRangeCheck is given.
func (s *Signal) DecodeMessage(data []byte, opts ...DecodeOption) (float64, error) {
	phys, _, err := s.decode(data, collectDecodeOptions(opts))
	return phys, err
}

// encodeRaw converts a physical value into the bit pattern stored in the
// frame. It fails rather than clamp or truncate.
func (s *Signal) encodeRaw(value float64) (uint64, error) {
	if s.HasRange() && (math.IsNaN(value) || value < s.min || value > s.max) {
		return 0, errors.Wrapf(ErrValueOutOfRange, "signal %s value %g outside [%g, %g]",
			s.name, value, s.min, s.max)
	}
	raw, err := numericToRaw((value-s.offset)/s.factor, s.bitLength, s.valueType)
	if err != nil {
		return 0, errors.Wrapf(err, "signal %s value %g", s.name, value)
	}
	return raw, nil
}

// EncodeInto writes value into buf in place, leaving every bit outside the
// signal untouched. Float signals store (value-offset)/factor as the IEEE
// pattern, not the physical value itself.
func (s *Signal) EncodeInto(buf []byte, value float64) error {
	if err := checkField(buf, s.startBit, s.bitLength, s.byteOrder); err != nil {
		return errors.Wrapf(err, "signal %s", s.name)
	}
	raw, err := s.encodeRaw(value)
	if err != nil {
		return err
	}
	return setBits(buf, s.startBit, s.bitLength, s.byteOrder, raw)
}

// EncodeMessage encodes value into a zeroed buffer the size of the owning
// frame, or just large enough for the signal when standalone.
func (s *Signal) EncodeMessage(value float64) ([]byte, error) {
	n := s.frameLength
	if n == 0 {
		n = byteSpan(s.startBit, s.bitLength, s.byteOrder)
	}
	buf := make([]byte, n)
	if err := s.EncodeInto(buf, value); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeMessage decodes every signal active in data. Signals multiplexed
// under another switch value than the one in data are left out.
func (f *Frame) DecodeMessage(data []byte, opts ...DecodeOption) (map[string]float64, error) {
	if len(data) < f.length {
		return nil, errors.Wrapf(ErrBitRangeOutOfBounds, "frame %s expects %d bytes, got %d",
			f.name, f.length, len(data))
	}
	o := collectDecodeOptions(opts)
	out := make(map[string]float64, len(f.signals))

	var switchValue uint64
	if f.multiplexor != nil {
		phys, raw, err := f.multiplexor.decode(data, o)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %s", f.name)
		}
		out[f.multiplexor.name] = phys
		switchValue = raw
	}

	for _, s := range f.signals {
		switch m := s.multiplexing.(type) {
		case Multiplexor:
			continue
		case MultiplexedBy:
			if f.multiplexor == nil || m.Switch != switchValue {
				continue
			}
		case NotMultiplexed:
		}
		phys, _, err := s.decode(data, o)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %s", f.name)
		}
		out[s.name] = phys
	}
	return out, nil
}

type pendingWrite struct {
	s   *Signal
	raw uint64
}

// EncodeInto writes values into buf in place. The multiplexor value is
// resolved first; multiplexed signals under other switch values are not
// written even if values holds them. Names unknown to the frame are
// ignored. Nothing is written unless every required value encodes.
func (f *Frame) EncodeInto(buf []byte, values map[string]float64) error {
	if len(buf) < f.length {
		return errors.Wrapf(ErrBitRangeOutOfBounds, "frame %s expects %d bytes, got %d",
			f.name, f.length, len(buf))
	}

	writes := make([]pendingWrite, 0, len(f.signals))
	var switchValue uint64
	if f.multiplexor != nil {
		v, ok := values[f.multiplexor.name]
		if !ok {
			return errors.Wrapf(ErrMissingSignalValue, "frame %s multiplexor %s", f.name, f.multiplexor.name)
		}
		raw, err := f.multiplexor.encodeRaw(v)
		if err != nil {
			return errors.Wrapf(err, "frame %s", f.name)
		}
		writes = append(writes, pendingWrite{s: f.multiplexor, raw: raw})
		switchValue = raw
	}

	for _, s := range f.signals {
		switch m := s.multiplexing.(type) {
		case Multiplexor:
			continue
		case MultiplexedBy:
			if f.multiplexor == nil {
				if _, ok := values[s.name]; ok {
					return errors.Wrapf(ErrMultiplexerUnresolved, "frame %s signal %s has no multiplexor", f.name, s.name)
				}
				continue
			}
			if m.Switch != switchValue {
				continue
			}
		case NotMultiplexed:
		}
		v, ok := values[s.name]
		if !ok {
			return errors.Wrapf(ErrMissingSignalValue, "frame %s signal %s", f.name, s.name)
		}
		raw, err := s.encodeRaw(v)
		if err != nil {
			return errors.Wrapf(err, "frame %s", f.name)
		}
		writes = append(writes, pendingWrite{s: s, raw: raw})
	}

	for _, w := range writes {
		if err := setBits(buf, w.s.startBit, w.s.bitLength, w.s.byteOrder, w.raw); err != nil {
			return errors.Wrapf(err, "frame %s signal %s", f.name, w.s.name)
		}
	}
	return nil
}

// EncodeMessage encodes values into a new zeroed buffer of the frame length.
func (f *Frame) EncodeMessage(values map[string]float64) ([]byte, error) {
	buf := make([]byte, f.length)
	if err := f.EncodeInto(buf, values); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeCANFrame produces a classic CAN frame ready to transmit.
func (f *Frame) EncodeCANFrame(values map[string]float64) (can.Frame, error) {
	if f.length > ClassicMaxLength {
		return can.Frame{}, errors.Wrapf(ErrBitRangeOutOfBounds, "frame %s has %d bytes, classic CAN carries %d",
			f.name, f.length, ClassicMaxLength)
	}
	payload, err := f.EncodeMessage(values)
	if err != nil {
		return can.Frame{}, err
	}

	var cf can.Frame
	cf.ID = f.CANID()
	cf.IsExtended = f.IsExtended()
	cf.Length = uint8(len(payload))
	copy(cf.Data[:], payload)
	return cf, nil
}

// DecodeCANFrame finds the definition of a received classic CAN frame and
// decodes it.
func (l *Library) DecodeCANFrame(cf can.Frame, opts ...DecodeOption) (*Frame, map[string]float64, error) {
	id := cf.ID
	if cf.IsExtended {
		id |= ExtendedIDFlag
	}
	f, err := l.FrameByID(id)
	if err != nil {
		return nil, nil, err
	}
	n := int(cf.Length)
	if n > len(cf.Data) {
		n = len(cf.Data)
	}
	values, err := f.DecodeMessage(cf.Data[:n], opts...)
	if err != nil {
		return f, nil, err
	}
	return f, values, nil
}
