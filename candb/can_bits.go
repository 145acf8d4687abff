package candb

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Bit positions are absolute: byte*8 + bit, bit 0 being the least
// significant bit of the byte. Little-endian fields start at their LSB and
// walk upward. Big-endian fields start at their MSB and walk downward,
// jumping from bit 0 of a byte to bit 7 of the next one.

func nextBit(pos int, order ByteOrder) int {
	if order == LittleEndian {
		return pos + 1
	}
	if pos%8 == 0 {
		return pos + 15
	}
	return pos - 1
}

// lastBit returns the position of the final bit walked for a field.
func lastBit(startBit, bitLen int, order ByteOrder) int {
	if order == LittleEndian {
		return startBit + bitLen - 1
	}
	inFirst := startBit%8 + 1
	if bitLen <= inFirst {
		return startBit - bitLen + 1
	}
	rest := bitLen - inFirst
	extraBytes := (rest + 7) / 8
	inLast := rest - (extraBytes-1)*8
	return (startBit/8+extraBytes)*8 + 8 - inLast
}

// byteSpan returns the number of bytes a buffer needs to hold the field.
func byteSpan(startBit, bitLen int, order ByteOrder) int {
	return lastBit(startBit, bitLen, order)/8 + 1
}

// fieldBits lists the absolute positions of a field, most significant
// first for big-endian and least significant first for little-endian.
func fieldBits(startBit, bitLen int, order ByteOrder) []int {
	out := make([]int, 0, bitLen)
	pos := startBit
	for i := 0; i < bitLen; i++ {
		out = append(out, pos)
		pos = nextBit(pos, order)
	}
	return out
}

func bitsOverlap(a, b []int) bool {
	seen := make(map[int]struct{}, len(a))
	for _, p := range a {
		seen[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := seen[p]; ok {
			return true
		}
	}
	return false
}

func checkField(data []byte, startBit, bitLen int, order ByteOrder) error {
	if bitLen <= 0 || bitLen > 64 || startBit < 0 || startBit >= len(data)*8 {
		return errors.Wrapf(ErrBitRangeOutOfBounds, "field %d|%d", startBit, bitLen)
	}
	if need := byteSpan(startBit, bitLen, order); need > len(data) {
		return errors.Wrapf(ErrBitRangeOutOfBounds,
			"field %d|%d@%s needs %d bytes, buffer has %d", startBit, bitLen, order, need, len(data))
	}
	return nil
}

func getBits(data []byte, startBit, bitLen int, order ByteOrder) (uint64, error) {
	if err := checkField(data, startBit, bitLen, order); err != nil {
		return 0, err
	}
	var raw uint64
	pos := startBit
	for i := 0; i < bitLen; i++ {
		bit := uint64(data[pos/8]>>(pos%8)) & 1
		if order == LittleEndian {
			raw |= bit << i
		} else {
			raw = raw<<1 | bit
		}
		pos = nextBit(pos, order)
	}
	return raw, nil
}

// setBits writes the low bitLen bits of value into data. Bits outside the
// field are left untouched.
func setBits(data []byte, startBit, bitLen int, order ByteOrder, value uint64) error {
	if err := checkField(data, startBit, bitLen, order); err != nil {
		return err
	}
	pos := startBit
	for i := 0; i < bitLen; i++ {
		var bit uint64
		if order == LittleEndian {
			bit = (value >> i) & 1
		} else {
			bit = (value >> (bitLen - 1 - i)) & 1
		}
		mask := byte(1) << (pos % 8)
		data[pos/8] &^= mask
		if bit != 0 {
			data[pos/8] |= mask
		}
		pos = nextBit(pos, order)
	}
	return nil
}

func fieldMask(bitLen int) uint64 {
	if bitLen >= 64 {
		return math.MaxUint64
	}
	return uint64(1)<<bitLen - 1
}

func unsignedToRawInt64(u uint64, bitLen int) int64 {
	if bitLen >= 64 {
		return int64(u)
	}
	signBit := uint64(1) << (bitLen - 1)
	if u&signBit == 0 {
		return int64(u)
	}
	return int64(u | ^fieldMask(bitLen))
}

func rawToUnsigned(raw int64, bitLen int) uint64 {
	return uint64(raw) & fieldMask(bitLen)
}

func checkFloatWidth(bitLen int) error {
	if bitLen != 32 && bitLen != 64 {
		return errors.Wrapf(ErrInvalidFloatWidth, "float signal of %d bits", bitLen)
	}
	return nil
}

// rawToNumeric reinterprets an unsigned bit pattern per value type.
func rawToNumeric(raw uint64, bitLen int, vt ValueType) (float64, error) {
	switch vt {
	case Unsigned:
		return float64(raw), nil
	case Signed:
		return float64(unsignedToRawInt64(raw, bitLen)), nil
	case Float:
		if err := checkFloatWidth(bitLen); err != nil {
			return 0, err
		}
		if bitLen == 32 {
			return float64(math.Float32frombits(uint32(raw))), nil
		}
		return math.Float64frombits(raw), nil
	default:
		return 0, errors.Wrapf(ErrInvalidSignal, "unknown value type %s", vt)
	}
}

// numericToRaw is the inverse of rawToNumeric for an already unscaled value.
// It never truncates: values that do not fit the field fail.
func numericToRaw(v float64, bitLen int, vt ValueType) (uint64, error) {
	switch vt {
	case Float:
		if err := checkFloatWidth(bitLen); err != nil {
			return 0, err
		}
		if bitLen == 64 {
			return math.Float64bits(v), nil
		}
		if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
			return 0, errors.Wrapf(ErrValueOutOfRange, "%g does not fit float32", v)
		}
		return uint64(math.Float32bits(float32(v))), nil
	case Unsigned, Signed:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errors.Wrapf(ErrValueOutOfRange, "%g is not a finite value", v)
		}
	default:
		return 0, errors.Wrapf(ErrInvalidSignal, "unknown value type %s", vt)
	}

	r := math.Round(v)
	if vt == Unsigned {
		// 2^bitLen is exact in float64 for every bitLen up to 64.
		if r < 0 || r >= math.Ldexp(1, bitLen) {
			return 0, errors.Wrapf(ErrValueOutOfRange, "raw %g does not fit %d unsigned bits", r, bitLen)
		}
		return uint64(r), nil
	}
	lo := -math.Ldexp(1, bitLen-1)
	hi := math.Ldexp(1, bitLen-1)
	if r < lo || r >= hi {
		return 0, errors.Wrapf(ErrValueOutOfRange, "raw %g does not fit %d signed bits", r, bitLen)
	}
	return rawToUnsigned(int64(r), bitLen), nil
}
