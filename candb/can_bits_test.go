package candb

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"
)

func TestGetBits(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		startBit int
		bitLen   int
		order    ByteOrder
		want     uint64
	}{
		{"little endian word", []byte{0x34, 0x12}, 0, 16, LittleEndian, 0x1234},
		{"big endian word", []byte{0x34, 0x12}, 7, 16, BigEndian, 0x3412},
		{"little endian nibble", []byte{0xA5}, 4, 4, LittleEndian, 0xA},
		{"big endian nibble", []byte{0xA5}, 3, 4, BigEndian, 0x5},
		{"little endian across bytes", []byte{0xF0, 0x0F}, 4, 8, LittleEndian, 0xFF},
		{"big endian across bytes", []byte{0x0F, 0xF0}, 3, 8, BigEndian, 0xFF},
		{"single bit", []byte{0x00, 0x80}, 15, 1, LittleEndian, 1},
		{"engine speed", []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}, 24, 16, LittleEndian, 0x5544},
		{"full little endian", []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0, 64, LittleEndian, 0x0807060504030201},
		{"full big endian", []byte{1, 2, 3, 4, 5, 6, 7, 8}, 7, 64, BigEndian, 0x0102030405060708},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getBits(tt.data, tt.startBit, tt.bitLen, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetBits_OutOfBounds(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		startBit int
		bitLen   int
		order    ByteOrder
	}{
		{"little endian past end", []byte{0, 0}, 8, 16, LittleEndian},
		{"big endian past end", []byte{0, 0}, 7, 24, BigEndian},
		{"empty buffer", nil, 0, 1, LittleEndian},
		{"zero length", []byte{0}, 0, 0, LittleEndian},
		{"too long", make([]byte, 16), 0, 65, LittleEndian},
		{"huge little endian start", make([]byte, 8), math.MaxInt - 2, 8, LittleEndian},
		{"huge big endian start", make([]byte, 8), math.MaxInt - 2, 16, BigEndian},
		{"start just past end", make([]byte, 8), 64, 1, LittleEndian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := getBits(tt.data, tt.startBit, tt.bitLen, tt.order)
			assert.True(t, errors.Is(err, ErrBitRangeOutOfBounds), "got %v", err)
		})
	}
}

func TestSetBits_PreservesNeighbours(t *testing.T) {
	t.Run("little endian", func(t *testing.T) {
		buf := []byte{0xFF, 0xFF}
		require.NoError(t, setBits(buf, 4, 8, LittleEndian, 0x00))
		assert.Equal(t, []byte{0x0F, 0xF0}, buf)
	})

	t.Run("big endian", func(t *testing.T) {
		buf := []byte{0xFF, 0xFF}
		require.NoError(t, setBits(buf, 3, 8, BigEndian, 0x00))
		assert.Equal(t, []byte{0xF0, 0x0F}, buf)
	})

	t.Run("overwrites stale bits", func(t *testing.T) {
		buf := []byte{0xAF}
		require.NoError(t, setBits(buf, 0, 4, LittleEndian, 0x5))
		assert.Equal(t, []byte{0xA5}, buf)
	})

	t.Run("out of bounds leaves buffer", func(t *testing.T) {
		buf := []byte{0x12}
		err := setBits(buf, 4, 8, LittleEndian, 0xFF)
		assert.True(t, errors.Is(err, ErrBitRangeOutOfBounds))
		assert.Equal(t, []byte{0x12}, buf)
	})
}

// The einride can.Data accessors implement the DBC bit numbering and serve
// as the reference for both byte orders.
func TestBits_MatchEinrideReference(t *testing.T) {
	data := can.Data{0x9A, 0x3C, 0xE1, 0x57, 0x08, 0xF2, 0x6D, 0xB4}
	for _, order := range []ByteOrder{LittleEndian, BigEndian} {
		for start := 0; start < 64; start++ {
			for length := 1; length <= 64; length++ {
				if byteSpan(start, length, order) > 8 {
					continue
				}
				got, err := getBits(data[:], start, length, order)
				require.NoError(t, err)

				var want uint64
				if order == LittleEndian {
					want = data.UnsignedBitsLittleEndian(uint8(start), uint8(length))
				} else {
					want = data.UnsignedBitsBigEndian(uint8(start), uint8(length))
				}
				require.Equal(t, want, got, "%s start=%d length=%d", order, start, length)
			}
		}
	}
}

func TestSetBits_MatchEinrideReference(t *testing.T) {
	cases := []struct {
		start, length int
		order         ByteOrder
		value         uint64
	}{
		{0, 12, LittleEndian, 0xABC},
		{13, 19, LittleEndian, 0x5A5A5},
		{7, 12, BigEndian, 0xABC},
		{21, 19, BigEndian, 0x5A5A5},
		{39, 32, BigEndian, 0xDEADBEEF},
	}
	for _, c := range cases {
		var want can.Data
		for i := range want {
			want[i] = 0x3C
		}
		got := want
		if c.order == LittleEndian {
			want.SetUnsignedBitsLittleEndian(uint8(c.start), uint8(c.length), c.value)
		} else {
			want.SetUnsignedBitsBigEndian(uint8(c.start), uint8(c.length), c.value)
		}
		require.NoError(t, setBits(got[:], c.start, c.length, c.order, c.value))
		assert.Equal(t, want, got, "%s start=%d length=%d", c.order, c.start, c.length)
	}
}

func TestFieldBits(t *testing.T) {
	assert.Equal(t, []int{3, 2, 1, 0, 15, 14, 13, 12}, fieldBits(3, 8, BigEndian))
	assert.Equal(t, []int{6, 7, 8}, fieldBits(6, 3, LittleEndian))

	for _, order := range []ByteOrder{LittleEndian, BigEndian} {
		for start := 0; start < 64; start++ {
			for length := 1; length <= 64; length++ {
				bits := fieldBits(start, length, order)
				assert.Equal(t, bits[len(bits)-1], lastBit(start, length, order))
			}
		}
	}
}

func TestUnsignedToRawInt64(t *testing.T) {
	assert.Equal(t, int64(-1), unsignedToRawInt64(0xFF, 8))
	assert.Equal(t, int64(127), unsignedToRawInt64(0x7F, 8))
	assert.Equal(t, int64(-128), unsignedToRawInt64(0x80, 8))
	assert.Equal(t, int64(-2), unsignedToRawInt64(0x2, 2))
	assert.Equal(t, int64(-1), unsignedToRawInt64(math.MaxUint64, 64))
	assert.Equal(t, uint64(0xFF), rawToUnsigned(-1, 8))
	assert.Equal(t, uint64(0x800), rawToUnsigned(-2048, 12))
}

func TestNumericToRaw(t *testing.T) {
	tests := []struct {
		name    string
		v       float64
		bitLen  int
		vt      ValueType
		want    uint64
		wantErr error
	}{
		{"unsigned rounds", 21827.6, 16, Unsigned, 21828, nil},
		{"unsigned max", 255, 8, Unsigned, 0xFF, nil},
		{"unsigned overflow", 256, 8, Unsigned, 0, ErrValueOutOfRange},
		{"unsigned negative", -1, 8, Unsigned, 0, ErrValueOutOfRange},
		{"unsigned 64 bit", 1 << 62, 64, Unsigned, 1 << 62, nil},
		{"signed minus one", -1, 8, Signed, 0xFF, nil},
		{"signed min", -128, 8, Signed, 0x80, nil},
		{"signed below min", -129, 8, Signed, 0, ErrValueOutOfRange},
		{"signed above max", 128, 8, Signed, 0, ErrValueOutOfRange},
		{"nan", math.NaN(), 8, Unsigned, 0, ErrValueOutOfRange},
		{"float32", 1.5, 32, Float, 0x3FC00000, nil},
		{"float32 overflow", 1e39, 32, Float, 0, ErrValueOutOfRange},
		{"float width", 1.5, 16, Float, 0, ErrInvalidFloatWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numericToRaw(tt.v, tt.bitLen, tt.vt)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func BenchmarkGetBits(b *testing.B) {
	data := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	for n := 0; n < b.N; n++ {
		_, _ = getBits(data, 24, 16, LittleEndian)
	}
}
