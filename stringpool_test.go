package axml

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringPoolUtf16(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("Hello", "World")

	var pool stringPool
	require.NoError(t, pool.parseStringPool(bytes.NewReader(b.Bytes())))

	assert.Equal(t, []string{"Hello", "World"}, pool.strings)
	assert.False(t, pool.isUtf8)
}

func TestStringPoolEmpty(t *testing.T) {
	var b axmlBuf
	b.utf16Pool()

	var pool stringPool
	require.NoError(t, pool.parseStringPool(bytes.NewReader(b.Bytes())))
	assert.Empty(t, pool.strings)
}

func TestStringPoolFlags(t *testing.T) {
	var b axmlBuf
	b.u16(chunkStringPool)
	b.u16(28)
	b.u32(28)
	b.u32(0)                // string count
	b.u32(0)                // style count
	b.u32(stringFlagSorted) // sorted, not utf8
	b.u32(28)               // strings start
	b.u32(0)                // styles start

	var pool stringPool
	require.NoError(t, pool.parseStringPool(bytes.NewReader(b.Bytes())))

	assert.True(t, pool.isSorted)
	assert.False(t, pool.isUtf8)
}

func TestStringPoolUtf8(t *testing.T) {
	var b axmlBuf
	b.u16(chunkStringPool)
	b.u16(28)
	b.u32(32 + 8)
	b.u32(1)              // string count
	b.u32(0)              // style count
	b.u32(stringFlagUtf8) // utf8
	b.u32(32)             // strings start
	b.u32(0)              // styles start
	b.u32(0)              // offset of the string
	b.u8(5)               // encoded length in characters
	b.u8(5)               // length in bytes
	b.WriteString("Hello")
	b.u8(0) // terminator

	var pool stringPool
	require.NoError(t, pool.parseStringPool(bytes.NewReader(b.Bytes())))

	assert.Equal(t, []string{"Hello"}, pool.strings)
	assert.True(t, pool.isUtf8)
}

func TestStringPoolInvalidUtf8(t *testing.T) {
	var b axmlBuf
	b.u16(chunkStringPool)
	b.u16(28)
	b.u32(32 + 5)
	b.u32(1)
	b.u32(0)
	b.u32(stringFlagUtf8)
	b.u32(32)
	b.u32(0)
	b.u32(0)
	b.u8(2)
	b.u8(2)
	b.Write([]byte{0xff, 0xfe})
	b.u8(0)

	var pool stringPool
	err := pool.parseStringPool(bytes.NewReader(b.Bytes()))
	require.ErrorIs(t, err, ErrInvalidTextEncoding)
}

func TestStringPoolLongStringRejected(t *testing.T) {
	var b axmlBuf
	b.u16(chunkStringPool)
	b.u16(28)
	b.u32(32 + 4)
	b.u32(1)
	b.u32(0)
	b.u32(0)
	b.u32(32)
	b.u32(0)
	b.u32(0)
	b.u16(0x8001) // high bit: two-word length encoding
	b.u16(0x0002)

	var pool stringPool
	err := pool.parseStringPool(bytes.NewReader(b.Bytes()))
	require.ErrorIs(t, err, ErrStringTooLong)
}

func TestStringPoolUnpairedSurrogate(t *testing.T) {
	tests := []struct {
		name  string
		units []uint16
	}{
		{"lone high surrogate", []uint16{0xD800}},
		{"lone low surrogate", []uint16{0xDC00}},
		{"high surrogate at end", []uint16{'a', 0xD83D}},
		{"high surrogate before non-surrogate", []uint16{0xD83D, 'a'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b axmlBuf
			b.u16(chunkStringPool)
			b.u16(28)
			b.u32(uint32(32 + 2*(len(tt.units)+2)))
			b.u32(1) // string count
			b.u32(0) // style count
			b.u32(0) // flags
			b.u32(32)
			b.u32(0)
			b.u32(0) // offset of the string
			b.u16(uint16(len(tt.units)))
			for _, u := range tt.units {
				b.u16(u)
			}
			b.u16(0) // terminator

			var pool stringPool
			err := pool.parseStringPool(bytes.NewReader(b.Bytes()))
			require.ErrorIs(t, err, ErrInvalidTextEncoding)
		})
	}
}

func TestStringPoolSurrogatePair(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("\U0001F600")

	var pool stringPool
	require.NoError(t, pool.parseStringPool(bytes.NewReader(b.Bytes())))
	assert.Equal(t, []string{"\U0001F600"}, pool.strings)
}

func TestStringPoolSkipsEmptyEntries(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("Hello", "", "World")

	var pool stringPool
	require.NoError(t, pool.parseStringPool(bytes.NewReader(b.Bytes())))

	// Zero-length entries are not appended; indices refer to the appended
	// sequence.
	assert.Equal(t, []string{"Hello", "World"}, pool.strings)
}

func TestStringPoolAppendsAcrossChunks(t *testing.T) {
	var first, second axmlBuf
	first.utf16Pool("Hello")
	second.utf16Pool("World")

	var pool stringPool
	require.NoError(t, pool.parseStringPool(bytes.NewReader(first.Bytes())))
	require.NoError(t, pool.parseStringPool(bytes.NewReader(second.Bytes())))

	assert.Equal(t, []string{"Hello", "World"}, pool.strings)
}

func TestStringPoolGetOutOfRange(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("Hello")

	var pool stringPool
	require.NoError(t, pool.parseStringPool(bytes.NewReader(b.Bytes())))

	s, err := pool.get(0)
	require.NoError(t, err)
	assert.Equal(t, "Hello", s)

	_, err = pool.get(1)
	require.ErrorIs(t, err, ErrStringIndexOutOfRange)
}
