package axml

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	chunkNull        = 0x0000
	chunkStringPool  = 0x0001
	chunkTable       = 0x0002
	chunkAxmlFile    = 0x0003
	chunkResourceMap = 0x0180

	chunkXmlNsStart  = 0x0100
	chunkXmlNsEnd    = 0x0101
	chunkXmlTagStart = 0x0102
	chunkXmlTagEnd   = 0x0103
	chunkXmlCData    = 0x0104
	chunkXmlLast     = 0x017f

	chunkTablePackage  = 0x0200
	chunkTableType     = 0x0201
	chunkTableTypeSpec = 0x0202
	chunkTableLibrary  = 0x0203

	chunkHeaderSize = 2 + 2 + 4

	// Reserved index meaning "no value".
	sentinelNone = 0xFFFFFFFF
)

type chunkHeader struct {
	id         uint16
	headerSize uint16
	chunkSize  uint32
}

// parseChunkHeader decodes the common 8-byte chunk prefix and checks it
// against the tag the caller requires. The cursor advances by 8 bytes on
// success.
func parseChunkHeader(r *bytes.Reader, expected uint16) (chunkHeader, error) {
	var h chunkHeader

	if err := read(r, &h.id); err != nil {
		return h, err
	}

	if h.id != expected {
		return h, fmt.Errorf("%w: 0x%04x, expected 0x%04x", ErrUnexpectedChunkType, h.id, expected)
	}

	if err := read(r, &h.headerSize); err != nil {
		return h, err
	}

	if err := read(r, &h.chunkSize); err != nil {
		return h, err
	}

	if h.headerSize < chunkHeaderSize {
		return h, fmt.Errorf("%w: %d", ErrHeaderTooSmall, h.headerSize)
	}

	if h.chunkSize < chunkHeaderSize {
		return h, fmt.Errorf("%w: %d", ErrChunkTooSmall, h.chunkSize)
	}

	if h.chunkSize < uint32(h.headerSize) {
		return h, fmt.Errorf("%w: %d < %d", ErrChunkSmallerThanHeader, h.chunkSize, h.headerSize)
	}

	return h, nil
}

// read wraps binary.Read with little-endian byte order and maps short reads
// onto ErrTruncatedInput.
func read(r io.Reader, data any) error {
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: %v", ErrTruncatedInput, err)
		}
		return err
	}
	return nil
}

// skip discards n bytes from the cursor.
func skip(r *bytes.Reader, n int64) error {
	if int64(r.Len()) < n {
		return fmt.Errorf("%w: cannot skip %d bytes, %d left", ErrTruncatedInput, n, r.Len())
	}
	_, err := r.Seek(n, io.SeekCurrent)
	return err
}

// pos returns the current cursor offset from the start of the buffer.
func pos(r *bytes.Reader) int64 {
	p, _ := r.Seek(0, io.SeekCurrent)
	return p
}
