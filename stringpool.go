package axml

import (
	"bytes"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	stringFlagSorted = 0x00000001
	stringFlagUtf8   = 0x00000100

	// Sanity limit against hostile string counts.
	maxStringCount = 2 * 1024 * 1024
)

// stringPool is the document-wide string table. The (normally single) string
// pool chunk fills it once; a later pool chunk appends to the same index
// space, it does not replace it. Indices used by the other chunks refer to
// the appended sequence, which skips entries that decoded to an empty string.
type stringPool struct {
	strings  []string
	isSorted bool
	isUtf8   bool
}

func (p *stringPool) get(idx uint32) (string, error) {
	if idx >= uint32(len(p.strings)) {
		return "", fmt.Errorf("%w: %d of %d", ErrStringIndexOutOfRange, idx, len(p.strings))
	}
	return p.strings[idx], nil
}

// parseStringPool decodes one string pool chunk, cursor positioned at the
// chunk start with the tag not yet consumed, and appends the decoded strings
// to the pool. The cursor ends up past the whole chunk.
func (p *stringPool) parseStringPool(r *bytes.Reader) error {
	chunkStart := pos(r)

	h, err := parseChunkHeader(r, chunkStringPool)
	if err != nil {
		return err
	}

	if int64(h.chunkSize) > r.Size()-chunkStart {
		return fmt.Errorf("%w: string pool chunk of %d bytes, %d left", ErrTruncatedInput, h.chunkSize, r.Size()-chunkStart)
	}

	var stringCount, styleCount, flags, stringsStart, stylesStart uint32
	for _, dst := range []*uint32{&stringCount, &styleCount, &flags, &stringsStart, &stylesStart} {
		if err := read(r, dst); err != nil {
			return err
		}
	}
	_ = stylesStart // style spans are recorded in the header but never decoded

	p.isSorted = (flags & stringFlagSorted) != 0
	p.isUtf8 = (flags & stringFlagUtf8) != 0

	if stringCount >= maxStringCount {
		return fmt.Errorf("too many strings in this pool (%d)", stringCount)
	}

	offsets := make([]uint32, stringCount)
	if err := read(r, &offsets); err != nil {
		return err
	}

	// Style offsets follow the string offsets, one u32 per span array.
	if err := skip(r, 4*int64(styleCount)); err != nil {
		return err
	}

	for _, offset := range offsets {
		if _, err := r.Seek(chunkStart+int64(stringsStart)+int64(offset), 0); err != nil {
			return err
		}

		var s string
		if p.isUtf8 {
			s, err = parseString8(r)
		} else {
			s, err = parseString16(r)
		}
		if err != nil {
			return err
		}

		// Only non-empty entries are retained.
		if len(s) != 0 {
			p.strings = append(p.strings, s)
		}
	}

	_, err = r.Seek(chunkStart+int64(h.chunkSize), 0)
	return err
}

// parseString16 decodes one UTF-16 pool entry: a 16-bit character count
// followed by that many code units. The terminating zero code unit is not
// part of the count. Counts with the high bit set announce the two-word
// length encoding for strings over 32767 characters, which is out of this
// decoder's envelope.
func parseString16(r *bytes.Reader) (string, error) {
	var chars uint16
	if err := read(r, &chars); err != nil {
		return "", err
	}

	if (chars & 0x8000) != 0 {
		return "", fmt.Errorf("%w: high bit set in UTF-16 length", ErrStringTooLong)
	}

	buf := make([]uint16, chars)
	if err := read(r, &buf); err != nil {
		return "", err
	}

	// utf16.Decode substitutes U+FFFD for broken surrogates instead of
	// failing, so the pairing has to be checked up front.
	for i := 0; i < len(buf); i++ {
		switch u := buf[i]; {
		case u >= 0xD800 && u < 0xDC00:
			if i+1 == len(buf) || buf[i+1] < 0xDC00 || buf[i+1] >= 0xE000 {
				return "", fmt.Errorf("%w: unpaired UTF-16 surrogate", ErrInvalidTextEncoding)
			}
			i++
		case u >= 0xDC00 && u < 0xE000:
			return "", fmt.Errorf("%w: unpaired UTF-16 surrogate", ErrInvalidTextEncoding)
		}
	}

	return string(utf16.Decode(buf)), nil
}

// parseString8 decodes one UTF-8 pool entry: the encoded length in
// characters, the length in bytes, then the bytes themselves.
func parseString8(r *bytes.Reader) (string, error) {
	var chars, size uint8
	if err := read(r, &chars); err != nil {
		return "", err
	}

	if (chars & 0x80) != 0 {
		return "", fmt.Errorf("%w: high bit set in UTF-8 length", ErrStringTooLong)
	}

	if err := read(r, &size); err != nil {
		return "", err
	}

	if (size & 0x80) != 0 {
		return "", fmt.Errorf("%w: high bit set in UTF-8 byte length", ErrStringTooLong)
	}

	buf := make([]uint8, size)
	if err := read(r, &buf); err != nil {
		return "", err
	}

	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: invalid UTF-8 in string pool", ErrInvalidTextEncoding)
	}

	return string(buf), nil
}
