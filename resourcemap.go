package axml

import (
	"bytes"
	"fmt"
)

// First public android: attribute resource id; the built-in name table is
// indexed from here.
const attrResourceBase = 0x01010000

// parseResourceMap decodes the optional chunk mapping string pool entries
// back to resource identifiers, one u32 per pool entry. Cursor positioned at
// the chunk start, tag not yet consumed.
func parseResourceMap(r *bytes.Reader, ids []uint32) ([]uint32, error) {
	chunkStart := pos(r)

	h, err := parseChunkHeader(r, chunkResourceMap)
	if err != nil {
		return ids, err
	}

	// The declared size drives the entry allocation below; cap it by what
	// the input can actually hold.
	if int64(h.chunkSize) > r.Size()-chunkStart {
		return ids, fmt.Errorf("%w: resource map chunk of %d bytes, %d left", ErrTruncatedInput, h.chunkSize, r.Size()-chunkStart)
	}

	count := h.chunkSize/4 - 2
	entries := make([]uint32, count)
	if err := read(r, &entries); err != nil {
		return ids, err
	}

	return append(ids, entries...), nil
}

// resolveAttrName maps a well-known android: attribute resource id to its
// name. Used when an attribute's name has no usable string pool entry, which
// happens with obfuscated or minimized manifests.
func resolveAttrName(id uint32) (string, error) {
	if id < attrResourceBase || id-attrResourceBase >= uint32(len(attrNames)) {
		return "", fmt.Errorf("%w: 0x%08x", ErrUnknownResourceID, id)
	}
	return attrNames[id-attrResourceBase], nil
}
