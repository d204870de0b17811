package axml

import "errors"

// Decoding errors. A single malformed chunk aborts the whole decode; chunk
// sizes are only trusted to locate the next chunk once they pass validation,
// so there is no resync strategy. All errors returned by Decode wrap one of
// these and can be matched with errors.Is.
var (
	// Chunk header size invariants (header >= 8, chunk >= 8, chunk >= header).
	ErrHeaderTooSmall         = errors.New("chunk header size smaller than the 8 byte minimum")
	ErrChunkTooSmall          = errors.New("chunk size smaller than the 8 byte minimum")
	ErrChunkSmallerThanHeader = errors.New("chunk size smaller than its header size")

	// A sub-decoder found a different chunk tag than the one it requires.
	ErrUnexpectedChunkType = errors.New("unexpected chunk type")

	// The 2-byte tag matches nothing in the closed chunk type set.
	ErrUnknownChunkType = errors.New("unknown chunk type")

	// Typed value tag outside the known set.
	ErrUnknownValueType = errors.New("unknown value type")

	// A string pool index with no backing entry.
	ErrStringIndexOutOfRange = errors.New("string index out of range")

	// An attribute references a namespace with no prior declaration.
	ErrUnresolvedNamespace = errors.New("unresolved namespace")

	// A resource id map entry outside the built-in attribute name table.
	ErrUnknownResourceID = errors.New("resource id out of range")

	// The cursor ran past the end of the buffer.
	ErrTruncatedInput = errors.New("truncated input")

	// A string pool entry is not valid UTF-8.
	ErrInvalidTextEncoding = errors.New("invalid text encoding")

	// String pool entries longer than 32767 characters use a two-word length
	// encoding this decoder does not support.
	ErrStringTooLong = errors.New("string exceeds 32767 characters")

	// An end element chunk with no matching open element.
	ErrUnbalancedElement = errors.New("end element without matching start element")
)

// Some samples have manifest in plaintext, this is an error.
var ErrPlainTextManifest = errors.New("xml is in plaintext, binary form expected")
