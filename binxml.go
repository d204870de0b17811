package axml

import (
	"bytes"
	"fmt"
	"io"
)

type binxmlDecoder struct {
	strings     stringPool
	resourceIds []uint32

	// Declared namespaces, uri -> prefix. The table is document-scoped:
	// an end namespace chunk does not remove the entry.
	namespaces map[string]string

	root  *Element
	stack []*Element
}

// Decode parses a complete in-memory binary XML document and returns the
// root element of the reconstructed tree. The byte source is expected to be
// already extracted from its container.
//
// The synthetic root is a "manifest" element created before decoding starts;
// the first start element chunk declaring "manifest" merges its attributes
// into it instead of opening a child, so the declared root and the returned
// root are the same node. No partial tree is returned on failure.
func Decode(data []byte) (*Element, error) {
	if bytes.HasPrefix(data, []byte("<?xml ")) || bytes.HasPrefix(data, []byte("<manif")) {
		return nil, ErrPlainTextManifest
	}

	root := &Element{Type: "manifest", Attributes: make(map[string]string)}
	x := binxmlDecoder{
		namespaces: make(map[string]string),
		root:       root,
		stack:      []*Element{root},
	}

	r := bytes.NewReader(data)
	for {
		// End of input at a chunk boundary terminates the decode.
		if r.Len() == 0 {
			break
		}

		chunkStart := pos(r)

		var id uint16
		if err := read(r, &id); err != nil {
			return nil, err
		}

		var err error
		switch id {
		case chunkNull:
			continue
		case chunkStringPool:
			r.Seek(chunkStart, 0)
			err = x.strings.parseStringPool(r)
		case chunkResourceMap:
			r.Seek(chunkStart, 0)
			x.resourceIds, err = parseResourceMap(r, x.resourceIds)
		case chunkAxmlFile:
			// The file chunk wraps everything that follows; only its header
			// is consumed.
			r.Seek(chunkStart, 0)
			_, err = parseChunkHeader(r, id)
		case chunkXmlNsStart:
			r.Seek(chunkStart, 0)
			err = x.parseNsStart(r)
		case chunkXmlNsEnd:
			r.Seek(chunkStart, 0)
			err = x.parseNsEnd(r)
		case chunkXmlTagStart:
			r.Seek(chunkStart, 0)
			err = x.parseTagStart(r)
		case chunkXmlTagEnd:
			r.Seek(chunkStart, 0)
			err = x.parseTagEnd(r)
		case chunkTable, chunkXmlCData, chunkXmlLast,
			chunkTablePackage, chunkTableType, chunkTableTypeSpec, chunkTableLibrary:
			// Opaque payloads, consumed by declared size.
			r.Seek(chunkStart, 0)
			err = skipChunk(r, id)
		default:
			return nil, fmt.Errorf("%w: 0x%04x at 0x%08x", ErrUnknownChunkType, id, chunkStart)
		}

		if err != nil {
			return nil, fmt.Errorf("chunk 0x%04x at 0x%08x: %w", id, chunkStart, err)
		}
	}

	return root, nil
}

// DecodeReader reads the stream to its end and decodes it.
func DecodeReader(r io.Reader) (*Element, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func skipChunk(r *bytes.Reader, id uint16) error {
	chunkStart := pos(r)

	h, err := parseChunkHeader(r, id)
	if err != nil {
		return err
	}

	if int64(h.chunkSize) > r.Size()-chunkStart {
		return fmt.Errorf("%w: chunk of %d bytes, %d left", ErrTruncatedInput, h.chunkSize, r.Size()-chunkStart)
	}

	_, err = r.Seek(chunkStart+int64(h.chunkSize), 0)
	return err
}

func (x *binxmlDecoder) parseNsStart(r *bytes.Reader) error {
	if _, err := parseChunkHeader(r, chunkXmlNsStart); err != nil {
		return err
	}

	// Line number and comment.
	if err := skip(r, 2*4); err != nil {
		return err
	}

	var prefixIdx, uriIdx uint32
	if err := read(r, &prefixIdx); err != nil {
		return err
	}

	if err := read(r, &uriIdx); err != nil {
		return err
	}

	prefix, err := x.strings.get(prefixIdx)
	if err != nil {
		return fmt.Errorf("namespace prefix: %w", err)
	}

	uri, err := x.strings.get(uriIdx)
	if err != nil {
		return fmt.Errorf("namespace uri: %w", err)
	}

	x.namespaces[uri] = prefix
	return nil
}

func (x *binxmlDecoder) parseNsEnd(r *bytes.Reader) error {
	if _, err := parseChunkHeader(r, chunkXmlNsEnd); err != nil {
		return err
	}

	// Line number, comment, prefix and uri; the declaration stays in the
	// table for the rest of the document.
	return skip(r, 4*4)
}

func (x *binxmlDecoder) parseTagStart(r *bytes.Reader) error {
	if _, err := parseChunkHeader(r, chunkXmlTagStart); err != nil {
		return err
	}

	// Line number and comment.
	if err := skip(r, 2*4); err != nil {
		return err
	}

	var namespaceIdx, nameIdx, attrStartSize uint32
	var attrCount, idIdx, classIdx, styleIdx uint16

	if err := read(r, &namespaceIdx); err != nil {
		return fmt.Errorf("error reading namespace idx: %w", err)
	}

	if err := read(r, &nameIdx); err != nil {
		return fmt.Errorf("error reading name idx: %w", err)
	}

	if err := read(r, &attrStartSize); err != nil {
		return fmt.Errorf("error reading attribute start/size: %w", err)
	}

	if err := read(r, &attrCount); err != nil {
		return fmt.Errorf("error reading attribute count: %w", err)
	}

	for _, dst := range []*uint16{&idIdx, &classIdx, &styleIdx} {
		if err := read(r, dst); err != nil {
			return err
		}
	}

	name, err := x.strings.get(nameIdx)
	if err != nil {
		return fmt.Errorf("error decoding name: %w", err)
	}

	elem := &Element{Type: name, Attributes: make(map[string]string, attrCount)}
	for i := uint16(0); i < attrCount; i++ {
		key, value, err := x.parseAttribute(r)
		if err != nil {
			return err
		}
		elem.Attributes[key] = value
	}

	// The first declared "manifest" element is the synthetic root itself;
	// its attributes merge in place and no new frame opens.
	if name == "manifest" && len(x.stack) == 1 && x.stack[0] == x.root {
		for k, v := range elem.Attributes {
			x.root.Attributes[k] = v
		}
		return nil
	}

	if len(x.stack) == 0 {
		return fmt.Errorf("%w: element %q starts after the root closed", ErrUnbalancedElement, name)
	}

	parent := x.stack[len(x.stack)-1]
	parent.Children = append(parent.Children, elem)
	x.stack = append(x.stack, elem)
	return nil
}

func (x *binxmlDecoder) parseAttribute(r *bytes.Reader) (key, value string, err error) {
	var namespaceIdx, nameIdx, rawValueIdx uint32

	if err = read(r, &namespaceIdx); err != nil {
		return
	}

	if err = read(r, &nameIdx); err != nil {
		return
	}

	if err = read(r, &rawValueIdx); err != nil {
		return
	}

	val, err := parseResValue(r)
	if err != nil {
		return
	}

	name, err := x.attrName(nameIdx)
	if err != nil {
		return
	}

	key = name
	if namespaceIdx != sentinelNone {
		uri, uerr := x.strings.get(namespaceIdx)
		if uerr != nil {
			err = fmt.Errorf("attribute namespace: %w", uerr)
			return
		}

		prefix, ok := x.namespaces[uri]
		if !ok {
			err = fmt.Errorf("%w: %q", ErrUnresolvedNamespace, uri)
			return
		}
		key = prefix + ":" + name
	}

	switch {
	case rawValueIdx != sentinelNone:
		value, err = x.strings.get(rawValueIdx)
	case val.dataType == typeString:
		value, err = x.strings.get(val.data)
	default:
		value = val.String()
	}
	if err != nil {
		err = fmt.Errorf("attribute value: %w", err)
	}
	return
}

// attrName resolves an attribute name index against the string pool, falling
// back to the built-in resource id table for manifests whose pool entries
// were stripped by obfuscators.
func (x *binxmlDecoder) attrName(nameIdx uint32) (string, error) {
	name, err := x.strings.get(nameIdx)
	if err == nil {
		return name, nil
	}

	if nameIdx < uint32(len(x.resourceIds)) {
		return resolveAttrName(x.resourceIds[nameIdx])
	}

	return "", fmt.Errorf("attribute name: %w", err)
}

func (x *binxmlDecoder) parseTagEnd(r *bytes.Reader) error {
	if _, err := parseChunkHeader(r, chunkXmlTagEnd); err != nil {
		return err
	}

	// Line number, comment, namespace and name. The popped element is not
	// cross-checked against the decoded name.
	if err := skip(r, 4*4); err != nil {
		return err
	}

	if len(x.stack) == 0 {
		return ErrUnbalancedElement
	}

	x.stack = x.stack[:len(x.stack)-1]
	return nil
}
