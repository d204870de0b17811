package axml

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axmlBuf builds little-endian chunk buffers for tests.
type axmlBuf struct {
	bytes.Buffer
}

func (b *axmlBuf) u8(v uint8)   { b.WriteByte(v) }
func (b *axmlBuf) u16(v uint16) { binary.Write(b, binary.LittleEndian, v) }
func (b *axmlBuf) u32(v uint32) { binary.Write(b, binary.LittleEndian, v) }

// utf16Pool appends a UTF-16 string pool chunk holding the given strings in
// order.
func (b *axmlBuf) utf16Pool(strs ...string) {
	var entries axmlBuf
	offsets := make([]uint32, len(strs))
	for i, s := range strs {
		offsets[i] = uint32(entries.Len())
		units := utf16.Encode([]rune(s))
		entries.u16(uint16(len(units)))
		for _, u := range units {
			entries.u16(u)
		}
		entries.u16(0)
	}

	stringsStart := uint32(28 + 4*len(strs))

	b.u16(chunkStringPool)
	b.u16(28)
	b.u32(stringsStart + uint32(entries.Len()))
	b.u32(uint32(len(strs)))
	b.u32(0) // style count
	b.u32(0) // flags
	b.u32(stringsStart)
	b.u32(0) // styles start
	for _, off := range offsets {
		b.u32(off)
	}
	b.Write(entries.Bytes())
}

func (b *axmlBuf) resourceMap(ids ...uint32) {
	b.u16(chunkResourceMap)
	b.u16(8)
	b.u32(uint32(8 + 4*len(ids)))
	for _, id := range ids {
		b.u32(id)
	}
}

func (b *axmlBuf) nsStart(prefixIdx, uriIdx uint32) {
	b.u16(chunkXmlNsStart)
	b.u16(16)
	b.u32(24)
	b.u32(1)            // line number
	b.u32(sentinelNone) // comment
	b.u32(prefixIdx)
	b.u32(uriIdx)
}

func (b *axmlBuf) nsEnd(prefixIdx, uriIdx uint32) {
	b.u16(chunkXmlNsEnd)
	b.u16(16)
	b.u32(24)
	b.u32(1)
	b.u32(sentinelNone)
	b.u32(prefixIdx)
	b.u32(uriIdx)
}

type testAttr struct {
	ns, name, raw uint32
	dataType      uint8
	data          uint32
}

func (b *axmlBuf) tagStart(nameIdx uint32, attrs ...testAttr) {
	b.u16(chunkXmlTagStart)
	b.u16(16)
	b.u32(uint32(36 + 20*len(attrs)))
	b.u32(1)            // line number
	b.u32(sentinelNone) // comment
	b.u32(sentinelNone) // element namespace
	b.u32(nameIdx)
	b.u32(0x00140014) // attribute start/size
	b.u16(uint16(len(attrs)))
	b.u16(0) // id index
	b.u16(0) // class index
	b.u16(0) // style index

	for _, a := range attrs {
		b.u32(a.ns)
		b.u32(a.name)
		b.u32(a.raw)
		b.u16(8) // value size
		b.u8(0)  // res0
		b.u8(a.dataType)
		b.u32(a.data)
	}
}

func (b *axmlBuf) tagEnd(nameIdx uint32) {
	b.u16(chunkXmlTagEnd)
	b.u16(16)
	b.u32(24)
	b.u32(1)
	b.u32(sentinelNone)
	b.u32(sentinelNone)
	b.u32(nameIdx)
}

const testNsURI = "http://schemas.android.com/apk/res/android"

func TestDecodeMinimalManifest(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest", "package", "com.example", "android", testNsURI)
	b.nsStart(3, 4)
	b.tagStart(0, testAttr{ns: sentinelNone, name: 1, raw: 2, dataType: typeString, data: 2})
	b.tagEnd(0)
	b.nsEnd(3, 4)

	root, err := Decode(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "manifest", root.Type)
	assert.Equal(t, map[string]string{"package": "com.example"}, root.Attributes)
	assert.Empty(t, root.Children)
}

func TestDecodeNestedTree(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest", "application", "activity", "name", ".Main", "android", testNsURI)
	b.nsStart(5, 6)
	b.tagStart(0)
	b.tagStart(1)
	b.tagStart(2, testAttr{ns: 6, name: 3, raw: 4, dataType: typeString, data: 4})
	b.tagEnd(2)
	b.tagEnd(1)
	b.tagEnd(0)

	root, err := Decode(b.Bytes())
	require.NoError(t, err)

	require.Len(t, root.Children, 1)
	app := root.Children[0]
	assert.Equal(t, "application", app.Type)

	require.Len(t, app.Children, 1)
	activity := app.Children[0]
	assert.Equal(t, "activity", activity.Type)
	assert.Equal(t, map[string]string{"android:name": ".Main"}, activity.Attributes)
}

func TestDecodeTypedAttributes(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest", "versionCode", "debuggable", "installLocation")
	b.tagStart(0,
		testAttr{ns: sentinelNone, name: 1, raw: sentinelNone, dataType: typeIntDec, data: 42},
		testAttr{ns: sentinelNone, name: 2, raw: sentinelNone, dataType: typeIntBool, data: 5},
		testAttr{ns: sentinelNone, name: 3, raw: sentinelNone, dataType: typeIntHex, data: 255},
	)
	b.tagEnd(0)

	root, err := Decode(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"versionCode":     "42",
		"debuggable":      "true",
		"installLocation": "0xff",
	}, root.Attributes)
}

func TestDecodeIdempotent(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest", "application", "package", "com.example")
	b.tagStart(0, testAttr{ns: sentinelNone, name: 2, raw: 3, dataType: typeString, data: 3})
	b.tagStart(1)
	b.tagEnd(1)
	b.tagEnd(0)

	first, err := Decode(b.Bytes())
	require.NoError(t, err)

	second, err := Decode(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeSkipsNullChunks(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest")
	b.u16(chunkNull)
	b.tagStart(0)
	b.u16(chunkNull)
	b.tagEnd(0)

	root, err := Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "manifest", root.Type)
}

func TestDecodeSkipsResourceTableChunk(t *testing.T) {
	var b axmlBuf
	b.u16(chunkTable)
	b.u16(8)
	b.u32(16)
	b.u32(0xdeadbeef) // opaque payload
	b.u32(0xfeedface)
	b.utf16Pool("manifest")
	b.tagStart(0)
	b.tagEnd(0)

	root, err := Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "manifest", root.Type)
}

func TestDecodeFileChunkWrapper(t *testing.T) {
	var body axmlBuf
	body.utf16Pool("manifest")
	body.tagStart(0)
	body.tagEnd(0)

	var b axmlBuf
	b.u16(chunkAxmlFile)
	b.u16(8)
	b.u32(uint32(8 + body.Len()))
	b.Write(body.Bytes())

	root, err := Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "manifest", root.Type)
}

func TestDecodeUnknownChunkType(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest")
	b.u16(0x0666)
	b.u16(8)
	b.u32(8)

	_, err := Decode(b.Bytes())
	require.ErrorIs(t, err, ErrUnknownChunkType)
}

func TestDecodeStringIndexBeforePool(t *testing.T) {
	// A start element before any string pool chunk must fail on index
	// resolution, not silently default.
	var b axmlBuf
	b.tagStart(0)
	b.tagEnd(0)

	_, err := Decode(b.Bytes())
	require.ErrorIs(t, err, ErrStringIndexOutOfRange)
}

func TestDecodeUnresolvedNamespace(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest", "name", "value", testNsURI)
	b.tagStart(0, testAttr{ns: 3, name: 1, raw: 2, dataType: typeString, data: 2})
	b.tagEnd(0)

	_, err := Decode(b.Bytes())
	require.ErrorIs(t, err, ErrUnresolvedNamespace)
}

func TestDecodeUnbalancedEndElement(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest")
	b.tagStart(0)
	b.tagEnd(0)
	b.tagEnd(0)

	_, err := Decode(b.Bytes())
	require.ErrorIs(t, err, ErrUnbalancedElement)
}

func TestDecodeStartElementAfterRootClosed(t *testing.T) {
	// Closing the root is legal, but nothing may open after it.
	var b axmlBuf
	b.utf16Pool("manifest", "application")
	b.tagStart(0)
	b.tagEnd(0)
	b.tagStart(1)

	_, err := Decode(b.Bytes())
	require.ErrorIs(t, err, ErrUnbalancedElement)
}

func TestDecodeAttrNameFromResourceMap(t *testing.T) {
	// Name index 1 has no pool entry; the resource map entry at the same
	// index must supply the name instead.
	var b axmlBuf
	b.utf16Pool("manifest")
	b.resourceMap(0x01010000, 0x01010003) // theme, name
	b.tagStart(0, testAttr{ns: sentinelNone, name: 1, raw: sentinelNone, dataType: typeIntBool, data: 1})
	b.tagEnd(0)

	root, err := Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "true"}, root.Attributes)
}

func TestDecodeTruncatedInput(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest")
	b.tagStart(0)

	data := b.Bytes()
	_, err := Decode(data[:len(data)-10])
	require.ErrorIs(t, err, ErrTruncatedInput)
}

func TestDecodePlainTextManifest(t *testing.T) {
	plain := []string{
		`<?xml version="1.0" encoding="utf-8" standalone="no"?>`,
		`<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="com.example">`,
	}

	for _, man := range plain {
		_, err := Decode([]byte(man))
		require.ErrorIs(t, err, ErrPlainTextManifest)
	}
}

func TestDecodeReader(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest")
	b.tagStart(0)
	b.tagEnd(0)

	root, err := DecodeReader(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "manifest", root.Type)
}

func TestDecodeSecondPoolAppends(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest", "package")
	b.utf16Pool("com.example")
	b.tagStart(0, testAttr{ns: sentinelNone, name: 1, raw: 2, dataType: typeString, data: 2})
	b.tagEnd(0)

	root, err := Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "com.example", root.Attributes["package"])
}
