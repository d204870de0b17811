package axml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteXML(t *testing.T) {
	root := &Element{
		Type: "manifest",
		Attributes: map[string]string{
			"package":             "com.example",
			"android:versionCode": "7",
		},
		Children: []*Element{
			{Type: "application", Attributes: map[string]string{"android:label": "App"}},
		},
	}

	var out bytes.Buffer
	require.NoError(t, root.WriteXML(&out))
	xml := out.String()

	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, xml, `xmlns:android="http://schemas.android.com/apk/res/android"`)
	assert.Contains(t, xml, `<application android:label="App">`)
	assert.Contains(t, xml, `</manifest>`)

	// Sorted attribute keys make the output deterministic.
	assert.Less(t, strings.Index(xml, "android:versionCode"), strings.Index(xml, "package="))
}

func TestWriteXMLNoAndroidNamespace(t *testing.T) {
	root := &Element{
		Type:       "config",
		Attributes: map[string]string{"version": "1"},
	}

	var out bytes.Buffer
	require.NoError(t, root.WriteXML(&out))
	assert.NotContains(t, out.String(), "xmlns:android")
}

func TestElementsByType(t *testing.T) {
	inner := &Element{Type: "item", Attributes: map[string]string{"pos": "inner"}}
	root := &Element{
		Type: "root",
		Children: []*Element{
			{Type: "item", Attributes: map[string]string{"pos": "first"}},
			{Type: "group", Children: []*Element{inner}},
			{Type: "item", Attributes: map[string]string{"pos": "last"}},
		},
	}

	items := root.ElementsByType("item")
	require.Len(t, items, 3)

	// Parents come before their children.
	assert.Equal(t, "first", items[0].Attributes["pos"])
	assert.Equal(t, "last", items[1].Attributes["pos"])
	assert.Equal(t, "inner", items[2].Attributes["pos"])

	assert.Empty(t, root.ElementsByType("missing"))
	assert.Len(t, root.ElementsByType("root"), 1)
}

func TestEncodeRoundTripThroughDecode(t *testing.T) {
	var b axmlBuf
	b.utf16Pool("manifest", "application", "package", "com.example", "android", testNsURI, "label", "App")
	b.nsStart(4, 5)
	b.tagStart(0, testAttr{ns: sentinelNone, name: 2, raw: 3, dataType: typeString, data: 3})
	b.tagStart(1, testAttr{ns: 5, name: 6, raw: 7, dataType: typeString, data: 7})
	b.tagEnd(1)
	b.tagEnd(0)

	root, err := Decode(b.Bytes())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, root.WriteXML(&out))

	xml := out.String()
	assert.Contains(t, xml, `package="com.example"`)
	assert.Contains(t, xml, `android:label="App"`)
	assert.Contains(t, xml, `xmlns:android=`)
}
