package axml

import (
	"encoding/xml"
	"io"
	"sort"
	"strings"
)

// AndroidNamespaceURI is the namespace every android: qualified attribute
// belongs to.
const AndroidNamespaceURI = "http://schemas.android.com/apk/res/android"

// Element is one node of the reconstructed XML tree. Children are owned by
// their parent; the tree has a single root. An element is only mutated while
// its start element chunk is being decoded and is frozen once the matching
// end element chunk is consumed.
type Element struct {
	// Element type, e.g. "activity" or "service".
	Type string

	// Attribute keys are namespace-qualified ("android:name") when the
	// attribute declared a namespace, bare otherwise.
	Attributes map[string]string

	Children []*Element
}

// ManifestEncoder expects an XML encoder instance, like Encoder from the
// encoding/xml package.
type ManifestEncoder interface {
	EncodeToken(t xml.Token) error
	Flush() error
}

// Encode replays the tree as a token stream. Attributes are emitted in
// sorted key order so the output is deterministic.
func (e *Element) Encode(enc ManifestEncoder) error {
	if err := e.encodeElement(enc, true); err != nil {
		return err
	}
	return enc.Flush()
}

func (e *Element) encodeElement(enc ManifestEncoder, isRoot bool) error {
	tok := xml.StartElement{Name: xml.Name{Local: e.Type}}

	if isRoot && e.usesAndroidNamespace() {
		tok.Attr = append(tok.Attr, xml.Attr{
			Name:  xml.Name{Local: "xmlns:android"},
			Value: AndroidNamespaceURI,
		})
	}

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		tok.Attr = append(tok.Attr, xml.Attr{
			Name:  xml.Name{Local: k},
			Value: e.Attributes[k],
		})
	}

	if err := enc.EncodeToken(tok); err != nil {
		return err
	}

	for _, child := range e.Children {
		if err := child.encodeElement(enc, false); err != nil {
			return err
		}
	}

	return enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: e.Type}})
}

func (e *Element) usesAndroidNamespace() bool {
	for k := range e.Attributes {
		if strings.HasPrefix(k, "android:") {
			return true
		}
	}
	for _, child := range e.Children {
		if child.usesAndroidNamespace() {
			return true
		}
	}
	return false
}

// WriteXML writes the tree as indented XML with the usual declaration.
func (e *Element) WriteXML(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")

	if err := enc.EncodeToken(xml.ProcInst{
		Target: "xml",
		Inst:   []byte(`version="1.0" encoding="utf-8"`),
	}); err != nil {
		return err
	}

	return e.Encode(enc)
}

// ElementsByType walks the tree and collects every element of the given
// type, parents before their children.
func (e *Element) ElementsByType(elementType string) []*Element {
	var result []*Element

	queue := []*Element{e}
	for len(queue) != 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.Type == elementType {
			result = append(result, cur)
		}
		queue = append(queue, cur.Children...)
	}

	return result
}
