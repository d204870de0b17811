// Package axml decodes Android's compact binary XML format, the
// serialization used for AndroidManifest.xml and other resource-bound XML
// inside an app package, into an element tree.
package axml

import (
	"fmt"
	"io"
)

// Manifests are tiny; anything past this limit is hostile.
const maxManifestSize = 32 * 1024 * 1024

// ParseApk extracts AndroidManifest.xml from the APK at path and decodes it.
func ParseApk(path string) (*Element, error) {
	zip, err := OpenZip(path)
	if err != nil {
		return nil, err
	}
	defer zip.Close()

	return ParseApkWithZip(zip)
}

// ParseApkReader extracts AndroidManifest.xml from an already-opened APK and
// decodes it.
func ParseApkReader(r io.ReadSeeker) (*Element, error) {
	zip, err := OpenZipReader(r)
	if err != nil {
		return nil, err
	}
	defer zip.Close()

	return ParseApkWithZip(zip)
}

// ParseApkWithZip decodes the manifest from a zip opened with OpenZip
// before. Does not Close the zip.
func ParseApkWithZip(zip *ZipReader) (*Element, error) {
	manifest := zip.File["AndroidManifest.xml"]
	if manifest == nil {
		return nil, fmt.Errorf("failed to find AndroidManifest.xml")
	}

	data, err := manifest.ReadAll(maxManifestSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read AndroidManifest.xml: %w", err)
	}

	return Decode(data)
}
