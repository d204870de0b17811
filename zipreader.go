package axml

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path"

	"github.com/klauspost/compress/flate"
)

// ZipReader mimics Reader from archive/zip. Its purpose is to handle broken
// archives that Android still accepts but archive/zip rejects: it falls back
// to scanning the raw local file headers and inflating entries itself.
type ZipReader struct {
	File map[string]*ZipReaderFile

	reader    io.ReadSeeker
	ownedFile *os.File
}

// ZipReaderFile represents all entries sharing one name inside the archive.
// Crafted APKs may carry the same name several times; iterate them with
// Next.
type ZipReaderFile struct {
	Name string

	zipFile io.ReadSeeker

	zipEntry *zip.File

	entries  []zipEntry
	curEntry int

	reader io.Reader
	closer io.Closer
}

type zipEntry struct {
	offset int64
	size   int64 // compressed size, 0 when only a data descriptor carries it
	method uint16
}

// Open prepares the file for reading. Iterate the entries going by this name
// with for f.Next() { f.Read(...) }.
func (zf *ZipReaderFile) Open() error {
	if zf.reader != nil {
		return errors.New("file is already opened")
	}

	zf.curEntry = -1
	if zf.zipEntry != nil {
		rc, err := zf.zipEntry.Open()
		if err != nil {
			return err
		}
		zf.reader = rc
		zf.closer = rc
		zf.curEntry = 0
	}
	return nil
}

// Next moves to the next entry with this name. Returns false when none are
// left.
func (zf *ZipReaderFile) Next() bool {
	if zf.zipEntry != nil {
		zf.curEntry++
		return zf.curEntry == 1
	}

	zf.Close()

	if zf.curEntry+1 >= len(zf.entries) {
		return false
	}
	zf.curEntry++
	return true
}

func (zf *ZipReaderFile) Read(p []byte) (int, error) {
	if zf.reader == nil {
		if zf.curEntry < 0 || zf.curEntry >= len(zf.entries) {
			return 0, io.ErrUnexpectedEOF
		}

		entry := zf.entries[zf.curEntry]
		if _, err := zf.zipFile.Seek(entry.offset, io.SeekStart); err != nil {
			return 0, err
		}

		if entry.method == zip.Store {
			if entry.size > 0 {
				zf.reader = io.LimitReader(zf.zipFile, entry.size)
			} else {
				zf.reader = zf.zipFile
			}
		} else {
			// Android treats every non-zero method as deflate.
			rc := flate.NewReader(zf.zipFile)
			zf.reader = rc
			zf.closer = rc
		}
	}
	return zf.reader.Read(p)
}

// ReadAll opens the file and returns the first entry that can be fully read,
// up to limit bytes.
func (zf *ZipReaderFile) ReadAll(limit int64) ([]byte, error) {
	if err := zf.Open(); err != nil {
		return nil, err
	}
	defer zf.Close()

	var lastErr error
	for zf.Next() {
		data, err := io.ReadAll(io.LimitReader(zf, limit))
		if err == nil {
			return data, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = io.ErrUnexpectedEOF
	}
	return nil, lastErr
}

func (zf *ZipReaderFile) Close() error {
	if zf.closer != nil {
		zf.closer.Close()
	}
	zf.reader = nil
	zf.closer = nil
	return nil
}

// Close closes the archive and all of its opened entries.
func (zr *ZipReader) Close() error {
	if zr.reader == nil {
		return nil
	}

	for _, zf := range zr.File {
		zf.Close()
	}

	var err error
	if zr.ownedFile != nil {
		err = zr.ownedFile.Close()
		zr.ownedFile = nil
	}
	zr.reader = nil
	return err
}

// OpenZip opens the archive at path for reading.
func OpenZip(zipPath string) (*ZipReader, error) {
	f, err := os.Open(zipPath)
	if err != nil {
		return nil, err
	}

	zr, err := OpenZipReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	zr.ownedFile = f
	return zr, nil
}

// OpenZipReader opens an archive from an already-opened reader. May seek it
// to arbitrary positions.
func OpenZipReader(r io.ReadSeeker) (*ZipReader, error) {
	zr := &ZipReader{
		File:   make(map[string]*ZipReaderFile),
		reader: r,
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	if ra, ok := r.(io.ReaderAt); ok {
		if info, err := zip.NewReader(ra, size); err == nil {
			for _, entry := range info.File {
				name := path.Clean(entry.Name)
				if zr.File[name] == nil {
					zr.File[name] = &ZipReaderFile{
						Name:     name,
						zipFile:  r,
						zipEntry: entry,
					}
				}
			}
			return zr, nil
		}
	}

	// archive/zip could not make sense of it; walk the local file headers
	// directly like Android does.
	if err := zr.scanLocalHeaders(); err != nil {
		return nil, err
	}
	if len(zr.File) == 0 {
		return nil, zip.ErrFormat
	}
	return zr, nil
}

func (zr *ZipReader) scanLocalHeaders() error {
	if _, err := zr.reader.Seek(0, io.SeekStart); err != nil {
		return err
	}

	for {
		off, err := findNextFileHeader(zr.reader)
		if off < 0 || err != nil {
			return err
		}

		var method, nameLen, extraLen uint16
		var compSize uint32
		if _, err = zr.reader.Seek(off+8, io.SeekStart); err != nil {
			return err
		}
		if err = binary.Read(zr.reader, binary.LittleEndian, &method); err != nil {
			return err
		}

		if _, err = zr.reader.Seek(off+18, io.SeekStart); err != nil {
			return err
		}
		if err = binary.Read(zr.reader, binary.LittleEndian, &compSize); err != nil {
			return err
		}

		if _, err = zr.reader.Seek(off+26, io.SeekStart); err != nil {
			return err
		}
		if err = binary.Read(zr.reader, binary.LittleEndian, &nameLen); err != nil {
			return err
		}
		if err = binary.Read(zr.reader, binary.LittleEndian, &extraLen); err != nil {
			return err
		}

		nameBuf := make([]byte, nameLen)
		if _, err = zr.reader.Seek(off+30, io.SeekStart); err != nil {
			return err
		}
		if _, err = io.ReadFull(zr.reader, nameBuf); err != nil {
			return err
		}

		name := path.Clean(string(nameBuf))
		zf := zr.File[name]
		if zf == nil {
			zf = &ZipReaderFile{Name: name, zipFile: zr.reader, curEntry: -1}
			zr.File[name] = zf
		}

		// Later duplicates win, Android reads the archive back to front.
		zf.entries = append([]zipEntry{{
			offset: off + 30 + int64(nameLen) + int64(extraLen),
			size:   int64(compSize),
			method: method,
		}}, zf.entries...)

		if _, err = zr.reader.Seek(off+4, io.SeekStart); err != nil {
			return err
		}
	}
}

var localFileHeaderMagic = []byte{0x50, 0x4B, 0x03, 0x04}

func findNextFileHeader(r io.ReadSeeker) (int64, error) {
	offset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, err
	}

	buf := make([]byte, 64*1024)
	matched := 0

	for {
		n, err := r.Read(buf)
		if err != nil && err != io.EOF {
			return -1, err
		}
		if n == 0 {
			return -1, nil
		}

		for i := 0; i < n; i++ {
			if buf[i] != localFileHeaderMagic[matched] {
				matched = 0
				continue
			}
			matched++
			if matched == len(localFileHeaderMagic) {
				return offset + int64(i) - int64(len(localFileHeaderMagic)-1), nil
			}
		}
		offset += int64(n)
	}
}
