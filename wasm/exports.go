package wasm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Parsing errors returned by ReadExports.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// Export is one entry of a module's export section.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// ReadExports returns the export section of a binary module in declaration
// order. Other sections are skipped without validation.
func ReadExports(data []byte) ([]Export, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("header: %w", io.ErrUnexpectedEOF)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(data[4:8]) != Version {
		return nil, ErrInvalidVersion
	}

	r := bytes.NewReader(data[8:])
	for {
		id, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("section header: %w", err)
		}
		size, err := ReadU32(r)
		if err != nil {
			return nil, fmt.Errorf("section size: %w", err)
		}
		if int64(size) > int64(r.Len()) {
			return nil, fmt.Errorf("section %d: %w", id, io.ErrUnexpectedEOF)
		}

		if id != SectionExport {
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return nil, err
			}
			continue
		}

		section := make([]byte, size)
		if _, err := io.ReadFull(r, section); err != nil {
			return nil, fmt.Errorf("export section: %w", err)
		}
		exports, err := parseExportSection(bytes.NewReader(section))
		if err != nil {
			return nil, fmt.Errorf("export section: %w", err)
		}
		return exports, nil
	}
}

func parseExportSection(r *bytes.Reader) ([]Export, error) {
	count, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	if int(count) > r.Len() {
		return nil, fmt.Errorf("export count %d exceeds section size", count)
	}

	exports := make([]Export, count)
	for i := range exports {
		n, err := ReadU32(r)
		if err != nil {
			return nil, err
		}
		if int(n) > r.Len() {
			return nil, io.ErrUnexpectedEOF
		}
		name := make([]byte, n)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if kind > KindTag {
			return nil, fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := ReadU32(r)
		if err != nil {
			return nil, err
		}
		exports[i] = Export{Name: string(name), Kind: kind, Index: idx}
	}
	return exports, nil
}
