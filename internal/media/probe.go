package media

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrNotMP4 = errors.New("not a valid MP4 file")

// ProbeMP4Duration reads the movie duration from the mvhd box of an MP4 (or
// MOV) file and returns it in whole seconds, rounded up. Only the top-level
// box walk and moov/mvhd are parsed; no track data is touched.
func ProbeMP4Duration(data []byte) (int, error) {
	moov, err := findBox(data, "moov")
	if err != nil {
		return 0, err
	}

	mvhd, err := findBox(moov, "mvhd")
	if err != nil {
		return 0, err
	}

	if len(mvhd) < 1 {
		return 0, fmt.Errorf("%w: truncated mvhd", ErrNotMP4)
	}

	version := mvhd[0]
	var timescale, duration uint64

	switch version {
	case 0:
		// version(1) flags(3) creation(4) modification(4) timescale(4) duration(4)
		if len(mvhd) < 20 {
			return 0, fmt.Errorf("%w: truncated mvhd v0", ErrNotMP4)
		}
		timescale = uint64(binary.BigEndian.Uint32(mvhd[12:16]))
		duration = uint64(binary.BigEndian.Uint32(mvhd[16:20]))
	case 1:
		// version(1) flags(3) creation(8) modification(8) timescale(4) duration(8)
		if len(mvhd) < 32 {
			return 0, fmt.Errorf("%w: truncated mvhd v1", ErrNotMP4)
		}
		timescale = uint64(binary.BigEndian.Uint32(mvhd[20:24]))
		duration = binary.BigEndian.Uint64(mvhd[24:32])
	default:
		return 0, fmt.Errorf("%w: unknown mvhd version %d", ErrNotMP4, version)
	}

	if timescale == 0 {
		return 0, fmt.Errorf("%w: zero timescale", ErrNotMP4)
	}

	seconds := (duration + timescale - 1) / timescale
	return int(seconds), nil
}

// findBox walks sibling boxes in data and returns the payload of the first
// box with the given type.
func findBox(data []byte, boxType string) ([]byte, error) {
	offset := 0
	for offset+8 <= len(data) {
		size := uint64(binary.BigEndian.Uint32(data[offset : offset+4]))
		typ := string(data[offset+4 : offset+8])
		headerLen := 8

		switch size {
		case 0:
			// Box extends to end of data.
			size = uint64(len(data) - offset)
		case 1:
			if offset+16 > len(data) {
				return nil, fmt.Errorf("%w: truncated 64-bit box header", ErrNotMP4)
			}
			size = binary.BigEndian.Uint64(data[offset+8 : offset+16])
			headerLen = 16
		}

		if size < uint64(headerLen) || uint64(offset)+size > uint64(len(data)) {
			return nil, fmt.Errorf("%w: box %q has invalid size %d", ErrNotMP4, typ, size)
		}

		if typ == boxType {
			return data[offset+headerLen : uint64(offset)+size], nil
		}
		offset += int(size)
	}
	return nil, fmt.Errorf("%w: box %q not found", ErrNotMP4, boxType)
}
