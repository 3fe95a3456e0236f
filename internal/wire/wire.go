// Package wire frames cached entries for storage. The frame carries the
// capture timestamp ahead of the opaque codec payload so the janitor can
// age entries without decoding bodies.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const version byte = 1

var (
	ErrCorrupt  = errors.New("offcache: corrupt entry")
	ErrTooLarge = errors.New("offcache: payload exceeds frame limit")
	magic4      = [...]byte{'O', 'F', 'C', 'E'}
)

const hdrLen = 4 + 1 + 8 + 4 // magic | ver | capturedAt (unix ms, i64 be) | vlen (u32 be)

// maxPayload is the largest payload a frame can carry; vlen is a u32.
const maxPayload = 1<<32 - 1

func fitsFrame(n uint64) bool { return n <= maxPayload }

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames payload with the capture timestamp.
// Frame: magic(4) | ver(1) | capturedAt ms (i64 be) | vlen(u32 be) | payload(vlen)
func Encode(capturedAt time.Time, payload []byte) ([]byte, error) {
	if !fitsFrame(uint64(len(payload))) {
		return nil, ErrTooLarge
	}

	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(capturedAt.UnixMilli()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes(), nil
}

// Decode validates the frame strictly (trailing bytes are corruption) and
// returns the capture timestamp and the payload.
func Decode(b []byte) (capturedAt time.Time, payload []byte, err error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return time.Time{}, nil, ErrCorrupt
	}

	off := 5

	ms := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return time.Time{}, nil, ErrCorrupt
	}

	return time.UnixMilli(ms), b[off : off+vlen], nil
}

// CapturedAt reads only the frame header. Used by sweep paths that age
// entries without paying for payload decode.
func CapturedAt(b []byte) (time.Time, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return time.Time{}, ErrCorrupt
	}
	ms := int64(binary.BigEndian.Uint64(b[5:13]))
	return time.UnixMilli(ms), nil
}
