package wire

import (
	"bytes"
	"testing"
	"time"
)

func mustEncode(t *testing.T, at time.Time, payload []byte) []byte {
	t.Helper()
	b, err := Encode(at, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	at := time.Now().Truncate(time.Millisecond)
	payload := []byte("cached body bytes")

	b := mustEncode(t, at, payload)
	gotAt, gotPayload, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !gotAt.Equal(at) {
		t.Fatalf("capturedAt = %v, want %v", gotAt, at)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestEmptyPayload(t *testing.T) {
	b := mustEncode(t, time.Now(), nil)
	_, payload, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(payload) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(payload))
	}
}

// vlen is a u32; the encoder must refuse anything it cannot represent
// instead of truncating the length into a frame Decode would reject.
func TestFrameSizeBound(t *testing.T) {
	if !fitsFrame(maxPayload) {
		t.Fatalf("the limit itself must fit")
	}
	if fitsFrame(maxPayload + 1) {
		t.Fatalf("oversized payload accepted")
	}
}

// Decode must reject trailing bytes (strict framing).
func TestDecodeRejectsTrailing(t *testing.T) {
	b := mustEncode(t, time.Now(), []byte("x"))
	b = append(b, 0xDE, 0xAD)
	if _, _, err := Decode(b); err == nil {
		t.Fatalf("Decode should reject trailing bytes")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("short"),
		[]byte("not-a-frame-but-long-enough"),
	}
	for _, b := range cases {
		if _, _, err := Decode(b); err != ErrCorrupt {
			t.Fatalf("Decode(%q) = %v, want ErrCorrupt", b, err)
		}
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	b := mustEncode(t, time.Now(), []byte("x"))
	b[4] = 99
	if _, _, err := Decode(b); err != ErrCorrupt {
		t.Fatalf("wrong version accepted")
	}
}

// CapturedAt reads the header without needing a valid payload length match
// against a full decode pass.
func TestCapturedAtPeek(t *testing.T) {
	at := time.Now().Truncate(time.Millisecond)
	b := mustEncode(t, at, bytes.Repeat([]byte("v"), 1024))

	got, err := CapturedAt(b)
	if err != nil {
		t.Fatalf("CapturedAt: %v", err)
	}
	if !got.Equal(at) {
		t.Fatalf("CapturedAt = %v, want %v", got, at)
	}

	if _, err := CapturedAt([]byte("nope")); err != ErrCorrupt {
		t.Fatalf("CapturedAt on garbage should be ErrCorrupt")
	}
}
