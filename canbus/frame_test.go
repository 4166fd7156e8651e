package canbus

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrameValidate(t *testing.T) {
	cases := []struct {
		name    string
		frame   Frame
		wantErr error
	}{
		{"standard max id", Frame{ID: 0x7FF}, nil},
		{"standard id overflow", Frame{ID: 0x800}, ErrInvalidID},
		{"extended max id", Frame{ID: 0x1FFFFFFF, Extended: true}, nil},
		{"extended id overflow", Frame{ID: 0x20000000, Extended: true}, ErrInvalidID},
		{"length overflow", Frame{ID: 0x123, Len: 9}, ErrInvalidLen},
	}
	for _, tc := range cases {
		if got := tc.frame.Validate(); got != tc.wantErr {
			t.Fatalf("%s: Validate() = %v, want %v", tc.name, got, tc.wantErr)
		}
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	if _, err := New(false, false, 0x800, nil); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("standard overflow: got %v", err)
	}
	if _, err := New(true, false, 0x20000000, nil); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("extended overflow: got %v", err)
	}
	if _, err := New(false, false, 0x123, make([]byte, 9)); !errors.Is(err, ErrInvalidLen) {
		t.Fatalf("long payload: got %v", err)
	}
}

func TestMustFramePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustFrame should panic for len>8")
		}
	}()
	_ = MustFrame(0x123, make([]byte, 9))
}

func TestWireLayoutExtended(t *testing.T) {
	f := MustFrame(0x18FF0001, []byte{2, 0, 0, 0, 42})
	b, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := []byte{
		0x85,                   // EXT | len 5
		0x18, 0xFF, 0x00, 0x01, // identifier, big-endian
		0x02, 0x00, 0x00, 0x00, 0x2A, // payload
		0x00, 0x00, 0x00, // zero padding
	}
	if !bytes.Equal(b, want) {
		t.Fatalf("wire mismatch:\n got %X\nwant %X", b, want)
	}
}

func TestWireLayoutStandard(t *testing.T) {
	f := MustFrame(0x123, []byte{0xDE, 0xAD})
	b, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := []byte{
		0x02,                   // len 2
		0x00, 0x00, 0x01, 0x23, // top two identifier bytes zero
		0xDE, 0xAD, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(b, want) {
		t.Fatalf("wire mismatch:\n got %X\nwant %X", b, want)
	}
}

func TestWireRoundTrip(t *testing.T) {
	cases := []Frame{
		MustFrame(0x123, []byte{0xDE, 0xAD}),
		MustFrame(0x18FF0001, []byte{2, 0, 0, 0, 42}),
		MustFrame(0x7FF, nil),
		MustFrame(0x1FFFFFFF, []byte{1, 2, 3, 4, 5, 6, 7, 8}),
		{ID: 0x1ABCDEFF, Extended: true, RTR: true, Len: 0},
		{ID: 0x100, Len: 1, Data: [8]byte{0x01}},
	}
	for _, f := range cases {
		b, err := f.MarshalBinary()
		if err != nil {
			t.Fatalf("%v: marshal: %v", f, err)
		}
		if len(b) != WireSize {
			t.Fatalf("%v: wire length %d, want %d", f, len(b), WireSize)
		}
		var g Frame
		if err := g.UnmarshalBinary(b); err != nil {
			t.Fatalf("%v: unmarshal: %v", f, err)
		}
		if g != f {
			t.Fatalf("roundtrip mismatch: got %+v want %+v", g, f)
		}
	}
}

func TestWireFullPayloadRoundTrip(t *testing.T) {
	f := MustFrame(0x321, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	b, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if b[0]&0x0F != 8 {
		t.Fatalf("declared length %d, want 8", b[0]&0x0F)
	}
	var g Frame
	if err := g.UnmarshalBinary(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Len != 8 || g != f {
		t.Fatalf("full payload mismatch: got %+v want %+v", g, f)
	}
}

func TestWirePaddingNotPreserved(t *testing.T) {
	// Bytes beyond the declared length are padding, not payload.
	f := MustFrame(0x123, []byte{0xAA, 0xBB})
	f.Data[5] = 0xFF
	b, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, pad := range b[7:] {
		if pad != 0 {
			t.Fatalf("padding leaked payload bytes: % X", b)
		}
	}
	var g Frame
	if err := g.UnmarshalBinary(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Data[5] != 0 {
		t.Fatalf("data beyond declared length survived roundtrip: %+v", g)
	}
}

func TestWireDecodeErrors(t *testing.T) {
	var f Frame
	if err := f.UnmarshalBinary(make([]byte, 12)); !errors.Is(err, ErrWireLength) {
		t.Fatalf("short input: got %v", err)
	}
	if err := f.UnmarshalBinary(make([]byte, 14)); !errors.Is(err, ErrWireLength) {
		t.Fatalf("long input: got %v", err)
	}

	// Declared lengths 9..15 fit the nibble but are rejected, not clamped.
	for length := byte(9); length <= 15; length++ {
		raw := make([]byte, WireSize)
		raw[0] = length
		if err := f.UnmarshalBinary(raw); !errors.Is(err, ErrWireDataLen) {
			t.Fatalf("length nibble %d: got %v", length, err)
		}
	}

	// An extended identifier above 29 bits fails validation on decode.
	raw := make([]byte, WireSize)
	raw[0] = 0x80
	raw[1], raw[2], raw[3], raw[4] = 0xFF, 0xFF, 0xFF, 0xFF
	if err := f.UnmarshalBinary(raw); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("oversized identifier: got %v", err)
	}
}

func TestWireDecodeDoesNotMutateOnError(t *testing.T) {
	f := MustFrame(0x123, []byte{1})
	if err := f.UnmarshalBinary(make([]byte, 3)); err == nil {
		t.Fatalf("expected error")
	}
	if f != MustFrame(0x123, []byte{1}) {
		t.Fatalf("frame mutated on failed decode: %+v", f)
	}
}

func TestFrameString(t *testing.T) {
	if got := MustFrame(0x123, []byte{0xDE, 0xAD}).String(); got != "123 [2] DE AD" {
		t.Fatalf("String() = %q", got)
	}
	ext := Frame{ID: 0x1ABCDEFF, Extended: true, RTR: true, Len: 0}
	if got := ext.String(); got != "1ABCDEFF [0] RTR" {
		t.Fatalf("String() = %q", got)
	}
}
