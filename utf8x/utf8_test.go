package utf8x

import (
	"bytes"
	"testing"
)

func TestDecodeASCII(t *testing.T) {
	r, size := Decode([]byte("A"))
	if r != 'A' || size != 1 {
		t.Fatalf("Decode(A) = %q, %d, want 'A', 1", r, size)
	}
}

func TestDecodeMultiByte(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		r    rune
		size int
	}{
		{"2-byte", []byte("é"), 'é', 2},
		{"3-byte", []byte("▁"), '▁', 3},
		{"4-byte", []byte("\U0001F600"), '\U0001F600', 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, size := Decode(c.in)
			if r != c.r || size != c.size {
				t.Fatalf("Decode(%x) = %U, %d, want %U, %d", c.in, r, size, c.r, c.size)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
	}{
		{"lone continuation", []byte{0x80}},
		{"overlong 2-byte", []byte{0xC0, 0x80}},
		{"overlong 3-byte", []byte{0xE0, 0x80, 0x80}},
		{"surrogate", []byte{0xED, 0xA0, 0x80}},
		{"above U+10FFFF", []byte{0xF4, 0x90, 0x80, 0x80}},
		{"truncated 3-byte", []byte{0xE2, 0x98}},
		{"invalid lead 0xFF", []byte{0xFF}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, size := Decode(c.in)
			if r != RuneError || size != 1 {
				t.Fatalf("Decode(%x) = %U, %d, want RuneError, 1", c.in, r, size)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	runes := []rune{0x00, 0x41, 0x7F, 0x80, 0x7FF, 0x800, 0xFFFF, 0x10000, 0x10FFFF}
	for _, r := range runes {
		b := Encode(r)
		got, size := Decode(b)
		if got != r || size != len(b) {
			t.Errorf("round trip %U: got %U size %d, want size %d", r, got, size, len(b))
		}
	}
}

func TestEncodeClampsSurrogateAndOutOfRange(t *testing.T) {
	for _, r := range []rune{0xD800, 0xDFFF, 0x110000, -1} {
		b := Encode(r)
		if !bytes.Equal(b, Encode(RuneError)) {
			t.Errorf("Encode(%U) = %x, want clamp to RuneError", r, b)
		}
	}
}

func TestCharLen(t *testing.T) {
	cases := []struct {
		lead byte
		want int
	}{
		{0x41, 1}, {0xC2, 2}, {0xE2, 3}, {0xF0, 4}, {0x80, 0}, {0xFF, 0},
	}
	for _, c := range cases {
		if got := CharLen(c.lead); got != c.want {
			t.Errorf("CharLen(%#x) = %d, want %d", c.lead, got, c.want)
		}
	}
}

func TestIsStructurallyValid(t *testing.T) {
	if !IsStructurallyValid([]byte("hello ▁ world \U0001F600")) {
		t.Error("expected valid UTF-8 to be structurally valid")
	}
	if IsStructurallyValid([]byte{0x68, 0x80, 0x69}) {
		t.Error("expected lone continuation byte to be invalid")
	}
}

func TestCount(t *testing.T) {
	if n := Count([]byte("ab▁c")); n != 4 {
		t.Errorf("Count = %d, want 4", n)
	}
}
