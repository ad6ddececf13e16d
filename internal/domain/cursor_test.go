package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCursor_RoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 500, time.UTC), ID: 42}
	s, err := EncodeCursor(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeCursor(s)
	if err != nil {
		t.Fatal(err)
	}
	if out.ID != in.ID || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("got %+v", out)
	}
}

func TestDecodeCursor(t *testing.T) {
	if c, err := DecodeCursor(""); c != nil || err != nil {
		t.Fatalf("empty cursor: %v %v", c, err)
	}
	for _, bad := range []string{"!!!", "bm90IGpzb24"} {
		_, err := DecodeCursor(bad)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: err = %v", bad, err)
		}
	}
}
