package pdfdate

import (
	"testing"
	"time"
)

func TestParseFullDate(t *testing.T) {
	got, ok := Parse("D:19990209153925-08'00'")
	if !ok {
		t.Fatal("expected a valid parse")
	}
	want := time.Date(1999, 2, 9, 23, 39, 25, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseUTCDate(t *testing.T) {
	got, ok := Parse("D:20230615120000Z")
	if !ok {
		t.Fatal("expected a valid parse")
	}
	want := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseYearOnly(t *testing.T) {
	got, ok := Parse("D:2023")
	if !ok {
		t.Fatal("expected a valid parse")
	}
	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseMalformedIsFalseNotError(t *testing.T) {
	if _, ok := Parse("not a date"); ok {
		t.Fatal("expected ok=false for a malformed date")
	}
	if _, ok := Parse(""); ok {
		t.Fatal("expected ok=false for an empty string")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	s := Format(in)
	got, ok := Parse(s)
	if !ok {
		t.Fatalf("Format produced an unparseable date: %q", s)
	}
	if !got.Equal(in) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, in)
	}
}
