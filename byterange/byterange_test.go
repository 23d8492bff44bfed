package byterange

import (
	"bytes"
	"testing"

	"github.com/sigverify/pdfcore/sigfield"
)

func buildFile(prefix string, contentsHex string, suffix string) []byte {
	var buf bytes.Buffer
	buf.WriteString(prefix)
	buf.WriteByte('<')
	buf.WriteString(contentsHex)
	buf.WriteByte('>')
	buf.WriteString(suffix)
	return buf.Bytes()
}

// rangesAroundGap returns the two byte ranges that cover everything in
// file except the hex-contents window itself, delimiters included,
// using the trailer length to bound the second range.
func rangesAroundGap(file []byte, trailerLen int) []sigfield.ByteRange {
	gapStart := int64(bytes.IndexByte(file, '<'))
	gapEnd := int64(bytes.IndexByte(file, '>'))
	fileLenWithoutTrailer := int64(len(file)) - int64(trailerLen)
	return []sigfield.ByteRange{
		{Offset: 0, Length: gapStart + 1},
		{Offset: gapEnd, Length: fileLenWithoutTrailer - gapEnd},
	}
}

func TestAssembleFullCoverageNoWarning(t *testing.T) {
	contents := []byte{0xDE, 0xAD}
	hex := lowerHex(contents)
	file := buildFile("prefix-", hex, "-suffix")

	sig := &sigfield.Signature{
		Contents:   contents,
		ByteRanges: rangesAroundGap(file, 0),
	}

	result, err := Assemble(file, sig)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !result.CoverageReport.IsComplete {
		t.Errorf("expected complete coverage, uncovered=%d", result.CoverageReport.UncoveredByteCount)
	}
	if result.CoverageReport.UncoveredByteCount != 0 {
		t.Errorf("UncoveredByteCount = %d, want 0", result.CoverageReport.UncoveredByteCount)
	}
}

func TestAssembleTrailingBlockProducesWarningCount(t *testing.T) {
	contents := []byte{0xBE, 0xEF}
	hex := lowerHex(contents)
	base := buildFile("prefix-", hex, "-suffix")
	file := append(base, bytes.Repeat([]byte{'X'}, 10)...)

	sig := &sigfield.Signature{
		Contents:   contents,
		ByteRanges: rangesAroundGap(file, 10),
	}

	result, err := Assemble(file, sig)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if result.CoverageReport.IsComplete {
		t.Error("expected incomplete coverage due to trailing block")
	}
	if result.CoverageReport.UncoveredByteCount != 10 {
		t.Errorf("UncoveredByteCount = %d, want 10", result.CoverageReport.UncoveredByteCount)
	}
}

func TestAssembleOutOfBoundsRangeFails(t *testing.T) {
	file := []byte("short file")
	sig := &sigfield.Signature{
		ByteRanges: []sigfield.ByteRange{
			{Offset: 0, Length: int64(len(file)) + 100},
		},
	}

	_, err := Assemble(file, sig)
	if err != ErrRangeOutOfBounds {
		t.Fatalf("err = %v, want ErrRangeOutOfBounds", err)
	}
}

func TestAssembleNegativeOffsetFails(t *testing.T) {
	file := []byte("short file")
	sig := &sigfield.Signature{
		ByteRanges: []sigfield.ByteRange{{Offset: -1, Length: 5}},
	}

	_, err := Assemble(file, sig)
	if err != ErrRangeOutOfBounds {
		t.Fatalf("err = %v, want ErrRangeOutOfBounds", err)
	}
}

func TestAssembleZeroLengthRangeSkipped(t *testing.T) {
	file := []byte("0123456789")
	sig := &sigfield.Signature{
		ByteRanges: []sigfield.ByteRange{
			{Offset: 2, Length: 0},
			{Offset: 0, Length: 4},
		},
	}

	result, err := Assemble(file, sig)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !bytes.Equal(result.SignedBytes, []byte("0123")) {
		t.Errorf("SignedBytes = %q, want %q", result.SignedBytes, "0123")
	}
}

func TestLocateContentsHexUppercaseRetry(t *testing.T) {
	contents := []byte{0xAB, 0xCD}
	hex := upperHex(contents)
	file := buildFile("x", hex, "y")

	iv, ok := locateContentsHex(file, contents)
	if !ok {
		t.Fatal("expected uppercase hex to be located")
	}
	if file[iv.start] != '<' || file[iv.end] != '>' {
		t.Errorf("interval does not cover delimiters: %q", file[iv.start:iv.end+1])
	}
}
