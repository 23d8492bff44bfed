// Package byterange implements component D, the byte-range assembler:
// given a signature's declared byte ranges and the raw file bytes, it
// reconstructs the signed-content buffer and reports how much of the
// file those ranges actually cover. Conceptually this package inverts
// the byte-range placeholder logic a PDF signer writes at signing
// time (see the teacher's sign/signers/pdf_byterange.go), reading the
// same layout back instead of producing it.
package byterange

import (
	"bytes"
	"errors"
	"sort"

	"github.com/sigverify/pdfcore/sigfield"
)

// ErrRangeOutOfBounds is returned when a byte range falls outside the
// file, the hard failure spec §4.D distinguishes from the soft
// "uncovered bytes" warning.
var ErrRangeOutOfBounds = errors.New("byterange: signature byte range exceeds file bounds")

// CoverageReport summarizes how completely the signed byte ranges
// cover the file they were read from.
type CoverageReport struct {
	TotalLength        int64
	IsComplete         bool
	UncoveredByteCount int64
}

// Assembled is the result of Assemble: the concatenated signed bytes
// plus a coverage report.
type Assembled struct {
	SignedBytes    []byte
	CoverageReport CoverageReport
}

type interval struct {
	start, end int64 // inclusive
}

// Assemble validates sig's byte ranges against file, concatenates the
// covered regions in order, and computes a coverage report that also
// accounts for the /Contents hex window itself.
func Assemble(file []byte, sig *sigfield.Signature) (*Assembled, error) {
	var signed bytes.Buffer
	var intervals []interval

	for _, br := range sig.ByteRanges {
		if br.Length == 0 {
			continue
		}
		if br.Offset < 0 || br.Offset+br.Length > int64(len(file)) {
			return nil, ErrRangeOutOfBounds
		}
		signed.Write(file[br.Offset : br.Offset+br.Length])
		intervals = append(intervals, interval{start: br.Offset, end: br.Offset + br.Length - 1})
	}

	if hexInterval, ok := locateContentsHex(file, sig.Contents); ok {
		intervals = append(intervals, hexInterval)
	}

	total := int64(len(file))
	covered := mergedCoverage(intervals)
	uncovered := total - covered

	return &Assembled{
		SignedBytes: signed.Bytes(),
		CoverageReport: CoverageReport{
			TotalLength:        total,
			IsComplete:         uncovered == 0,
			UncoveredByteCount: uncovered,
		},
	}, nil
}

// locateContentsHex finds contents' hex encoding in file, trying an
// exact-case match first and then an upper-case retry, since PDF
// writers are inconsistent about hex-string letter case. If the match
// is immediately bracketed by '<' and '>' (the PDF hex-string
// delimiters), the interval is extended by one byte on each side to
// cover them too.
func locateContentsHex(file []byte, contents []byte) (interval, bool) {
	if len(contents) == 0 {
		return interval{}, false
	}

	lower := []byte(lowerHex(contents))
	idx := bytes.Index(file, lower)
	if idx < 0 {
		upper := []byte(upperHex(contents))
		idx = bytes.Index(file, upper)
		if idx < 0 {
			return interval{}, false
		}
		lower = upper
	}

	start := int64(idx)
	end := start + int64(len(lower)) - 1

	if start > 0 && file[start-1] == '<' {
		start--
	}
	if end+1 < int64(len(file)) && file[end+1] == '>' {
		end++
	}
	return interval{start: start, end: end}, true
}

func lowerHex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0F]
	}
	return string(out)
}

func upperHex(b []byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0F]
	}
	return string(out)
}

// mergedCoverage sorts and merges overlapping/adjacent intervals and
// returns the total number of bytes they cover.
func mergedCoverage(intervals []interval) int64 {
	if len(intervals) == 0 {
		return 0
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })

	var total int64
	cur := intervals[0]
	for _, next := range intervals[1:] {
		if next.start > cur.end+1 {
			total += cur.end - cur.start + 1
			cur = next
			continue
		}
		if next.end > cur.end {
			cur.end = next.end
		}
	}
	total += cur.end - cur.start + 1
	return total
}
