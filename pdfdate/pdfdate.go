// Package pdfdate parses the PDF date string format used by signature
// dictionary fields such as M (the signing time).
package pdfdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// pattern matches D:YYYYMMDDHHmmSSOHH'mm' per PDF 32000-1 §7.9.4.
// All fields after the year are optional.
var pattern = regexp.MustCompile(
	`^D:(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?([-+Z])?(\d{2})?'?(\d{2})?'?$`,
)

// Parse parses a PDF date string into a UTC time.Time. It returns
// false, not an error, for a string that isn't a recognizable PDF
// date — per the signature dictionary parser's contract (spec §4.A),
// a malformed field is a default, not a failure.
func Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if !strings.HasPrefix(raw, "D:") {
		raw = "D:" + raw
	}

	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(m[1])
	month := atoiOr(m[2], 1)
	day := atoiOr(m[3], 1)
	hour := atoiOr(m[4], 0)
	minute := atoiOr(m[5], 0)
	second := atoiOr(m[6], 0)

	loc := time.UTC
	if m[7] != "" && m[7] != "Z" {
		offHour := atoiOr(m[8], 0)
		offMin := atoiOr(m[9], 0)
		offset := offHour*3600 + offMin*60
		if m[7] == "-" {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	return t.UTC(), true
}

// Format renders t in the PDF date string format, with an explicit
// UTC ("Z") zone designator.
func Format(t time.Time) string {
	u := t.UTC()
	return "D:" + u.Format("20060102150405") + "Z00'00'"
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
