package quota

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/placeskit/pkg/errors"
)

// DefaultHeader is written to a tracker file that has no header yet.
const DefaultHeader = "Date\tCount"

// Entry is one day's request count.
type Entry struct {
	Date  string // YYYYMMDD
	Count int
}

func (e Entry) String() string {
	return fmt.Sprintf("%s\t%d", e.Date, e.Count)
}

// record is the in-memory form of a tracker file. Data lines are kept as raw
// text so that everything before the last entry is written back unchanged.
type record struct {
	header string
	lines  []string
}

func parseRecord(data []byte) record {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if text == "" {
		return record{header: DefaultHeader}
	}
	parts := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	rec := record{header: parts[0], lines: parts[1:]}
	// Trailing blank lines are not entries.
	for len(rec.lines) > 0 && strings.TrimSpace(rec.lines[len(rec.lines)-1]) == "" {
		rec.lines = rec.lines[:len(rec.lines)-1]
	}
	return rec
}

// last returns the final entry, or ok=false when the file has no entries.
func (r record) last() (Entry, bool, error) {
	if len(r.lines) == 0 {
		return Entry{}, false, nil
	}
	e, err := parseEntry(r.lines[len(r.lines)-1], len(r.lines)+1)
	return e, err == nil, err
}

// increment bumps the count for day, appending a new entry if the last one
// belongs to another day. Returns the new count.
func (r *record) increment(day string) (int, error) {
	last, ok, err := r.last()
	if err != nil {
		return 0, err
	}
	if ok && last.Date == day {
		last.Count++
		r.lines[len(r.lines)-1] = last.String()
		return last.Count, nil
	}
	r.lines = append(r.lines, Entry{Date: day, Count: 1}.String())
	return 1, nil
}

func (r record) entries() ([]Entry, error) {
	out := make([]Entry, 0, len(r.lines))
	for i, line := range r.lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := parseEntry(line, i+2)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r record) bytes() []byte {
	var b strings.Builder
	b.WriteString(r.header)
	b.WriteByte('\n')
	for _, line := range r.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// parseEntry parses a "YYYYMMDD\tcount" line. lineNo is 1-based and only
// used in error messages.
func parseEntry(line string, lineNo int) (Entry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 2 {
		return Entry{}, errors.New(errors.ErrCodeParse, "line %d: expected 2 tab-separated fields, got %d", lineNo, len(fields))
	}
	n, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeParse, err, "line %d: invalid count %q", lineNo, fields[1])
	}
	return Entry{Date: strings.TrimSpace(fields[0]), Count: n}, nil
}
