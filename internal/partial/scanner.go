// Package partial extracts a best-effort record from a JSON document that
// is still arriving.
package partial

import (
	"encoding/json"
	"slices"

	"go.uber.org/zap"

	"github.com/markis/gh-streamdoc/internal/record"
)

// Preview describes the section currently arriving, before its braces
// balance. It is a display hint only and never part of the record.
type Preview struct {
	Index  int      `json:"index"`
	Title  string   `json:"title,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// Result is what a scan could recover from the buffer.
type Result struct {
	Title    string
	HasTitle bool
	Sections []record.Section
	// Complete is true when the buffer parsed as a whole document.
	Complete bool
	// NewlyBalanced lists section indices that balanced for the first time.
	NewlyBalanced []int
	Pending       *Preview
}

// Scanner turns a growing buffer into a Result. It keeps the most complete
// version of every section it has seen, so a later scan never yields a
// section with fewer entries than an earlier one.
type Scanner struct {
	log      *zap.Logger
	sections []record.Section
	balanced int
}

// NewScanner returns an empty Scanner.
func NewScanner(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log}
}

// Scan inspects the whole buffer received so far. A full parse is tried
// first; when the buffer is not yet valid JSON the sections list is walked
// and every balanced section is decoded on its own.
func (s *Scanner) Scan(buf string) Result {
	if res, ok := s.scanFull(buf); ok {
		return res
	}
	return s.scanPartial(buf)
}

func (s *Scanner) scanFull(buf string) (Result, bool) {
	var doc struct {
		Title    json.RawMessage   `json:"title"`
		Sections []json.RawMessage `json:"sections"`
	}
	if err := record.UnmarshalLenient([]byte(buf), &doc); err != nil {
		return Result{}, false
	}

	res := Result{Complete: true}
	res.Title, res.HasTitle = record.ScalarText(doc.Title)
	for i, raw := range doc.Sections {
		if !s.absorb(i, raw, &res) {
			break
		}
	}
	res.Sections = slices.Clone(s.sections)
	return res, true
}

func (s *Scanner) scanPartial(buf string) Result {
	var res Result

	body, key, ok := locateSections(buf)
	head := buf
	if ok {
		head = buf[:key]
	}
	res.Title, res.HasTitle = ExtractTitle(head)
	if !ok {
		res.Sections = slices.Clone(s.sections)
		return res
	}

	list := scanObjects(buf[body:])
	for i, sp := range list.objects {
		if !s.absorb(i, []byte(buf[body+sp.start:body+sp.end]), &res) {
			break
		}
	}
	if list.open >= 0 {
		tail := buf[body+list.open:]
		p := &Preview{Index: len(list.objects), Labels: ExtractLabels(tail)}
		p.Title, _ = ExtractTitle(tail)
		res.Pending = p
	}
	res.Sections = slices.Clone(s.sections)
	return res
}

// absorb decodes the section at index i and merges it into the stored list.
// It returns false when the caller should stop: the section is malformed
// and no earlier version exists, so accepting later sections would leave a
// gap.
func (s *Scanner) absorb(i int, data []byte, res *Result) bool {
	sec, err := parseSection(data)
	if err != nil {
		s.log.Debug("skipping malformed section", zap.Int("index", i), zap.Error(err))
		return i < len(s.sections)
	}
	if i >= s.balanced {
		s.balanced = i + 1
		res.NewlyBalanced = append(res.NewlyBalanced, i)
	}
	switch {
	case i == len(s.sections):
		s.sections = append(s.sections, sec)
	case sec.Entries() >= s.sections[i].Entries():
		s.sections[i] = sec
	}
	return true
}
