// Package filter implements text search, field filters and ordering over an
// in-memory record set. Every function here is pure: inputs are never mutated
// and identical inputs always yield identical output.
package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// All is the filter value meaning "match everything".
const All = "all"

// Options holds the transient filter state. Empty strings and All leave a
// filter unset; a nil date bound is unconstrained.
type Options struct {
	Search     string
	Severity   string
	Status     string
	System     string
	AssignedTo string
	DateFrom   *time.Time
	DateTo     *time.Time
	Tags       []string
}

// SortKey selects the comparator used by Apply.
type SortKey string

const (
	SortTimestamp   SortKey = "timestamp"
	SortSeverity    SortKey = "severity"
	SortOccurrences SortKey = "occurrences"
)

// Direction flips the comparator sign.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseSortKey maps a query value to a SortKey. Empty selects SortTimestamp.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortTimestamp:
		return SortTimestamp, nil
	case SortSeverity:
		return SortSeverity, nil
	case SortOccurrences:
		return SortOccurrences, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseDirection maps a query value to a Direction. Empty selects Desc.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Desc:
		return Desc, nil
	case Asc:
		return Asc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// ParseSeverity normalizes a severity filter value. Empty and All pass
// through; anything else must name a known severity.
func ParseSeverity(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == All || models.Severity(v).Valid() {
		return v, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// ParseStatus normalizes a status filter value like ParseSeverity.
func ParseStatus(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == All || models.Status(v).Valid() {
		return v, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func set(v string) bool {
	return v != "" && v != All
}

// Active reports how many filter clauses are in effect.
func (o Options) Active() int {
	n := 0
	if strings.TrimSpace(o.Search) != "" {
		n++
	}
	for _, v := range []string{o.Severity, o.Status, o.System, o.AssignedTo} {
		if set(v) {
			n++
		}
	}
	if o.DateFrom != nil {
		n++
	}
	if o.DateTo != nil {
		n++
	}
	if len(o.Tags) > 0 {
		n++
	}
	return n
}

// matcher is Options prepared for repeated evaluation.
type matcher struct {
	opts   Options
	needle string
	folder cases.Caser
}

func newMatcher(opts Options) *matcher {
	m := &matcher{opts: opts, folder: cases.Fold()}
	if s := strings.TrimSpace(opts.Search); s != "" {
		m.needle = m.folder.String(s)
	}
	return m
}

func (m *matcher) match(r *models.ErrorRecord) bool {
	o := m.opts
	if m.needle != "" && !m.matchText(r) {
		return false
	}
	if set(o.Severity) && string(r.Severity) != o.Severity {
		return false
	}
	if set(o.Status) && string(r.Status) != o.Status {
		return false
	}
	if set(o.System) && r.System != o.System {
		return false
	}
	if set(o.AssignedTo) && (r.AssignedTo == nil || *r.AssignedTo != o.AssignedTo) {
		return false
	}
	if o.DateFrom != nil && r.Timestamp.Before(*o.DateFrom) {
		return false
	}
	if o.DateTo != nil && r.Timestamp.After(*o.DateTo) {
		return false
	}
	if len(o.Tags) > 0 && !r.HasTags(o.Tags) {
		return false
	}
	return true
}

func (m *matcher) matchText(r *models.ErrorRecord) bool {
	fields := [5]string{r.Title, r.Description, r.System, deref(r.ErrorCode), deref(r.Resolution)}
	for _, f := range fields {
		if f != "" && strings.Contains(m.folder.String(f), m.needle) {
			return true
		}
	}
	return false
}

// Match reports whether a single record satisfies every active clause.
func Match(r *models.ErrorRecord, opts Options) bool {
	return newMatcher(opts).match(r)
}

// Filter returns the records satisfying every active clause, in input order.
func Filter(records []models.ErrorRecord, opts Options) []models.ErrorRecord {
	m := newMatcher(opts)
	out := make([]models.ErrorRecord, 0, len(records))
	for i := range records {
		if m.match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// Sort returns a stably sorted copy of records. Ties keep their input order in
// both directions.
func Sort(records []models.ErrorRecord, key SortKey, dir Direction) []models.ErrorRecord {
	out := slices.Clone(records)
	if out == nil {
		out = []models.ErrorRecord{}
	}
	cmp := comparator(key)
	sign := 1
	if dir == Desc {
		sign = -1
	}
	slices.SortStableFunc(out, func(a, b models.ErrorRecord) int {
		return sign * cmp(&a, &b)
	})
	return out
}

// Apply filters then sorts.
func Apply(records []models.ErrorRecord, opts Options, key SortKey, dir Direction) []models.ErrorRecord {
	return Sort(Filter(records, opts), key, dir)
}

func comparator(key SortKey) func(a, b *models.ErrorRecord) int {
	switch key {
	case SortSeverity:
		return func(a, b *models.ErrorRecord) int {
			return a.Severity.Rank() - b.Severity.Rank()
		}
	case SortOccurrences:
		return func(a, b *models.ErrorRecord) int {
			return a.Occurrences - b.Occurrences
		}
	default:
		return func(a, b *models.ErrorRecord) int {
			return a.Timestamp.Compare(b.Timestamp)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
