package filter_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/errortracker/internal/filter"
	"github.com/kiranshivaraju/errortracker/pkg/models"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func rec(title string, mods ...func(*models.ErrorRecord)) models.ErrorRecord {
	r := models.ErrorRecord{
		ID:             uuid.New(),
		Title:          title,
		Description:    "desc " + title,
		Severity:       models.SeverityMedium,
		Status:         models.StatusOpen,
		System:         "api",
		Timestamp:      base,
		LastOccurrence: base,
		Tags:           []string{},
		Occurrences:    1,
	}
	for _, m := range mods {
		m(&r)
	}
	return r
}

func titles(records []models.ErrorRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

func TestFilter_Search(t *testing.T) {
	records := []models.ErrorRecord{
		rec("Database TIMEOUT"),
		rec("Null pointer", func(r *models.ErrorRecord) { r.ErrorCode = strPtr("E-TIMEOUT-1") }),
		rec("Disk full", func(r *models.ErrorRecord) { r.Resolution = strPtr("raised timeout limit") }),
		rec("Login failure", func(r *models.ErrorRecord) { r.System = "timeout-service" }),
		rec("Unrelated"),
	}

	got := filter.Filter(records, filter.Options{Search: "timeout"})
	assert.Equal(t, []string{"Database TIMEOUT", "Null pointer", "Disk full", "Login failure"}, titles(got))
}

func TestFilter_SearchMatchesDescription(t *testing.T) {
	records := []models.ErrorRecord{
		rec("A", func(r *models.ErrorRecord) { r.Description = "Échec de connexion" }),
		rec("B"),
	}

	got := filter.Filter(records, filter.Options{Search: "ÉCHEC DE"})
	assert.Equal(t, []string{"A"}, titles(got))
}

func TestFilter_EmptySearchMatchesAll(t *testing.T) {
	records := []models.ErrorRecord{rec("A"), rec("B")}
	assert.Len(t, filter.Filter(records, filter.Options{Search: "   "}), 2)
}

func TestFilter_UnsetValuesMatchAll(t *testing.T) {
	records := []models.ErrorRecord{
		rec("A", func(r *models.ErrorRecord) { r.Severity = models.SeverityLow }),
		rec("B", func(r *models.ErrorRecord) { r.AssignedTo = nil }),
	}

	got := filter.Filter(records, filter.Options{Severity: "all", Status: "", System: "all", AssignedTo: "all"})
	assert.Len(t, got, 2)
}

func TestFilter_FieldEquality(t *testing.T) {
	records := []models.ErrorRecord{
		rec("A", func(r *models.ErrorRecord) {
			r.Severity = models.SeverityCritical
			r.AssignedTo = strPtr("alice")
		}),
		rec("B", func(r *models.ErrorRecord) {
			r.Severity = models.SeverityCritical
			r.Status = models.StatusResolved
			r.AssignedTo = strPtr("alice")
		}),
		rec("C", func(r *models.ErrorRecord) { r.Severity = models.SeverityCritical }),
		rec("D", func(r *models.ErrorRecord) { r.System = "billing" }),
	}

	assert.Equal(t, []string{"A", "B", "C"}, titles(filter.Filter(records, filter.Options{Severity: "critical"})))
	assert.Equal(t, []string{"B"}, titles(filter.Filter(records, filter.Options{Status: "resolved"})))
	assert.Equal(t, []string{"D"}, titles(filter.Filter(records, filter.Options{System: "billing"})))
	assert.Equal(t, []string{"A", "B"}, titles(filter.Filter(records, filter.Options{AssignedTo: "alice"})))
	assert.Equal(t, []string{"A"}, titles(filter.Filter(records, filter.Options{
		Severity: "critical", Status: "open", AssignedTo: "alice",
	})))
}

func TestFilter_TagsSuperset(t *testing.T) {
	records := []models.ErrorRecord{
		rec("only-db", func(r *models.ErrorRecord) { r.Tags = []string{"db"} }),
		rec("all", func(r *models.ErrorRecord) { r.Tags = []string{"db", "timeout", "prod"} }),
		rec("none"),
	}

	got := filter.Filter(records, filter.Options{Tags: []string{"db", "timeout"}})
	assert.Equal(t, []string{"all"}, titles(got))
}

func TestFilter_DateRangeInclusive(t *testing.T) {
	from := base
	to := base.Add(48 * time.Hour)
	records := []models.ErrorRecord{
		rec("before", func(r *models.ErrorRecord) { r.Timestamp = from.Add(-time.Nanosecond) }),
		rec("at-from", func(r *models.ErrorRecord) { r.Timestamp = from }),
		rec("middle", func(r *models.ErrorRecord) { r.Timestamp = from.Add(time.Hour) }),
		rec("at-to", func(r *models.ErrorRecord) { r.Timestamp = to }),
		rec("after", func(r *models.ErrorRecord) { r.Timestamp = to.Add(time.Nanosecond) }),
	}

	got := filter.Filter(records, filter.Options{DateFrom: &from, DateTo: &to})
	assert.Equal(t, []string{"at-from", "middle", "at-to"}, titles(got))

	got = filter.Filter(records, filter.Options{DateFrom: &to})
	assert.Equal(t, []string{"at-to", "after"}, titles(got))
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	records := []models.ErrorRecord{rec("B"), rec("A")}
	before := titles(records)

	filter.Apply(records, filter.Options{Search: "a"}, filter.SortTimestamp, filter.Asc)
	assert.Equal(t, before, titles(records))
}

func TestSort_SeverityDescending(t *testing.T) {
	records := []models.ErrorRecord{
		rec("low", func(r *models.ErrorRecord) { r.Severity = models.SeverityLow }),
		rec("critical", func(r *models.ErrorRecord) { r.Severity = models.SeverityCritical }),
		rec("medium", func(r *models.ErrorRecord) { r.Severity = models.SeverityMedium }),
		rec("high", func(r *models.ErrorRecord) { r.Severity = models.SeverityHigh }),
	}

	got := filter.Sort(records, filter.SortSeverity, filter.Desc)
	assert.Equal(t, []string{"critical", "high", "medium", "low"}, titles(got))
}

func TestSort_Occurrences(t *testing.T) {
	records := []models.ErrorRecord{
		rec("five", func(r *models.ErrorRecord) { r.Occurrences = 5 }),
		rec("one", func(r *models.ErrorRecord) { r.Occurrences = 1 }),
		rec("three", func(r *models.ErrorRecord) { r.Occurrences = 3 }),
	}

	assert.Equal(t, []string{"one", "three", "five"}, titles(filter.Sort(records, filter.SortOccurrences, filter.Asc)))
	assert.Equal(t, []string{"five", "three", "one"}, titles(filter.Sort(records, filter.SortOccurrences, filter.Desc)))
}

func TestSort_Timestamp(t *testing.T) {
	records := []models.ErrorRecord{
		rec("mid", func(r *models.ErrorRecord) { r.Timestamp = base.Add(time.Hour) }),
		rec("old", func(r *models.ErrorRecord) { r.Timestamp = base }),
		rec("new", func(r *models.ErrorRecord) { r.Timestamp = base.Add(2 * time.Hour) }),
	}

	assert.Equal(t, []string{"new", "mid", "old"}, titles(filter.Sort(records, filter.SortTimestamp, filter.Desc)))
	assert.Equal(t, []string{"old", "mid", "new"}, titles(filter.Sort(records, filter.SortTimestamp, filter.Asc)))
}

func TestSort_StableInBothDirections(t *testing.T) {
	records := []models.ErrorRecord{
		rec("a1", func(r *models.ErrorRecord) { r.Severity = models.SeverityHigh }),
		rec("b1", func(r *models.ErrorRecord) { r.Severity = models.SeverityLow }),
		rec("a2", func(r *models.ErrorRecord) { r.Severity = models.SeverityHigh }),
		rec("b2", func(r *models.ErrorRecord) { r.Severity = models.SeverityLow }),
		rec("a3", func(r *models.ErrorRecord) { r.Severity = models.SeverityHigh }),
	}

	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2"}, titles(filter.Sort(records, filter.SortSeverity, filter.Desc)))
	assert.Equal(t, []string{"b1", "b2", "a1", "a2", "a3"}, titles(filter.Sort(records, filter.SortSeverity, filter.Asc)))
}

func TestSort_Empty(t *testing.T) {
	got := filter.Sort(nil, filter.SortTimestamp, filter.Desc)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// Every output record satisfies the filter, every matching input record appears
// exactly once, and repeated runs agree.
func TestApply_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	severities := models.Severities
	statuses := models.Statuses
	systems := []string{"api", "billing", "auth"}
	tagPool := []string{"db", "timeout", "prod", "ui"}

	records := make([]models.ErrorRecord, 200)
	for i := range records {
		records[i] = rec(systems[rng.Intn(3)]+"-"+uuid.NewString()[:4], func(r *models.ErrorRecord) {
			r.Severity = severities[rng.Intn(len(severities))]
			r.Status = statuses[rng.Intn(len(statuses))]
			r.System = systems[rng.Intn(len(systems))]
			r.Occurrences = 1 + rng.Intn(10)
			r.Timestamp = base.Add(time.Duration(rng.Intn(96)) * time.Hour)
			for _, tag := range tagPool {
				if rng.Intn(2) == 0 {
					r.Tags = append(r.Tags, tag)
				}
			}
		})
	}

	from := base.Add(24 * time.Hour)
	opts := filter.Options{Severity: "high", System: "api", DateFrom: &from, Tags: []string{"db"}}

	got := filter.Apply(records, opts, filter.SortOccurrences, filter.Desc)
	again := filter.Apply(records, opts, filter.SortOccurrences, filter.Desc)
	require.Equal(t, got, again)

	seen := map[uuid.UUID]int{}
	for i := range got {
		assert.True(t, filter.Match(&got[i], opts))
		seen[got[i].ID]++
	}
	for i := range records {
		if filter.Match(&records[i], opts) {
			assert.Equal(t, 1, seen[records[i].ID])
		} else {
			assert.Zero(t, seen[records[i].ID])
		}
	}
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Occurrences, got[i].Occurrences)
	}
}

func TestOptions_Active(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0, filter.Options{}.Active())
	assert.Equal(t, 0, filter.Options{Severity: "all", Status: "all", Search: "  "}.Active())
	assert.Equal(t, 4, filter.Options{
		Search:   "x",
		Severity: "low",
		DateTo:   &now,
		Tags:     []string{"db"},
	}.Active())
}

func TestParseSortKey(t *testing.T) {
	for in, want := range map[string]filter.SortKey{
		"":            filter.SortTimestamp,
		"timestamp":   filter.SortTimestamp,
		"Severity":    filter.SortSeverity,
		"occurrences": filter.SortOccurrences,
	} {
		got, err := filter.ParseSortKey(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := filter.ParseSortKey("title")
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	got, err := filter.ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, filter.Desc, got)

	got, err = filter.ParseDirection("ASC")
	require.NoError(t, err)
	assert.Equal(t, filter.Asc, got)

	_, err = filter.ParseDirection("sideways")
	assert.Error(t, err)
}

func TestParseSeverityAndStatus(t *testing.T) {
	for in, want := range map[string]string{"": "", "all": "all", " Critical ": "critical", "LOW": "low"} {
		got, err := filter.ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := filter.ParseSeverity("urgent")
	assert.ErrorContains(t, err, "unknown severity")

	got, err := filter.ParseStatus("Investigating")
	require.NoError(t, err)
	assert.Equal(t, "investigating", got)
	got, err = filter.ParseStatus("ALL")
	require.NoError(t, err)
	assert.Equal(t, filter.All, got)
	_, err = filter.ParseStatus("done")
	assert.ErrorContains(t, err, "unknown status")
}

func TestBuildFacets(t *testing.T) {
	records := []models.ErrorRecord{
		rec("A", func(r *models.ErrorRecord) {
			r.System = "billing"
			r.AssignedTo = strPtr("zoe")
			r.Tags = []string{"prod", "db"}
		}),
		rec("B", func(r *models.ErrorRecord) {
			r.AssignedTo = strPtr("adam")
			r.Tags = []string{"db"}
		}),
		rec("C"),
	}

	f := filter.BuildFacets(records)
	assert.Equal(t, []string{"api", "billing"}, f.Systems)
	assert.Equal(t, []string{"adam", "zoe"}, f.Assignees)
	assert.Equal(t, []string{"db", "prod"}, f.Tags)
}

func TestParseRange(t *testing.T) {
	lo, hi, err := filter.ParseRange("", "")
	require.NoError(t, err)
	assert.Nil(t, lo)
	assert.Nil(t, hi)

	lo, hi, err = filter.ParseRange("2024-03-01", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *lo)
	assert.Equal(t, time.Date(2024, 3, 1, 23, 59, 59, 999999999, time.UTC), *hi)

	lo, _, err = filter.ParseRange("2024-03-01T10:30:00+02:00", "")
	require.NoError(t, err)
	assert.True(t, lo.Equal(time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)))

	_, _, err = filter.ParseRange("yesterday", "")
	assert.ErrorContains(t, err, "date_from")
	_, _, err = filter.ParseRange("2024-03-05", "2024-03-01")
	assert.Error(t, err)
}
