package filter

import (
	"slices"

	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// Facets lists the distinct values the filter bar offers for selection.
type Facets struct {
	Systems   []string `json:"systems"`
	Assignees []string `json:"assignees"`
	Tags      []string `json:"tags"`
}

// BuildFacets collects distinct, sorted systems, assignees and tags.
func BuildFacets(records []models.ErrorRecord) Facets {
	systems := map[string]struct{}{}
	assignees := map[string]struct{}{}
	tags := map[string]struct{}{}

	for i := range records {
		r := &records[i]
		if r.System != "" {
			systems[r.System] = struct{}{}
		}
		if r.AssignedTo != nil && *r.AssignedTo != "" {
			assignees[*r.AssignedTo] = struct{}{}
		}
		for _, t := range r.Tags {
			tags[t] = struct{}{}
		}
	}

	return Facets{
		Systems:   sortedKeys(systems),
		Assignees: sortedKeys(assignees),
		Tags:      sortedKeys(tags),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
