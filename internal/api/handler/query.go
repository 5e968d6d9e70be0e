package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/kiranshivaraju/errortracker/internal/filter"
	"github.com/kiranshivaraju/errortracker/internal/form"
)

type listQuery struct {
	Options filter.Options
	Sort    filter.SortKey
	Order   filter.Direction
}

// parseListQuery reads filter and sort parameters.
func parseListQuery(r *http.Request) (listQuery, error) {
	v := r.URL.Query()

	opts, err := parseFilterOptions(v)
	if err != nil {
		return listQuery{}, err
	}

	sortKey, err := filter.ParseSortKey(v.Get("sort"))
	if err != nil {
		return listQuery{}, err
	}
	order, err := filter.ParseDirection(v.Get("order"))
	if err != nil {
		return listQuery{}, err
	}

	return listQuery{Options: opts, Sort: sortKey, Order: order}, nil
}

func parseFilterOptions(v url.Values) (filter.Options, error) {
	from, to, err := filter.ParseRange(v.Get("date_from"), v.Get("date_to"))
	if err != nil {
		return filter.Options{}, err
	}
	severity, err := filter.ParseSeverity(v.Get("severity"))
	if err != nil {
		return filter.Options{}, err
	}
	status, err := filter.ParseStatus(v.Get("status"))
	if err != nil {
		return filter.Options{}, err
	}

	return filter.Options{
		Search:     v.Get("search"),
		Severity:   severity,
		Status:     status,
		System:     strings.TrimSpace(v.Get("system")),
		AssignedTo: strings.TrimSpace(v.Get("assigned_to")),
		DateFrom:   from,
		DateTo:     to,
		Tags:       form.ParseTags(strings.Join(v["tags"], ",")),
	}, nil
}
