package models

// ErrorStats is derived from a record set and never stored.
type ErrorStats struct {
	Total         int `json:"total"`
	Critical      int `json:"critical"`
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
	Open          int `json:"open"`
	Investigating int `json:"investigating"`
	Resolved      int `json:"resolved"`
	Closed        int `json:"closed"`
}

// ComputeStats folds records into per-severity and per-status counts.
func ComputeStats(records []ErrorRecord) ErrorStats {
	s := ErrorStats{Total: len(records)}
	for i := range records {
		switch records[i].Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		}
		switch records[i].Status {
		case StatusOpen:
			s.Open++
		case StatusInvestigating:
			s.Investigating++
		case StatusResolved:
			s.Resolved++
		case StatusClosed:
			s.Closed++
		}
	}
	return s
}
