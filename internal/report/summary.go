package report

import (
	"encoding/json"
	"fmt"
)

// Summary aggregates the reports of a batch run. A file counts as degraded
// when extraction failed but best-effort text was still recovered. Not safe
// for concurrent Add; batch runs collect results first.
type Summary struct {
	OK       int       `json:"ok"`
	Degraded int       `json:"degraded"`
	Failed   int       `json:"failed"`
	Reports  []*Report `json:"reports"`
}

func (s *Summary) Add(r *Report) {
	s.Reports = append(s.Reports, r)
	switch {
	case r.Accepted:
		s.OK++
	case r.Result != nil && r.Result.Text != "":
		s.Degraded++
	default:
		s.Failed++
	}
}

func (s *Summary) Total() int {
	return len(s.Reports)
}

// Line is the closing one-liner of a batch run.
func (s *Summary) Line() string {
	return fmt.Sprintf("%d files: %d ok, %d degraded, %d failed", s.Total(), s.OK, s.Degraded, s.Failed)
}

func (s *Summary) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch summary: %w", err)
	}
	return data, nil
}
