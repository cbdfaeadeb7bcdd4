package domain

import (
	"fmt"
	"strings"
)

// StatusFilter narrows the plan list by status; FilterAll disables the check.
type StatusFilter string

const (
	FilterAll         StatusFilter = "all"
	FilterActive      StatusFilter = StatusFilter(PlanActive)
	FilterInactive    StatusFilter = StatusFilter(PlanInactive)
	FilterUnderReview StatusFilter = StatusFilter(PlanUnderReview)
)

// StatusFilters lists the filter values in display order.
var StatusFilters = []StatusFilter{FilterAll, FilterActive, FilterInactive, FilterUnderReview}

// ParseStatusFilter accepts the filter names case-insensitively; empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range StatusFilters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// Next cycles through StatusFilters.
func (f StatusFilter) Next() StatusFilter {
	for i, v := range StatusFilters {
		if v == f {
			return StatusFilters[(i+1)%len(StatusFilters)]
		}
	}
	return FilterAll
}

func (f StatusFilter) Label() string {
	switch f {
	case FilterActive:
		return "Active"
	case FilterInactive:
		return "Inactive"
	case FilterUnderReview:
		return "Under Review"
	}
	return "All Status"
}

// Matches reports whether the plan passes both the search and the status predicate.
func (f StatusFilter) Matches(p EvacuationPlan, search string) bool {
	if f != FilterAll && f != "" && string(p.Status) != string(f) {
		return false
	}
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Area), q)
}

// FilterPlans returns the plans whose name or area contains search
// (case-insensitive) and whose status passes the filter, in input order.
func FilterPlans(plans []EvacuationPlan, search string, status StatusFilter) []EvacuationPlan {
	out := make([]EvacuationPlan, 0, len(plans))
	for _, p := range plans {
		if status.Matches(p, search) {
			out = append(out, p)
		}
	}
	return out
}

// Summary holds the aggregate counts shown above the plan list.
type Summary struct {
	Plans    int
	Active   int
	Shelters int
	Capacity int
}

func Summarize(plans []EvacuationPlan) Summary {
	var s Summary
	s.Plans = len(plans)
	for _, p := range plans {
		if p.Status == PlanActive {
			s.Active++
		}
		s.Shelters += len(p.Shelters)
		s.Capacity += p.Capacity
	}
	return s
}
