package normalize

import (
	"strings"

	"cportal/internal/domain"
)

// The backend's label vocabulary is not contractually fixed, so status,
// problem-type and priority labels are matched leniently: lower-case the
// label and test "contains" against an ordered rule table. First match wins.
// The tables are data-driven so a server-provided code enum can replace
// them without touching call sites.

// statusRule maps label substrings to a canonical status.
type statusRule struct {
	substrings []string
	status     domain.Status
}

var statusRules = []statusRule{
	{[]string{"open"}, domain.StatusOpen},
	{[]string{"progress", "pending"}, domain.StatusInProgress},
	{[]string{"closed", "resolved"}, domain.StatusClosed},
	{[]string{"refused", "rejected"}, domain.StatusRefused},
}

// MapStatus maps a raw backend status label to a canonical Status.
//
// Matching is case-insensitive by substring; unknown labels default to Open.
func MapStatus(label string) domain.Status {
	lower := strings.ToLower(label)
	for _, rule := range statusRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.status
			}
		}
	}
	return domain.StatusOpen
}

// typeRule maps label substrings to a canonical problem type.
type typeRule struct {
	substrings  []string
	problemType domain.ProblemType
}

var typeRules = []typeRule{
	{[]string{"late"}, domain.ProblemLateArrival},
	{[]string{"behavior", "behaviour"}, domain.ProblemBehavior},
	{[]string{"missed"}, domain.ProblemMissedService},
}

// MapProblemType maps a raw backend type label to a canonical ProblemType.
//
// Unknown labels default to Other.
func MapProblemType(label string) domain.ProblemType {
	lower := strings.ToLower(label)
	for _, rule := range typeRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.problemType
			}
		}
	}
	return domain.ProblemOther
}

// priorityRule maps label substrings to a canonical priority.
type priorityRule struct {
	substrings []string
	priority   domain.Priority
}

var priorityRules = []priorityRule{
	{[]string{"urgent", "critical"}, domain.PriorityUrgent},
	{[]string{"high"}, domain.PriorityHigh},
	{[]string{"medium", "normal"}, domain.PriorityMedium},
	{[]string{"low"}, domain.PriorityLow},
}

// MapPriority maps a raw backend priority label to a canonical Priority.
//
// Unknown labels default to Low.
func MapPriority(label string) domain.Priority {
	lower := strings.ToLower(label)
	for _, rule := range priorityRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.priority
			}
		}
	}
	return domain.PriorityLow
}
