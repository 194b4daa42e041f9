// Package report builds daily summary reports for open complaints: count
// aggregates for the caption and a rendered table image for the chat.
package report

import (
	"fmt"
	"strings"

	"cportal/internal/domain"
)

// Summary holds the aggregate counts for one report run.
type Summary struct {
	Total      int
	ByStatus   map[domain.Status]int
	ByType     map[domain.ProblemType]int
	ByPriority map[domain.Priority]int
}

// Summarize tallies complaints by status, type and priority.
func Summarize(complaints []domain.Complaint) Summary {
	s := Summary{
		Total:      len(complaints),
		ByStatus:   make(map[domain.Status]int),
		ByType:     make(map[domain.ProblemType]int),
		ByPriority: make(map[domain.Priority]int),
	}
	for _, c := range complaints {
		s.ByStatus[c.Status]++
		s.ByType[c.TypeOfProblem]++
		s.ByPriority[c.Priority]++
	}
	return s
}

// Open filters a complaint list down to complaints still being worked:
// everything not Closed and not Refused.
func Open(complaints []domain.Complaint) []domain.Complaint {
	open := make([]domain.Complaint, 0, len(complaints))
	for _, c := range complaints {
		if c.Status != domain.StatusClosed && c.Status != domain.StatusRefused {
			open = append(open, c)
		}
	}
	return open
}

// Caption formats the Telegram caption accompanying the report image.
//
// Example:
//
//	📊 Daily summary: 12 open complaints
//	⚡ 3 Urgent · 4 High
//	🏷 Late arrival: 5, Missed service: 4, Behavior: 2, Other: 1
func (s Summary) Caption() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Daily summary: %d open complaints", s.Total)

	if urgent, high := s.ByPriority[domain.PriorityUrgent], s.ByPriority[domain.PriorityHigh]; urgent > 0 || high > 0 {
		b.WriteString("\n⚡")
		if urgent > 0 {
			fmt.Fprintf(&b, " %d Urgent", urgent)
		}
		if high > 0 {
			if urgent > 0 {
				b.WriteString(" ·")
			}
			fmt.Fprintf(&b, " %d High", high)
		}
	}

	types := []domain.ProblemType{
		domain.ProblemLateArrival,
		domain.ProblemMissedService,
		domain.ProblemBehavior,
		domain.ProblemOther,
	}
	var parts []string
	for _, pt := range types {
		if n := s.ByType[pt]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", pt, n))
		}
	}
	if len(parts) > 0 {
		b.WriteString("\n🏷 " + strings.Join(parts, ", "))
	}

	return b.String()
}
