package report

import (
	"strings"
	"testing"

	"cportal/internal/domain"
)

func sampleComplaints() []domain.Complaint {
	return []domain.Complaint{
		{ComplaintID: "CMP-1", Status: domain.StatusOpen, Priority: domain.PriorityUrgent, TypeOfProblem: domain.ProblemLateArrival, DateSubmitted: "Oct 1, 2025"},
		{ComplaintID: "CMP-2", Status: domain.StatusInProgress, Priority: domain.PriorityHigh, TypeOfProblem: domain.ProblemLateArrival, DateSubmitted: "Oct 2, 2025"},
		{ComplaintID: "CMP-3", Status: domain.StatusClosed, Priority: domain.PriorityLow, TypeOfProblem: domain.ProblemBehavior, DateSubmitted: "Oct 3, 2025"},
		{ComplaintID: "CMP-4", Status: domain.StatusRefused, Priority: domain.PriorityLow, TypeOfProblem: domain.ProblemOther, DateSubmitted: "Oct 4, 2025"},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleComplaints())

	if s.Total != 4 {
		t.Errorf("expected total 4 but got %d", s.Total)
	}
	if s.ByStatus[domain.StatusOpen] != 1 || s.ByStatus[domain.StatusInProgress] != 1 {
		t.Errorf("unexpected status counts: %v", s.ByStatus)
	}
	if s.ByType[domain.ProblemLateArrival] != 2 {
		t.Errorf("expected 2 late arrivals but got %d", s.ByType[domain.ProblemLateArrival])
	}
	if s.ByPriority[domain.PriorityUrgent] != 1 {
		t.Errorf("expected 1 urgent but got %d", s.ByPriority[domain.PriorityUrgent])
	}
}

func TestOpenFiltersClosedAndRefused(t *testing.T) {
	open := Open(sampleComplaints())

	if len(open) != 2 {
		t.Fatalf("expected 2 open complaints but got %d", len(open))
	}
	for _, c := range open {
		if c.Status == domain.StatusClosed || c.Status == domain.StatusRefused {
			t.Errorf("expected closed/refused to be filtered, got %s", c.ComplaintID)
		}
	}
}

func TestCaption(t *testing.T) {
	caption := Summarize(Open(sampleComplaints())).Caption()

	if !strings.Contains(caption, "2 open complaints") {
		t.Errorf("expected total in caption, got %q", caption)
	}
	if !strings.Contains(caption, "1 Urgent") || !strings.Contains(caption, "1 High") {
		t.Errorf("expected priority breakdown in caption, got %q", caption)
	}
	if !strings.Contains(caption, "Late arrival: 2") {
		t.Errorf("expected type breakdown in caption, got %q", caption)
	}
}

func TestRenderTableEmpty(t *testing.T) {
	if _, err := RenderTable(nil); err == nil {
		t.Error("expected error for empty complaint list")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short text untouched", "hello", 10, "hello"},
		{"long text truncated", "abcdefghij", 5, "abcde…"},
		{"newlines flattened", "a\nb", 10, "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("expected %q but got %q", tt.want, got)
			}
		})
	}
}
