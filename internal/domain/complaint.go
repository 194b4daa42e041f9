// Package domain defines the portal's domain entities.
//
// Every entity here is fully populated: the normalize package guarantees
// that no required field is ever empty or zero in a way the UI layer has
// to guard against. Dates are display-formatted strings, never raw ISO.
package domain

// Status enumerates complaint lifecycle states.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusClosed     Status = "Closed"
	StatusRefused    Status = "Refused"
)

// Priority enumerates complaint urgency.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// ProblemType enumerates the kind of service problem being reported.
type ProblemType string

const (
	ProblemLateArrival   ProblemType = "Late arrival"
	ProblemBehavior      ProblemType = "Behavior"
	ProblemMissedService ProblemType = "Missed service"
	ProblemOther         ProblemType = "Other"
)

// DateLayout is the display format used for all complaint dates.
//
// Example: "Oct 29, 2025"
const DateLayout = "Jan 2, 2006"

// Complaint is the normalized complaint record served to consumers.
//
// Fields:
//   - ID: stable backend identifier, always a string ("7")
//   - ComplaintID: display code derived from ID ("CMP-7")
//   - Caretaker: name of the person who filed the complaint
//   - ComplaintAgainst: name of the party complained about (optional)
//   - TypeOfProblem: one of the ProblemType values
//   - Status: one of the Status values, derived from the last
//     timeline entry when the backend provides a history array
//   - Priority: one of the Priority values
//   - DateSubmitted / LastUpdate: display-formatted dates
//   - AssignedTo: handler name, empty if unassigned
//   - Timeline: chronological status history (insertion order)
//   - Attachments: uploaded files, order not significant
type Complaint struct {
	ID               string
	ComplaintID      string
	Caretaker        string
	ComplaintAgainst string
	TypeOfProblem    ProblemType
	Description      string
	Status           Status
	Priority         Priority
	DateSubmitted    string
	LastUpdate       string
	AssignedTo       string
	Timeline         []TimelineEntry
	Attachments      []FileAttachment
}

// TimelineEntry is one step of a complaint's status history.
//
// The last entry of a complaint's timeline is authoritative for the
// complaint's current Status and AssignedTo.
type TimelineEntry struct {
	Status      Status
	Date        string
	Description string
	IsCompleted bool
	IsRefused   bool
	UserName    string
}

// FileAttachment is a file uploaded with a complaint or a comment.
type FileAttachment struct {
	Name string
	URL  string
}

// Comment is a remark attached to a complaint.
type Comment struct {
	ID        string
	Author    string
	Text      string
	Date      string
	IsPrivate bool
}

// Notification is an event surfaced to the current user.
type Notification struct {
	ID          string
	Title       string
	Message     string
	Date        string
	IsRead      bool
	ComplaintID string
}

// Provider is a service provider who can be assigned complaints.
type Provider struct {
	ID    int
	Name  string
	Email string
	Role  string
}

// Profile is the current user's account snapshot.
type Profile struct {
	ID    string
	Name  string
	Email string
	Role  string
	Phone string
}
