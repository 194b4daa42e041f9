package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cportal/internal/domain"
)

// nowFunc returns the current time; overridable in tests so date fallbacks
// are deterministic.
var nowFunc = time.Now

// Candidate source keys for each logical field, consulted in priority order.
// The first key holding a non-empty value wins. Older backend schema
// revisions used mixed-case and spaced keys, so all historical variants
// stay listed.
var (
	idKeys = []string{"id", "ID", "Id", "complaint_id", "complaintId"}

	caretakerKeys = []string{
		"caretaker", "Caretaker", "caretaker_name",
		"complainant", "Complainant", "complainant_name",
		"Caretaker Name", "name",
	}

	againstKeys = []string{
		"complaintAgainst", "complaint_against", "Complaint Against",
		"against", "provider_name",
	}

	typeKeys = []string{
		"typeOfProblem", "type_of_problem", "problem_type", "type", "Type",
	}

	descriptionKeys = []string{
		"description", "Description", "details", "complaint_details",
	}

	statusKeys = []string{"status", "Status", "current_status"}

	priorityKeys = []string{"priority", "Priority"}

	assignedKeys = []string{
		"assignedTo", "assigned_to", "Assigned To", "handler", "worker_name",
	}

	createdKeys = []string{
		"created_at", "createdAt", "date_submitted", "dateSubmitted", "submitted_at",
	}

	updatedKeys = []string{
		"updated_at", "updatedAt", "last_update", "lastUpdate",
	}

	historyKeys    = []string{"history", "timeline", "status_history"}
	attachmentKeys = []string{"attachments", "files", "documents"}
)

// dateLayouts are the wire formats the backend has been observed to emit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
	domain.DateLayout,
}

// safeStr converts an arbitrary decoded JSON value to a string, handling nil.
func safeStr(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// safeInt converts an arbitrary decoded JSON value to an int, defaulting to 0.
func safeInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
	}
	return 0
}

// safeBool converts an arbitrary decoded JSON value to a bool.
//
// Accepts native booleans, "true"/"1" strings and non-zero numbers —
// the backend has emitted all three for the same flags.
func safeBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		lower := strings.ToLower(strings.TrimSpace(b))
		return lower == "true" || lower == "1" || lower == "yes"
	case float64:
		return b != 0
	}
	return false
}

// firstNonEmpty returns the first non-empty string value among the candidate
// keys, or "" if none is present.
func firstNonEmpty(rec map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v, ok := rec[key]; ok {
			if s := strings.TrimSpace(safeStr(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// labelOf extracts a human-readable label from a value that may be a plain
// string or a nested object like {"code": "open", "label": "Open"}.
func labelOf(v interface{}) string {
	if obj, ok := v.(map[string]interface{}); ok {
		for _, key := range []string{"label", "name", "code", "status", "value"} {
			if s := strings.TrimSpace(safeStr(obj[key])); s != "" {
				return s
			}
		}
		return ""
	}
	return strings.TrimSpace(safeStr(v))
}

// formatDate parses a raw date string and renders it in the display layout.
//
// Every known wire layout is attempted; if none parses, the current date is
// used so the result is always renderable. The raw value is never passed
// through.
func formatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.Format(domain.DateLayout)
			}
		}
	}
	return nowFunc().Format(domain.DateLayout)
}

// rawListOf returns the first list value among the candidate keys.
func rawListOf(rec map[string]interface{}, keys []string) []interface{} {
	for _, key := range keys {
		if list, ok := rec[key].([]interface{}); ok {
			return list
		}
	}
	return nil
}

// Complaint maps a raw backend record to a fully-populated domain.Complaint.
//
// The function is total: it never fails, and every required field has a
// defined fallback (empty string, Open, Low, current date, empty slice).
// Applying it twice to the same input yields identical output.
//
// The complaint's current status and assignee come from the LAST history
// entry when the backend provides one; the history is authoritative over
// any top-level status field.
func Complaint(rec map[string]interface{}) domain.Complaint {
	id := firstNonEmpty(rec, idKeys)

	c := domain.Complaint{
		ID:               id,
		ComplaintID:      "CMP-" + id,
		Caretaker:        firstNonEmpty(rec, caretakerKeys),
		ComplaintAgainst: firstNonEmpty(rec, againstKeys),
		Description:      firstNonEmpty(rec, descriptionKeys),
		Priority:         MapPriority(firstNonEmpty(rec, priorityKeys)),
		AssignedTo:       firstNonEmpty(rec, assignedKeys),
		Timeline:         []domain.TimelineEntry{},
		Attachments:      []domain.FileAttachment{},
	}

	// Problem type may be a plain label or a nested object
	typeLabel := ""
	for _, key := range typeKeys {
		if v, ok := rec[key]; ok {
			if typeLabel = labelOf(v); typeLabel != "" {
				break
			}
		}
	}
	c.TypeOfProblem = MapProblemType(typeLabel)

	// Status from the top-level field first; history overrides below
	statusLabel := ""
	for _, key := range statusKeys {
		if v, ok := rec[key]; ok {
			if statusLabel = labelOf(v); statusLabel != "" {
				break
			}
		}
	}
	c.Status = MapStatus(statusLabel)

	// Timeline from the history array; last entry is authoritative for
	// the complaint's current status and assignee
	for _, item := range rawListOf(rec, historyKeys) {
		entryRec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		c.Timeline = append(c.Timeline, timelineEntry(entryRec))
	}
	if len(c.Timeline) > 0 {
		last := c.Timeline[len(c.Timeline)-1]
		c.Status = last.Status
		if last.UserName != "" {
			c.AssignedTo = last.UserName
		}
	}

	// Attachments, element-wise with the same leniency
	for _, item := range rawListOf(rec, attachmentKeys) {
		attRec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		c.Attachments = append(c.Attachments, domain.FileAttachment{
			Name: firstNonEmpty(attRec, []string{"name", "file_name", "filename", "title"}),
			URL:  firstNonEmpty(attRec, []string{"url", "file_url", "path", "link"}),
		})
	}

	// Dates: explicit fields first, then history timestamps, then now
	created := firstNonEmpty(rec, createdKeys)
	if created == "" {
		created = historyDate(rec, false)
	}
	c.DateSubmitted = formatDate(created)

	updated := firstNonEmpty(rec, updatedKeys)
	if updated == "" {
		updated = historyDate(rec, true)
	}
	c.LastUpdate = formatDate(updated)

	return c
}

// timelineEntry maps one raw history element.
//
// The completion flags are read from explicit fields when present and
// otherwise derived from the mapped status (Closed completes, Refused
// refuses).
func timelineEntry(rec map[string]interface{}) domain.TimelineEntry {
	status := domain.StatusOpen
	if v, ok := rec["status"]; ok {
		status = MapStatus(labelOf(v))
	}

	entry := domain.TimelineEntry{
		Status:      status,
		Date:        formatDate(firstNonEmpty(rec, []string{"created_at", "date", "timestamp", "updated_at"})),
		Description: firstNonEmpty(rec, []string{"description", "remark", "note", "comment"}),
		UserName:    firstNonEmpty(rec, []string{"user_name", "userName", "handler", "updated_by", "worker_name"}),
		IsCompleted: status == domain.StatusClosed,
		IsRefused:   status == domain.StatusRefused,
	}

	if v, ok := rec["is_completed"]; ok {
		entry.IsCompleted = safeBool(v)
	} else if v, ok := rec["isCompleted"]; ok {
		entry.IsCompleted = safeBool(v)
	}
	if v, ok := rec["is_refused"]; ok {
		entry.IsRefused = safeBool(v)
	} else if v, ok := rec["isRefused"]; ok {
		entry.IsRefused = safeBool(v)
	}

	return entry
}

// historyDate returns the raw timestamp of the first (or last) history
// entry, or "" when no history is present.
func historyDate(rec map[string]interface{}, last bool) string {
	list := rawListOf(rec, historyKeys)
	if len(list) == 0 {
		return ""
	}
	idx := 0
	if last {
		idx = len(list) - 1
	}
	entryRec, ok := list[idx].(map[string]interface{})
	if !ok {
		return ""
	}
	return firstNonEmpty(entryRec, []string{"created_at", "date", "timestamp", "updated_at"})
}

// Complaints maps a raw record sequence element-wise.
func Complaints(recs []map[string]interface{}) []domain.Complaint {
	out := make([]domain.Complaint, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Complaint(rec))
	}
	return out
}

// Provider maps a raw backend record to a domain.Provider.
//
// The display name concatenates first and optional last name when no
// combined name field is present; the role defaults to "provider".
func Provider(rec map[string]interface{}) domain.Provider {
	name := firstNonEmpty(rec, []string{"name", "full_name", "fullName"})
	if name == "" {
		first := firstNonEmpty(rec, []string{"first_name", "firstName", "fname"})
		last := firstNonEmpty(rec, []string{"last_name", "lastName", "lname"})
		name = strings.TrimSpace(first + " " + last)
	}

	role := firstNonEmpty(rec, []string{"role", "Role", "user_role"})
	if role == "" {
		role = "provider"
	}

	return domain.Provider{
		ID:    safeInt(valueOf(rec, idKeys)),
		Name:  name,
		Email: firstNonEmpty(rec, []string{"email", "Email", "email_address"}),
		Role:  role,
	}
}

// Providers maps a raw record sequence element-wise.
func Providers(recs []map[string]interface{}) []domain.Provider {
	out := make([]domain.Provider, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Provider(rec))
	}
	return out
}

// Notification maps a raw backend record to a domain.Notification.
func Notification(rec map[string]interface{}) domain.Notification {
	return domain.Notification{
		ID:          firstNonEmpty(rec, idKeys),
		Title:       firstNonEmpty(rec, []string{"title", "Title", "subject"}),
		Message:     firstNonEmpty(rec, []string{"message", "body", "text", "content"}),
		Date:        formatDate(firstNonEmpty(rec, createdKeys)),
		IsRead:      safeBool(valueOf(rec, []string{"is_read", "isRead", "read"})),
		ComplaintID: firstNonEmpty(rec, []string{"complaint_id", "complaintId", "complaint"}),
	}
}

// Notifications maps a raw record sequence element-wise.
func Notifications(recs []map[string]interface{}) []domain.Notification {
	out := make([]domain.Notification, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Notification(rec))
	}
	return out
}

// Comment maps a raw backend record to a domain.Comment.
func Comment(rec map[string]interface{}) domain.Comment {
	return domain.Comment{
		ID:        firstNonEmpty(rec, idKeys),
		Author:    firstNonEmpty(rec, []string{"author", "user_name", "userName", "user"}),
		Text:      firstNonEmpty(rec, []string{"text", "comment", "body", "message"}),
		Date:      formatDate(firstNonEmpty(rec, createdKeys)),
		IsPrivate: safeBool(valueOf(rec, []string{"is_private", "isPrivate", "private"})),
	}
}

// Profile maps a raw backend record to a domain.Profile.
func Profile(rec map[string]interface{}) domain.Profile {
	role := firstNonEmpty(rec, []string{"role", "Role", "user_role"})
	if role == "" {
		role = "client"
	}
	return domain.Profile{
		ID:    firstNonEmpty(rec, idKeys),
		Name:  firstNonEmpty(rec, []string{"name", "full_name", "fullName", "username"}),
		Email: firstNonEmpty(rec, []string{"email", "Email", "email_address"}),
		Role:  role,
		Phone: firstNonEmpty(rec, []string{"phone", "mobile", "mobile_no", "phone_number"}),
	}
}

// valueOf returns the first present value among the candidate keys.
func valueOf(rec map[string]interface{}, keys []string) interface{} {
	for _, key := range keys {
		if v, ok := rec[key]; ok {
			return v
		}
	}
	return nil
}
