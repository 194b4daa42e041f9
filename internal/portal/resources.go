package portal

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Read endpoints. Every fetcher returns the decoded payload untouched so the
// coordinator can push it through the normalize pipeline.

// FetchComplaints retrieves one page of the complaint list.
func (c *Client) FetchComplaints(ctx context.Context, page int) (interface{}, error) {
	return c.doRequest(ctx, "GET", fmt.Sprintf("/api/complaints?page=%d", page), nil)
}

// FetchComplaint retrieves a single complaint with its full timeline.
func (c *Client) FetchComplaint(ctx context.Context, id string) (interface{}, error) {
	return c.doRequest(ctx, "GET", "/api/complaints/"+id, nil)
}

// FetchProviders retrieves the service provider directory.
func (c *Client) FetchProviders(ctx context.Context) (interface{}, error) {
	return c.doRequest(ctx, "GET", "/api/providers", nil)
}

// FetchNotifications retrieves the current user's notifications.
func (c *Client) FetchNotifications(ctx context.Context) (interface{}, error) {
	return c.doRequest(ctx, "GET", "/api/notifications", nil)
}

// FetchProfile retrieves the current user's profile.
func (c *Client) FetchProfile(ctx context.Context) (interface{}, error) {
	return c.doRequest(ctx, "GET", "/api/profile", nil)
}

// CreateComplaintRequest carries the fields for filing a new complaint.
type CreateComplaintRequest struct {
	Caretaker        string `json:"caretaker_name"`
	ComplaintAgainst string `json:"complaint_against"`
	TypeOfProblem    string `json:"type_of_problem"`
	Description      string `json:"description"`
	Priority         string `json:"priority,omitempty"`
}

// CreateComplaint files a new complaint.
//
// An Idempotency-Key header makes retried submissions safe: the backend
// collapses duplicates carrying the same key.
func (c *Client) CreateComplaint(ctx context.Context, req CreateComplaintRequest) (interface{}, error) {
	if c.debugMode {
		log.Printf("⚠️ DEBUG MODE: skipping complaint creation for %s", req.Caretaker)
		return nil, nil
	}
	return c.doMutation(ctx, "POST", "/api/complaints", req)
}

// UpdateStatus moves a complaint to a new status with an optional remark.
func (c *Client) UpdateStatus(ctx context.Context, id, status, remark string) error {
	if c.debugMode {
		log.Printf("⚠️ DEBUG MODE: skipping status update for %s → %s", id, status)
		return nil
	}
	_, err := c.doMutation(ctx, "POST", "/api/complaints/"+id+"/status", map[string]string{
		"status": status,
		"remark": remark,
	})
	return err
}

// Resolve marks a complaint resolved with a remark.
//
// Flow:
//  1. POST the resolution to the complaint's resolve endpoint
//  2. Backend closes the complaint and appends a timeline entry
func (c *Client) Resolve(ctx context.Context, id, remark string) error {
	if c.debugMode {
		log.Printf("⚠️ DEBUG MODE: skipping resolve for %s", id)
		return nil
	}

	log.Printf("→ Resolving complaint %s...", id)
	_, err := c.doMutation(ctx, "POST", "/api/complaints/"+id+"/resolve", map[string]string{
		"remark": remark,
	})
	if err != nil {
		return err
	}
	log.Printf("✓ Complaint %s resolved", id)
	return nil
}

// Assign assigns a complaint to a service provider.
func (c *Client) Assign(ctx context.Context, id string, providerID int) error {
	if c.debugMode {
		log.Printf("⚠️ DEBUG MODE: skipping assign for %s → provider %d", id, providerID)
		return nil
	}
	_, err := c.doMutation(ctx, "POST", "/api/complaints/"+id+"/assign", map[string]int{
		"provider_id": providerID,
	})
	return err
}

// AddComment posts a comment on a complaint.
func (c *Client) AddComment(ctx context.Context, id, text string, private bool) error {
	if c.debugMode {
		log.Printf("⚠️ DEBUG MODE: skipping comment on %s", id)
		return nil
	}
	_, err := c.doMutation(ctx, "POST", "/api/complaints/"+id+"/comments", map[string]interface{}{
		"text":    text,
		"private": private,
	})
	return err
}

// doMutation performs a write call with an idempotency key attached.
func (c *Client) doMutation(ctx context.Context, method, path string, payload interface{}) (interface{}, error) {
	return c.doRequestWithHeaders(ctx, method, path, payload, map[string]string{
		"Idempotency-Key": uuid.NewString(),
	})
}
