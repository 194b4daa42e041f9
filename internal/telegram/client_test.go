package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cportal/internal/domain"
	"cportal/internal/storage"
)

// newTestBot wires a client against a fake Bot API server and records every
// method call with its payload.
func newTestBot(t *testing.T) (*Client, *[]string, *httptest.Server) {
	t.Helper()
	var methods []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		methods = append(methods, parts[len(parts)-1])
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"message_id": float64(321)},
		})
	}))

	client := &Client{
		BotToken:           "test-token",
		ChatID:             "42",
		apiBase:            server.URL,
		pendingResolutions: make(map[int64]PendingResolution),
		httpClient:         &http.Client{Timeout: 5 * time.Second},
	}
	return client, &methods, server
}

func TestNewClientUnconfiguredReturnsNil(t *testing.T) {
	if client := NewClient("", "42", false); client != nil {
		t.Error("expected nil client without bot token")
	}
	if client := NewClient("token", "", false); client != nil {
		t.Error("expected nil client without chat ID")
	}
}

func TestNilClientIsNoOp(t *testing.T) {
	var client *Client

	if _, err := client.SendComplaintMessage(domain.Complaint{}); err != nil {
		t.Errorf("expected nil client send to be a no-op but got: %v", err)
	}
	if err := client.SendCriticalAlert("x", "y", 1); err != nil {
		t.Errorf("expected nil client alert to be a no-op but got: %v", err)
	}
	if err := client.EditMessageText("1", "2", "text"); err != nil {
		t.Errorf("expected nil client edit to be a no-op but got: %v", err)
	}
}

func TestSendComplaintMessageReturnsMessageID(t *testing.T) {
	client, methods, server := newTestBot(t)
	defer server.Close()

	messageID, err := client.SendComplaintMessage(domain.Complaint{
		ComplaintID:   "CMP-7",
		Caretaker:     "Lisa Adams",
		Priority:      domain.PriorityHigh,
		TypeOfProblem: domain.ProblemLateArrival,
		DateSubmitted: "Oct 29, 2025",
		Description:   "Carer arrived two hours late",
	})
	if err != nil {
		t.Fatalf("expected send to succeed but got: %v", err)
	}
	if messageID != "321" {
		t.Errorf("expected message ID '321' but got %q", messageID)
	}
	if len(*methods) != 1 || (*methods)[0] != "sendMessage" {
		t.Errorf("expected one sendMessage call but got %v", *methods)
	}
}

// stubResolver records resolution calls for the callback flow test.
type stubResolver struct {
	resolvedID     string
	resolvedRemark string
	err            error
}

func (r *stubResolver) Resolve(ctx context.Context, id, remark string) error {
	r.resolvedID = id
	r.resolvedRemark = remark
	return r.err
}

func TestResolutionFlow(t *testing.T) {
	client, methods, server := newTestBot(t)
	defer server.Close()

	store := storage.New(filepath.Join(t.TempDir(), "complaints.csv"))
	store.SaveMultiple([]storage.Record{
		{ComplaintID: "CMP-7", MessageID: "100", RecordID: "7", CaretakerName: "Lisa Adams"},
	})

	resolver := &stubResolver{}

	// Step 1: user clicks "Mark as Resolved"
	client.handleCallbackQuery(&CallbackQuery{
		ID:   "cb1",
		From: User{ID: 555, FirstName: "Ola"},
		Message: &IncomingMessage{
			MessageID: 100,
			Text:      "📋 Complaint : CMP-7\n\n👤 Lisa Adams\n💬 Details",
		},
		Data: "resolve:CMP-7",
	}, store)

	client.mu.Lock()
	pending, exists := client.pendingResolutions[555]
	client.mu.Unlock()
	if !exists || pending.ComplaintID != "CMP-7" {
		t.Fatalf("expected pending resolution for user 555, got %+v", pending)
	}

	// Step 2: user replies with the remark
	client.handleMessage(context.Background(), resolver, &IncomingMessage{
		MessageID: 101,
		From:      &User{ID: 555, FirstName: "Ola"},
		Text:      "Spoke to the provider, resolved",
	}, store)

	if resolver.resolvedID != "7" {
		t.Errorf("expected resolve with record ID '7' but got %q", resolver.resolvedID)
	}
	if resolver.resolvedRemark != "Spoke to the provider, resolved" {
		t.Errorf("unexpected remark: %q", resolver.resolvedRemark)
	}
	if store.Exists("CMP-7") {
		t.Error("expected complaint to be removed from storage after resolution")
	}

	// The flow must have edited the original message
	edited := false
	for _, method := range *methods {
		if method == "editMessageText" {
			edited = true
		}
	}
	if !edited {
		t.Errorf("expected an editMessageText call, got %v", *methods)
	}
}

func TestResolutionCancelKeyword(t *testing.T) {
	client, _, server := newTestBot(t)
	defer server.Close()

	store := storage.New(filepath.Join(t.TempDir(), "complaints.csv"))
	store.SaveMultiple([]storage.Record{
		{ComplaintID: "CMP-9", MessageID: "200", RecordID: "9", CaretakerName: "Bo"},
	})

	resolver := &stubResolver{}

	client.handleCallbackQuery(&CallbackQuery{
		ID:      "cb1",
		From:    User{ID: 1, FirstName: "Ola"},
		Message: &IncomingMessage{MessageID: 200, Text: "👤 Bo\n"},
		Data:    "resolve:CMP-9",
	}, store)

	client.handleMessage(context.Background(), resolver, &IncomingMessage{
		From: &User{ID: 1, FirstName: "Ola"},
		Text: "Cancel",
	}, store)

	if resolver.resolvedID != "" {
		t.Error("expected cancel keyword to skip the resolve call")
	}
	if !store.Exists("CMP-9") {
		t.Error("expected complaint to stay in storage after cancel")
	}
}

func TestExtractCaretakerName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"present", "📋 Complaint : CMP-1\n\n👤 Lisa Adams\n⚡ High", "Lisa Adams"},
		{"missing marker", "no marker here", "Unknown"},
		{"no trailing newline", "👤 Lisa Adams", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractCaretakerName(tt.text); got != tt.want {
				t.Errorf("expected %q but got %q", tt.want, got)
			}
		})
	}
}
