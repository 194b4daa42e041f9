// Package telegram provides Telegram bot integration for the cportal agent.
//
// This package handles:
//   - Sending complaint notifications with inline keyboards
//   - Receiving and processing callback queries (button clicks)
//   - Handling user messages (resolution remarks)
//   - Editing messages to mark complaints as resolved
//   - Uploading summary report images
//   - Long polling for updates
//
// Architecture:
//   - Client: Main struct with bot token and chat ID
//   - Update handler: Background goroutine for long polling
//   - Callback handler: Processes button clicks
//   - Message handler: Processes text messages (resolution remarks)
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"cportal/internal/domain"
	"cportal/internal/storage"
)

// Resolver marks a complaint resolved on the portal backend. The portal
// client satisfies this; tests substitute a stub.
type Resolver interface {
	Resolve(ctx context.Context, id, remark string) error
}

// PendingResolution stores information about a complaint awaiting a
// resolution remark.
//
// When a user clicks "Mark as Resolved":
//  1. Store complaint info in pendingResolutions
//  2. Send a prompt asking for the remark
//  3. Wait for the user's reply
//  4. Resolve on the backend and edit the original message
type PendingResolution struct {
	ComplaintID     string
	MessageID       string
	OriginalText    string
	PromptMessageID int
}

// Client represents a Telegram bot client.
//
// Thread-safety:
//   - pendingResolutions map is protected by mutex
//   - Safe for concurrent access from update handler and fetch loop
//
// A nil *Client is valid and turns every method into a logged no-op, so
// callers never need to branch on whether Telegram is configured.
type Client struct {
	BotToken  string
	ChatID    string
	DebugMode bool

	apiBase    string
	httpClient *http.Client

	mu                 sync.Mutex
	pendingResolutions map[int64]PendingResolution
}

// Message represents a Telegram message for sending.
type Message struct {
	ChatID                string      `json:"chat_id"`
	Text                  string      `json:"text"`
	ParseMode             string      `json:"parse_mode"`
	DisableWebPagePreview bool        `json:"disable_web_page_preview"`
	ReplyMarkup           interface{} `json:"reply_markup,omitempty"`
	ReplyToMessageID      int         `json:"reply_to_message_id,omitempty"`
}

// InlineKeyboardMarkup represents an inline keyboard.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton represents a button in an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// ForceReply prompts the user to reply to the bot's message.
type ForceReply struct {
	ForceReply            bool   `json:"force_reply"`
	Selective             bool   `json:"selective,omitempty"`
	InputFieldPlaceholder string `json:"input_field_placeholder,omitempty"`
}

// Update represents a Telegram update from getUpdates.
type Update struct {
	UpdateID      int              `json:"update_id"`
	Message       *IncomingMessage `json:"message,omitempty"`
	CallbackQuery *CallbackQuery   `json:"callback_query,omitempty"`
}

// IncomingMessage represents a received Telegram message.
type IncomingMessage struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat,omitempty"`
	Text      string `json:"text"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// CallbackQuery represents a callback query from an inline button.
type CallbackQuery struct {
	ID      string           `json:"id"`
	From    User             `json:"from"`
	Message *IncomingMessage `json:"message"`
	Data    string           `json:"data"`
}

// User represents a Telegram user.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// EditMessageRequest represents a request to edit a message.
type EditMessageRequest struct {
	ChatID      string                `json:"chat_id"`
	MessageID   string                `json:"message_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// NewClient creates a Telegram client.
//
// Returns nil when the token or chat ID is missing; a nil client disables
// every notification path without erroring.
func NewClient(botToken, chatID string, debugMode bool) *Client {
	if botToken == "" || chatID == "" {
		log.Println("⚠️  Telegram bot token or chat ID not set. Telegram notifications disabled.")
		return nil
	}

	log.Println("✓ Telegram configured successfully")

	if debugMode {
		log.Println("🐛 DEBUG MODE ENABLED - Telegram calls will be simulated")
	}

	return &Client{
		BotToken:           botToken,
		ChatID:             chatID,
		DebugMode:          debugMode,
		apiBase:            "https://api.telegram.org",
		pendingResolutions: make(map[int64]PendingResolution),
		// Long polling holds the connection for 30s, so the client
		// timeout needs headroom beyond that
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// doRequest handles the common logic for Telegram Bot API calls.
//
// Features:
//   - JSON marshaling
//   - HTTP POST with proper headers
//   - API-level error detection ("ok": false)
func (c *Client) doRequest(method string, payload interface{}) (map[string]interface{}, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiURL := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.BotToken, method)

	resp, err := c.httpClient.Post(apiURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if ok, exists := result["ok"].(bool); !exists || !ok {
		return nil, fmt.Errorf("Telegram API error: %v", result)
	}

	return result, nil
}

// SendComplaintMessage sends a new complaint notification.
//
// Message format:
//
//	📋 Complaint : CMP-12345
//	👤 John Doe
//	⚡ High
//	🏷 Late arrival
//	📅 Jan 15, 2026
//	💬 Details:
//	[Complaint description]
//	👷 Assigned: Jane Smith
//
// The message carries a "Mark as Resolved" inline button; the returned
// message ID is stored so the message can be edited after resolution.
func (c *Client) SendComplaintMessage(complaint domain.Complaint) (string, error) {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping message send")
		return "", nil
	}

	log.Println("   📨 Sending complaint to Telegram...")

	assigned := complaint.AssignedTo
	if assigned == "" {
		assigned = "Unassigned"
	}

	message := fmt.Sprintf(
		"📋 Complaint : %s\n\n"+
			"👤 %s\n"+
			"⚡ %s\n"+
			"🏷 %s\n"+
			"📅 %s\n\n"+
			"💬 <b>Details:</b>\n%s\n\n"+
			"👷 Assigned: %s",
		complaint.ComplaintID,
		complaint.Caretaker,
		complaint.Priority,
		complaint.TypeOfProblem,
		complaint.DateSubmitted,
		complaint.Description,
		assigned,
	)

	// Callback data format: "resolve:COMPLAINT_ID"
	keyboard := &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{
				{
					Text:         "✅ Mark as Resolved",
					CallbackData: fmt.Sprintf("resolve:%s", complaint.ComplaintID),
				},
			},
		},
	}

	telegramMsg := Message{
		ChatID:                c.ChatID,
		Text:                  message,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           keyboard,
	}

	result, err := c.doRequest("sendMessage", telegramMsg)
	if err != nil {
		return "", fmt.Errorf("failed to send Telegram message: %w", err)
	}

	messageID := extractMessageID(result)

	log.Println("   ✓ Complaint successfully sent to Telegram")
	return messageID, nil
}

// SendCriticalAlert sends a critical failure alert.
//
// This is called when all retry attempts fail and manual intervention is
// needed.
func (c *Client) SendCriticalAlert(errorType, errorMsg string, retryCount int) error {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping critical alert")
		return nil
	}

	log.Println("   🚨 Sending critical alert to Telegram...")

	message := fmt.Sprintf(
		"🚨 <b>CRITICAL ALERT - CPORTAL AGENT</b>\n\n"+
			"<b>Error Type:</b> %s\n"+
			"<b>Error Message:</b> %s\n"+
			"<b>Retry Attempts:</b> %d\n"+
			"<b>Timestamp:</b> %s\n\n"+
			"⚠️ <b>Action Required:</b> Please check the service immediately.",
		errorType,
		errorMsg,
		retryCount,
		time.Now().Format("2006-01-02 15:04:05"),
	)

	telegramMsg := Message{
		ChatID:                c.ChatID,
		Text:                  message,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}

	if _, err := c.doRequest("sendMessage", telegramMsg); err != nil {
		return fmt.Errorf("failed to send Telegram alert: %w", err)
	}

	log.Println("   ✓ Critical alert successfully sent to Telegram")
	return nil
}

// EditMessageText edits an existing Telegram message.
//
// Use cases:
//   - Marking a complaint notification as resolved
//   - Updating complaint status in place
func (c *Client) EditMessageText(chatID, messageID, newText string) error {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping message edit")
		return nil
	}

	if messageID == "" {
		log.Println("   ⚠️  No message ID provided, skipping edit")
		return nil
	}

	log.Println("   📝 Editing Telegram message...")

	req := EditMessageRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      newText,
		ParseMode: "HTML",
	}

	if _, err := c.doRequest("editMessageText", req); err != nil {
		return fmt.Errorf("failed to edit Telegram message: %w", err)
	}

	log.Println("   ✓ Message successfully edited")
	return nil
}

// SendPhoto uploads a PNG image with a caption (used for summary reports).
//
// Uses multipart/form-data because sendPhoto with raw bytes cannot go
// through the JSON transport.
func (c *Client) SendPhoto(imageData []byte, caption string) error {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping photo send")
		return nil
	}

	log.Println("   🖼  Sending report image to Telegram...")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", c.ChatID); err != nil {
		return fmt.Errorf("failed to write chat_id field: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("failed to write caption field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("photo", "report.png")
	if err != nil {
		return fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return fmt.Errorf("failed to write photo data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	apiURL := fmt.Sprintf("%s/bot%s/sendPhoto", c.apiBase, c.BotToken)
	resp, err := c.httpClient.Post(apiURL, writer.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if ok, exists := result["ok"].(bool); !exists || !ok {
		return fmt.Errorf("Telegram API error: %v", result)
	}

	log.Println("   ✓ Report image successfully sent to Telegram")
	return nil
}

// getUpdates fetches new updates using long polling.
//
// Long polling keeps the connection open for up to 30 seconds and returns
// immediately when updates arrive.
func (c *Client) getUpdates(offset int) ([]Update, error) {
	if c == nil {
		return nil, nil
	}

	payload := map[string]interface{}{
		"offset":  offset,
		"timeout": 30,
	}

	result, err := c.doRequest("getUpdates", payload)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if resultArray, ok := result["result"].([]interface{}); ok {
		for _, item := range resultArray {
			jsonData, _ := json.Marshal(item)
			var update Update
			if err := json.Unmarshal(jsonData, &update); err == nil {
				updates = append(updates, update)
			}
		}
	}

	return updates, nil
}

// answerCallbackQuery acknowledges a button click, optionally showing a
// toast notification.
func (c *Client) answerCallbackQuery(callbackQueryID string, text string) error {
	if c == nil {
		return nil
	}

	payload := map[string]interface{}{
		"callback_query_id": callbackQueryID,
		"text":              text,
		"show_alert":        false,
	}

	_, err := c.doRequest("answerCallbackQuery", payload)
	return err
}

// HandleUpdates listens for incoming updates and processes them.
//
// Update processing loop:
//  1. Long poll for updates (30s timeout)
//  2. Process each update (button clicks, resolution remarks)
//  3. Advance the offset to acknowledge processed updates
//  4. Repeat until the context is cancelled
func (c *Client) HandleUpdates(ctx context.Context, resolver Resolver, store *storage.Store) {
	if c == nil {
		log.Println("⚠️  Telegram not configured, callback handler disabled")
		return
	}

	log.Println("✓ Starting Telegram callback handler...")
	offset := 0

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Telegram callback handler stopped")
			return
		default:
			updates, err := c.getUpdates(offset)
			if err != nil {
				log.Printf("⚠️  Error getting Telegram updates: %v\n", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, update := range updates {
				if update.CallbackQuery != nil {
					c.handleCallbackQuery(update.CallbackQuery, store)
				} else if update.Message != nil {
					c.handleMessage(ctx, resolver, update.Message, store)
				}
				offset = update.UpdateID + 1
			}
		}
	}
}

// handleCallbackQuery processes a callback query from an inline button.
//
// Flow when a user clicks "Mark as Resolved":
//  1. Parse callback data to get the complaint ID
//  2. Store a pending resolution for the user
//  3. Send a prompt asking for the resolution remark
//  4. Wait for the user's reply (handled by handleMessage)
//
// Clicking the button again before replying cancels the pending resolution.
func (c *Client) handleCallbackQuery(query *CallbackQuery, store *storage.Store) {
	log.Printf("📞 Received callback query: %s from %s\n", query.Data, query.From.FirstName)

	// Callback data format: "resolve:COMPLAINT_ID"
	parts := strings.SplitN(query.Data, ":", 2)
	if len(parts) != 2 || parts[0] != "resolve" {
		log.Println("⚠️  Invalid callback data format")
		c.answerCallbackQuery(query.ID, "Invalid action")
		return
	}

	complaintID := parts[1]

	messageID := store.GetMessageID(complaintID)
	if messageID == "" {
		log.Println("⚠️  Message ID not found for complaint")
		c.answerCallbackQuery(query.ID, "Error: Message not found")
		return
	}

	originalText := ""
	if query.Message != nil {
		originalText = query.Message.Text
	}

	c.mu.Lock()
	// Toggle logic: a second click on the same button cancels
	if pending, exists := c.pendingResolutions[query.From.ID]; exists && pending.ComplaintID == complaintID {
		delete(c.pendingResolutions, query.From.ID)
		c.mu.Unlock()

		c.deletePrompt(pending.PromptMessageID)
		c.answerCallbackQuery(query.ID, "Resolution cancelled")
		log.Printf("❌ Resolution cancelled by toggle for user %s\n", query.From.FirstName)
		return
	}

	c.pendingResolutions[query.From.ID] = PendingResolution{
		ComplaintID:  complaintID,
		MessageID:    messageID,
		OriginalText: originalText,
	}
	c.mu.Unlock()

	log.Printf("📝 Requesting resolution remark for complaint %s from %s\n", complaintID, query.From.FirstName)

	caretakerName := extractCaretakerName(originalText)

	originalMessageID, _ := strconv.Atoi(messageID)
	promptMsg := Message{
		ChatID:           c.ChatID,
		Text:             fmt.Sprintf("📝 Remarks for complaint <b>%s</b>\n👤 %s:", complaintID, caretakerName),
		ParseMode:        "HTML",
		ReplyToMessageID: originalMessageID,
		ReplyMarkup: &ForceReply{
			ForceReply:            true,
			InputFieldPlaceholder: "Enter resolution details...",
		},
	}

	result, err := c.doRequest("sendMessage", promptMsg)
	if err != nil {
		log.Printf("⚠️  Failed to send prompt message: %v\n", err)
		c.answerCallbackQuery(query.ID, "Error sending prompt")
		return
	}

	promptMsgID := 0
	if id := extractMessageID(result); id != "" {
		promptMsgID, _ = strconv.Atoi(id)
	}

	c.mu.Lock()
	if pending, exists := c.pendingResolutions[query.From.ID]; exists {
		pending.PromptMessageID = promptMsgID
		c.pendingResolutions[query.From.ID] = pending
	}
	c.mu.Unlock()

	c.answerCallbackQuery(query.ID, "Please send your remarks")
	log.Printf("✓ Prompted %s for remarks\n", query.From.FirstName)
}

// handleMessage processes text messages (resolution remarks).
//
// Flow when a user sends a remark:
//  1. Check that the user has a pending resolution
//  2. Delete the prompt message (keep the chat clean)
//  3. Resolve the complaint on the portal backend
//  4. Edit the original message to show "RESOLVED"
//  5. Remove the complaint from storage
func (c *Client) handleMessage(ctx context.Context, resolver Resolver, message *IncomingMessage, store *storage.Store) {
	if message.From == nil || message.Text == "" {
		return
	}

	c.mu.Lock()
	pending, exists := c.pendingResolutions[message.From.ID]
	if !exists {
		c.mu.Unlock()
		return // No pending resolution for this user
	}

	promptMsgID := pending.PromptMessageID
	delete(c.pendingResolutions, message.From.ID)
	c.mu.Unlock()

	c.deletePrompt(promptMsgID)

	// "cancel" keyword aborts the flow (case-insensitive)
	if strings.EqualFold(strings.TrimSpace(message.Text), "cancel") {
		log.Printf("❌ Resolution cancelled by keyword for user %s\n", message.From.FirstName)
		c.doRequest("sendMessage", Message{
			ChatID:    c.ChatID,
			Text:      "❌ Resolution cancelled.",
			ParseMode: "HTML",
		})
		return
	}

	log.Printf("📝 Received resolution remark from %s for complaint %s\n", message.From.FirstName, pending.ComplaintID)

	if !store.Exists(pending.ComplaintID) {
		log.Printf("⚠️  Complaint %s was already resolved\n", pending.ComplaintID)
		c.doRequest("sendMessage", Message{
			ChatID:    c.ChatID,
			Text:      fmt.Sprintf("ℹ️ Complaint <b>%s</b> was already resolved.", pending.ComplaintID),
			ParseMode: "HTML",
		})
		return
	}

	recordID := store.GetRecordID(pending.ComplaintID)
	if recordID == "" {
		log.Printf("⚠️  No record ID found for complaint %s\n", pending.ComplaintID)
		c.doRequest("sendMessage", Message{
			ChatID:    c.ChatID,
			Text:      fmt.Sprintf("❌ Error: Cannot resolve complaint %s (record ID not found).", pending.ComplaintID),
			ParseMode: "HTML",
		})
		return
	}

	log.Printf("🌐 Calling portal API to mark complaint %s as resolved...\n", pending.ComplaintID)

	if err := resolver.Resolve(ctx, recordID, message.Text); err != nil {
		log.Printf("⚠️  Failed to mark complaint on portal: %v\n", err)
		c.doRequest("sendMessage", Message{
			ChatID:    c.ChatID,
			Text:      fmt.Sprintf("❌ Failed to mark complaint %s as resolved on the portal: %v\nPlease try again or contact support.", pending.ComplaintID, err),
			ParseMode: "HTML",
		})
		return
	}

	log.Printf("✅ Successfully marked complaint %s as resolved on portal\n", pending.ComplaintID)

	caretakerName := extractCaretakerName(pending.OriginalText)

	resolvedMessage := fmt.Sprintf(
		"✅ <b>RESOLVED</b>\n\n"+
			"Complaint %s\n"+
			"👤 %s\n"+
			"🕐 %s",
		pending.ComplaintID,
		caretakerName,
		time.Now().Format("02 Jan 2006, 03:04 PM"),
	)

	// Edit the original message and drop the button
	req := EditMessageRequest{
		ChatID:      c.ChatID,
		MessageID:   pending.MessageID,
		Text:        resolvedMessage,
		ParseMode:   "HTML",
		ReplyMarkup: &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{}},
	}

	if _, err := c.doRequest("editMessageText", req); err != nil {
		log.Printf("⚠️  Failed to edit message: %v\n", err)
		c.doRequest("sendMessage", Message{
			ChatID:    c.ChatID,
			Text:      fmt.Sprintf("❌ Error updating Telegram message for complaint %s. The complaint was marked as resolved on the portal though.", pending.ComplaintID),
			ParseMode: "HTML",
		})
		return
	}

	removed, err := store.RemoveIfExists(pending.ComplaintID)
	if err != nil {
		log.Printf("⚠️  Failed to remove from storage: %v\n", err)
	} else if !removed {
		log.Printf("ℹ️  Complaint %s was already removed from storage\n", pending.ComplaintID)
	}

	log.Printf("✓ Successfully resolved complaint %s with remark\n", pending.ComplaintID)
}

// deletePrompt deletes a previously sent prompt message to keep the chat
// clean. Failures are ignored.
func (c *Client) deletePrompt(promptMessageID int) {
	if promptMessageID <= 0 {
		return
	}
	deleteReq := struct {
		ChatID    string `json:"chat_id"`
		MessageID int    `json:"message_id"`
	}{
		ChatID:    c.ChatID,
		MessageID: promptMessageID,
	}
	c.doRequest("deleteMessage", deleteReq)
}

// extractMessageID pulls the message ID out of a sendMessage response.
func extractMessageID(result map[string]interface{}) string {
	if msgResult, ok := result["result"].(map[string]interface{}); ok {
		if msgID, ok := msgResult["message_id"].(float64); ok {
			return fmt.Sprintf("%.0f", msgID)
		}
	}
	return ""
}

// extractCaretakerName pulls the complainant name back out of a previously
// sent notification message.
func extractCaretakerName(messageText string) string {
	name := "Unknown"
	if idx := strings.Index(messageText, "👤 "); idx != -1 {
		nameStart := idx + len("👤 ")
		if newlineIdx := strings.Index(messageText[nameStart:], "\n"); newlineIdx != -1 {
			name = messageText[nameStart : nameStart+newlineIdx]
		}
	}
	return name
}
