package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the upstream conversation gateway. Conversations are
// created lazily: a handle is only requested when a session needs one.
type Client struct {
	BaseURL string
	APIKey  string
	UserID  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey, userID string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		UserID:  userID,
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type createConversationRequest struct {
	Inputs map[string]string `json:"Inputs"`
	UserID string            `json:"UserID"`
}

type createConversationResponse struct {
	Conversation struct {
		AppConversationID string `json:"AppConversationID"`
	} `json:"Conversation"`
}

// CreateConversation requests a new conversation handle from the gateway.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	payload, err := json.Marshal(createConversationRequest{
		Inputs: map[string]string{"user_id": c.UserID},
		UserID: c.UserID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + "/api/proxy/api/v1/create_conversation"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Apikey", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create conversation: status %d", resp.StatusCode)
	}

	var conv createConversationResponse
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return "", fmt.Errorf("decode conversation: %w", err)
	}
	if conv.Conversation.AppConversationID == "" {
		return "", fmt.Errorf("create conversation: empty handle")
	}
	return conv.Conversation.AppConversationID, nil
}

type chatQueryRequest struct {
	Query             string `json:"Query"`
	AppConversationID string `json:"AppConversationID"`
	ResponseMode      string `json:"ResponseMode"`
	UserID            string `json:"UserID"`
}

type chatEvent struct {
	Event  string `json:"event"`
	Answer string `json:"answer"`
}

// ChatQuery sends a query on an existing conversation and aggregates the
// streamed message fragments into one answer string.
func (c *Client) ChatQuery(ctx context.Context, conversationID, query string) (string, error) {
	payload, err := json.Marshal(chatQueryRequest{
		Query:             query,
		AppConversationID: conversationID,
		ResponseMode:      "streaming",
		UserID:            c.UserID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + "/api/proxy/api/v1/chat_query"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Apikey", c.APIKey)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat query: status %d", resp.StatusCode)
	}

	var answer strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// The gateway double-prefixes its SSE payload lines.
		if !strings.HasPrefix(line, "data:data:") {
			continue
		}
		var event chatEvent
		if err := json.Unmarshal([]byte(line[len("data:data:"):]), &event); err != nil {
			continue
		}
		if event.Event == "message" {
			answer.WriteString(event.Answer)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}

	return answer.String(), nil
}
