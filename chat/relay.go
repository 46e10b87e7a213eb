package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RelayConfig configures the HTTP relay to the chat-platform bridge.
type RelayConfig struct {
	BaseURL   string
	AuthToken string
}

type relayNotifier struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewRelayNotifier returns a Notifier that forwards outbound messages to
// the bridge service over HTTP.
func NewRelayNotifier(cfg RelayConfig) (Notifier, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("invalid relay configuration: base URL is required")
	}
	return &relayNotifier{
		baseURL:   cfg.BaseURL,
		authToken: cfg.AuthToken,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type publishResponse struct {
	MessageID int64 `json:"message_id"`
}

func (n *relayNotifier) PublishMessage(ctx context.Context, groupID int64, role ChannelRole, msg Message) (int64, error) {
	url := fmt.Sprintf("%s/groups/%d/channels/%s/messages", n.baseURL, groupID, role)
	var out publishResponse
	if err := n.do(ctx, http.MethodPost, url, msg, &out); err != nil {
		return 0, fmt.Errorf("failed to publish message to %s channel of group %d: %w", role, groupID, err)
	}
	return out.MessageID, nil
}

func (n *relayNotifier) EditMessage(ctx context.Context, groupID int64, role ChannelRole, messageID int64, content string) error {
	url := fmt.Sprintf("%s/groups/%d/channels/%s/messages/%d", n.baseURL, groupID, role, messageID)
	body := map[string]string{"content": content}
	if err := n.do(ctx, http.MethodPatch, url, body, nil); err != nil {
		return fmt.Errorf("failed to edit message %d in %s channel of group %d: %w", messageID, role, groupID, err)
	}
	return nil
}

func (n *relayNotifier) RevealAsset(ctx context.Context, groupID int64, role ChannelRole, assetURL, caption string) error {
	_, err := n.PublishMessage(ctx, groupID, role, Message{Content: caption, AssetURL: assetURL})
	return err
}

func (n *relayNotifier) do(ctx context.Context, method, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.authToken)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode bridge response: %w", err)
		}
	}
	return nil
}
