package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayPublishMessage(t *testing.T) {
	var gotPath, gotAuth string
	var gotMsg Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMsg))
		require.Equal(t, http.MethodPost, r.Method)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int64{"message_id": 424242})
	}))
	defer server.Close()

	notifier, err := NewRelayNotifier(RelayConfig{BaseURL: server.URL, AuthToken: "secret"})
	require.NoError(t, err)

	id, err := notifier.PublishMessage(context.Background(), 500, RoleAnnouncements, Message{
		Content:   "hello",
		Reactions: []string{ReactionJoin},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(424242), id)
	assert.Equal(t, "/groups/500/channels/announcements/messages", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "hello", gotMsg.Content)
	assert.Equal(t, []string{ReactionJoin}, gotMsg.Reactions)
}

func TestRelayEditMessage(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier, err := NewRelayNotifier(RelayConfig{BaseURL: server.URL})
	require.NoError(t, err)

	require.NoError(t, notifier.EditMessage(context.Background(), 500, RoleAnnouncements, 424242, "updated"))
	assert.Equal(t, "/groups/500/channels/announcements/messages/424242", gotPath)
	assert.Equal(t, http.MethodPatch, gotMethod)
}

func TestRelayBridgeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "channel not configured", http.StatusBadRequest)
	}))
	defer server.Close()

	notifier, err := NewRelayNotifier(RelayConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = notifier.PublishMessage(context.Background(), 500, RoleSignup, Message{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge returned 400")
}

func TestRelayRequiresBaseURL(t *testing.T) {
	_, err := NewRelayNotifier(RelayConfig{})
	assert.Error(t, err)
}
