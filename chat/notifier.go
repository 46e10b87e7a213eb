// Package chat defines the outbound boundary to the chat-platform bridge.
// The core publishes through it and never talks to the platform directly;
// delivery failures are transient and must not fail committed transitions.
package chat

import "context"

// ChannelRole names one of the four configured channels of a group. The
// bridge resolves the role to a concrete channel using the group config.
type ChannelRole string

const (
	RoleSignup        ChannelRole = "signup"
	RoleSubmissions   ChannelRole = "submissions"
	RoleAnnouncements ChannelRole = "announcements"
	RoleBoard         ChannelRole = "board"
)

// Reaction emojis seeded on posts so participants can signal back.
const (
	ReactionJoin    = "✅"     // white check mark
	ReactionLeave   = "❌"     // cross mark
	ReactionApprove = "\U0001F44D" // thumbs up
)

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// Message is one outbound post. Reactions are seeded by the bridge after
// delivery.
type Message struct {
	Content   string   `json:"content"`
	Embed     *Embed   `json:"embed,omitempty"`
	AssetURL  string   `json:"asset_url,omitempty"`
	Reactions []string `json:"reactions,omitempty"`
}

// Notifier is the outbound collaborator interface consumed by the core.
type Notifier interface {
	// PublishMessage delivers a message to the role's channel and returns
	// the platform message reference for later edits.
	PublishMessage(ctx context.Context, groupID int64, role ChannelRole, msg Message) (int64, error)

	// EditMessage replaces the content of a previously published message.
	EditMessage(ctx context.Context, groupID int64, role ChannelRole, messageID int64, content string) error

	// RevealAsset publishes a stored asset (the board image) to the role's
	// channel with a caption.
	RevealAsset(ctx context.Context, groupID int64, role ChannelRole, assetURL, caption string) error
}
