package host

import (
	"errors"
	"time"
)

var (
	// ErrNoConversation is returned when saving local variables with no
	// conversation open.
	ErrNoConversation = errors.New("no active conversation")
	// ErrStateUnavailable is returned by LocalVariables while the active
	// conversation is being swapped.
	ErrStateUnavailable = errors.New("conversation state unavailable")
	// ErrConversationNotFound is returned when opening an unknown chat id.
	ErrConversationNotFound = errors.New("conversation not found")
)

// NotificationKind classifies a user-visible message.
type NotificationKind string

const (
	Success NotificationKind = "success"
	Error   NotificationKind = "error"
)

// Notification is one toast-style message for the user.
type Notification struct {
	Kind    NotificationKind
	Message string
	At      time.Time
}

// ConversationChanged is published whenever the active conversation
// identity changes. An empty ID means no conversation.
type ConversationChanged struct {
	Previous string
	Current  string
}

// PanelSettings is the panel's persisted configuration.
type PanelSettings struct {
	IsShown  bool    `json:"isShown"`
	FontSize float64 `json:"fontSize"`
}

// DefaultPanelSettings returns the settings used when none are stored.
func DefaultPanelSettings() PanelSettings {
	return PanelSettings{IsShown: false, FontSize: 1.0}
}
