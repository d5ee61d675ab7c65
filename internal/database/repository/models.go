package repository

import "time"

// Chat represents a conversation row. Metadata is the conversation's
// free-form JSON document; variables live under its "variables" key.
type Chat struct {
	ID        string
	Name      string
	Metadata  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SettingsNamespace is the row holding the application settings document.
const SettingsNamespace = "extension_settings"

// Paths inside the settings and chat metadata documents.
const (
	GlobalVariablesPath = "variables.global"
	PanelSettingsPath   = "st-variable-editor"
	ActiveChatPath      = "active_chat"
	ChatVariablesPath   = "variables"
)
