// Package host is the chat-application side of the variable panel: it owns
// the live variable collections, persists them into the sqlite settings and
// conversation metadata documents, announces conversation switches and
// carries user notifications.
//
// Global variables live in the settings document under "variables.global".
// Local variables live in the active conversation's metadata document under
// "variables". Every other key of both documents is preserved on save.
package host
