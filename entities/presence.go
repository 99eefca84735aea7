package entities

// PresenceKind distinguishes the two typing signals.
type PresenceKind string

const (
	PresenceTyping  PresenceKind = "typing"
	PresenceStopped PresenceKind = "stopped"
)

// PresenceSignal is an ephemeral typing notification. Never persisted;
// only the most recent signal per user matters.
type PresenceSignal struct {
	ConversationID string       `json:"conversacionId"`
	UserID         string       `json:"usuarioId"`
	Kind           PresenceKind `json:"-"`
}
