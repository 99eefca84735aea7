package repositories

import "signage-console/entities"

// MessageArchive persists confirmed chat messages for audit and offline
// history. The in-memory store stays canonical; archiving is write-behind.
type MessageArchive interface {
	Save(msg *entities.ChatMessage) error
	ByConversation(conversationID string, limit int) ([]entities.ChatMessage, error)
}

// CommandArchive persists resolved device commands.
type CommandArchive interface {
	Save(cmd *entities.Command) error
	ByDevice(deviceID string, limit int) ([]entities.Command, error)
}
