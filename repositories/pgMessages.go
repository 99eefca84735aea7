package repositories

import (
	"gorm.io/gorm/clause"

	"signage-console/db"
	"signage-console/entities"
)

type messagePgArchive struct {
	db db.Database
}

func NewMessagePgArchive(database db.Database) MessageArchive {
	return &messagePgArchive{db: database}
}

// Save upserts by message id: the same echo replayed after a reconnect
// must not produce a second row.
func (r *messagePgArchive) Save(msg *entities.ChatMessage) error {
	return r.db.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(msg).Error
}

func (r *messagePgArchive) ByConversation(conversationID string, limit int) ([]entities.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []entities.ChatMessage
	err := r.db.GetDB().
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}
