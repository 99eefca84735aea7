package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryState tracks a chat message's trip to the server. Messages are
// created locally in "sending" and move to "sent" when the server echo
// comes back with the same id.
type DeliveryState string

const (
	DeliverySending DeliveryState = "sending"
	DeliverySent    DeliveryState = "sent"
	DeliveryError   DeliveryState = "error"
)

// ChatMessage is one message in a conversation. The json tags match the
// platform wire format; the gorm tags back the archive table.
type ChatMessage struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ConversationID string         `json:"conversacionId" gorm:"index;type:varchar(36)"`
	SenderID       string         `json:"emisorId" gorm:"type:varchar(36)"`
	SenderName     string         `json:"emisorNombre" gorm:"type:varchar(128)"`
	Content        string         `json:"contenido" gorm:"type:text"`
	Timestamp      string         `json:"fecha" gorm:"type:varchar(64)"`
	Read           bool           `json:"leido"`
	Delivery       DeliveryState  `json:"-" gorm:"type:varchar(16)"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

// ReadReceipt marks messages up to a point in a conversation as read.
type ReadReceipt struct {
	ConversationID string `json:"conversacionId"`
	MessageID      string `json:"mensajeId"`
	ReaderID       string `json:"lectorId"`
}
