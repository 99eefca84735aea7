package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommandKind is the set of operations a device accepts.
type CommandKind string

const (
	CommandPlay           CommandKind = "play"
	CommandPause          CommandKind = "pause"
	CommandStop           CommandKind = "stop"
	CommandReboot         CommandKind = "reboot"
	CommandUpdateSoftware CommandKind = "update-software"
	CommandCustom         CommandKind = "custom"
)

// CommandStatus tracks a dispatched command's resolution.
type CommandStatus string

const (
	CommandStatusPending  CommandStatus = "pending"
	CommandStatusExecuted CommandStatus = "executed"
	CommandStatusError    CommandStatus = "error"
)

// Command is a control operation issued to a device over REST. The gorm
// tags back the archive table for resolved commands; the json tags match
// the backend's command record.
type Command struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DeviceID  string         `json:"dispositivoId" gorm:"index;type:varchar(36)"`
	Kind      CommandKind    `json:"tipo" gorm:"type:varchar(32)"`
	Params    string         `json:"parametros" gorm:"type:text"` // JSON string
	Status    CommandStatus  `json:"estado" gorm:"type:varchar(16)"`
	Response  string         `json:"respuesta,omitempty" gorm:"type:text"`
	IssuedAt  string         `json:"fechaEmision" gorm:"type:varchar(64)"`
	CreatedAt string         `json:"-" gorm:"type:varchar(64)"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (c *Command) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if c.Status == "" {
		c.Status = CommandStatusPending
	}
	return nil
}
