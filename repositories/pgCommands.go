package repositories

import (
	"gorm.io/gorm/clause"

	"signage-console/db"
	"signage-console/entities"
)

type commandPgArchive struct {
	db db.Database
}

func NewCommandPgArchive(database db.Database) CommandArchive {
	return &commandPgArchive{db: database}
}

func (r *commandPgArchive) Save(cmd *entities.Command) error {
	return r.db.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(cmd).Error
}

func (r *commandPgArchive) ByDevice(deviceID string, limit int) ([]entities.Command, error) {
	if limit <= 0 {
		limit = 50
	}
	var cmds []entities.Command
	err := r.db.GetDB().
		Where("device_id = ?", deviceID).
		Order("issued_at DESC").
		Limit(limit).
		Find(&cmds).Error
	return cmds, err
}
