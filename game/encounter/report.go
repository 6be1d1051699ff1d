package encounter

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kasuganosora/raidtable/model"
)

// ReportStore archives resolved rounds.
type ReportStore interface {
	Create(ctx context.Context, report *model.RoundReport) error
}

// GormReportStore writes round reports through gorm.
type GormReportStore struct {
	db *gorm.DB
}

// NewReportStore returns a ReportStore backed by db.
func NewReportStore(db *gorm.DB) *GormReportStore {
	return &GormReportStore{db: db}
}

// Create inserts report. A round that is resolved again after an undo
// replaces the earlier row.
func (s *GormReportStore) Create(ctx context.Context, report *model.RoundReport) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "encounter_id"}, {Name: "round"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active_players", "living_monsters", "damage_to_monsters", "state", "log", "created_at",
		}),
	}).Create(report).Error
}

// ListByEncounter returns the archived rounds of one encounter, oldest first.
func (s *GormReportStore) ListByEncounter(ctx context.Context, encounterID string) ([]model.RoundReport, error) {
	var out []model.RoundReport
	err := s.db.WithContext(ctx).
		Where("encounter_id = ?", encounterID).
		Order("round ASC").
		Find(&out).Error
	return out, err
}
