package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records one command sent to an encounter.
type AuditLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID     string         `gorm:"index:idx_audit_trace;size:64;not null" json:"trace_id"`
	EncounterID string         `gorm:"index:idx_audit_encounter;size:64" json:"encounter_id"`
	Actor       string         `gorm:"size:16" json:"actor"` // public | gm | operator
	Action      string         `gorm:"size:64;not null" json:"action"`
	Request     datatypes.JSON `json:"request"`
	Applied     bool           `json:"applied"`
	Error       string         `gorm:"type:text" json:"error"`
	IP          string         `gorm:"size:45" json:"ip"`
	Round       int            `json:"round"`
	DurationMs  int            `json:"duration_ms"`
	CreatedAt   time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
