package model

import (
	"time"

	"gorm.io/datatypes"
)

// RoundReport archives one resolved round: the state after it and the log
// lines it produced.
type RoundReport struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EncounterID      string         `gorm:"uniqueIndex:idx_report_round;size:64;not null" json:"encounter_id"`
	Round            int            `gorm:"uniqueIndex:idx_report_round;not null" json:"round"`
	ActivePlayers    int            `json:"active_players"`
	LivingMonsters   int            `json:"living_monsters"`
	DamageToMonsters int            `json:"damage_to_monsters"`
	State            datatypes.JSON `json:"state"`
	Log              datatypes.JSON `json:"log"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
