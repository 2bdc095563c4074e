package model

import (
	"time"

	"gorm.io/datatypes"
)

type Player struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:100;not null;index" json:"name"`
	Balance     float64   `gorm:"default:0;not null" json:"balance"`
	GamesPlayed int       `gorm:"default:0;not null" json:"games_played"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	BalanceLogBuyIn      = "buy_in"
	BalanceLogResult     = "result"
	BalanceLogSeatResult = "seat_result"
)

type BalanceLog struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID     int64          `gorm:"index;not null" json:"player_id"`
	Type         string         `gorm:"size:32;not null" json:"type"` // buy_in/result/seat_result
	Delta        float64        `json:"delta"`
	BalanceAfter float64        `json:"balance_after"`
	TableNumber  *int           `json:"table_number,omitempty"`
	SeatIndex    *int           `json:"seat_index,omitempty"`
	MetaJSON     datatypes.JSON `json:"meta,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// All lists the models created at startup.
func All() []interface{} {
	return []interface{}{
		&Player{},
		&BalanceLog{},
	}
}
