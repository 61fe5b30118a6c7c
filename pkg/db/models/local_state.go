package models

import "time"

// LocalState is one persisted slice of terminal state (cart, table grid, tab grid)
// stored as a versioned JSON envelope.
type LocalState struct {
	Key       string    `gorm:"column:state_key;primaryKey;size:191"`
	Version   int       `gorm:"column:version;not null"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (LocalState) TableName() string { return "local_state" }
