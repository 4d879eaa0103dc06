package models

import "time"

// Timestamps adds GORM auto-times. Rows are hard-deleted, so there is no DeletedAt.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
