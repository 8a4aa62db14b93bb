package models

import (
	"time"

	"gorm.io/datatypes"
)

// DashboardSnapshot — последний удачный ответ ERP по секции дашборда.
// Служит fallback-ом, когда Odoo недоступен: отдаём stale-копию вместо 502.
type DashboardSnapshot struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Key       string         `gorm:"uniqueIndex;size:64;not null" json:"key"`
	Payload   datatypes.JSON `json:"payload"`
	UpdatedAt time.Time      `json:"updated_at"`
}
