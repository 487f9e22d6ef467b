package models

import "time"

// AuditAction names what happened to an entity
type AuditAction string

const (
	AuditCreate       AuditAction = "CREATE"
	AuditUpdate       AuditAction = "UPDATE"
	AuditDelete       AuditAction = "DELETE"
	AuditAssign       AuditAction = "ASSIGN"
	AuditUnassign     AuditAction = "UNASSIGN"
	AuditRepair       AuditAction = "REPAIR"
	AuditMarkFixed    AuditAction = "MARK_FIXED"
	AuditDecommission AuditAction = "DECOMMISSION"
	AuditDeactivate   AuditAction = "DEACTIVATE"
	AuditImport       AuditAction = "IMPORT"
)

const (
	EntityAsset    = "asset"
	EntityEmployee = "employee"
	EntityRepair   = "repair"
	EntityUser     = "user"
)

// AuditEntry is an append-only record of a change
type AuditEntry struct {
	ID         int64       `json:"id"`
	UserID     *int64      `json:"user_id,omitempty"`
	AssetID    *int64      `json:"asset_id,omitempty"`
	Action     AuditAction `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   *int64      `json:"entity_id,omitempty"`
	Changes    JSONB       `json:"changes,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// SweepRun marks the calendar day a warranty sweep ran
type SweepRun struct {
	RunDate           Date      `json:"run_date"`
	RunID             string    `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	NotificationCount int       `json:"notification_count"`
}

// WarrantyNotification records one alert emitted by a sweep
type WarrantyNotification struct {
	ID            int64     `json:"id"`
	AssetID       int64     `json:"asset_id"`
	RunID         string    `json:"run_id"`
	Tier          string    `json:"tier"`
	DaysRemaining int       `json:"days_remaining"`
	Recipients    int       `json:"recipients"`
	SentAt        time.Time `json:"sent_at"`
}
