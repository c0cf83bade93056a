package models

import "time"

// ActivityLog is one audit trail entry describing a mutating admin action.
type ActivityLog struct {
	ID uint64 `gorm:"primaryKey"`
	// Action is the machine readable action name, e.g. "role_created".
	Action string `gorm:"size:64;not null;index"`
	// Description is the human readable summary shown in the activity log.
	Description string `gorm:"size:512"`
	// ActorID is the user that performed the action (0 for the system).
	ActorID uint64 `gorm:"index"`
	// TargetID is the identifier of the affected record.
	TargetID  uint64
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the database table name for the ActivityLog model.
func (ActivityLog) TableName() string {
	return "activity_logs"
}
