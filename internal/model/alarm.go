package model

import "time"

// AlarmEntry is one armed prayer alarm. NotificationID equals Prayer so
// that re-arming a prayer replaces its previous notification.
type AlarmEntry struct {
	Prayer         string    `json:"prayer"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	NotificationID string    `json:"notificationId"`
}

// AlarmEvent is a row of fired or tapped alarm history.
type AlarmEvent struct {
	ID          int64     `db:"id" json:"id"`
	Prayer      string    `db:"prayer" json:"prayer"`
	Kind        string    `db:"kind" json:"kind"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduledAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
