package model

import "time"

type PushToken struct {
	ID               int64     `db:"id" json:"id"`
	Token            string    `db:"token" json:"token"`
	DeviceIdentifier *string   `db:"device_identifier" json:"deviceIdentifier,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}
