package packets

import "github.com/Nixie-Tech-LLC/azaan/internal/model"

// RESPONSES FOR /api/alarms/*

type AlarmsResponse struct {
	Alarms  []model.AlarmEntry   `json:"alarms"`
	Pending []model.Notification `json:"pending"`
}

type StateResponse struct {
	State  string `json:"state"`
	DayKey string `json:"dayKey,omitempty"`
}

type RebuildResponse struct {
	Day     string             `json:"day"`
	Path    string             `json:"path"`
	Skipped bool               `json:"skipped"`
	Alarms  []model.AlarmEntry `json:"alarms"`
}

type AssetResponse struct {
	Location string `json:"location"`
}

type PlaybackResponse struct {
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"` // seconds
}

type PushTokenResponse struct {
	ID               int64   `json:"id"`
	Token            string  `json:"token"`
	DeviceIdentifier *string `json:"deviceIdentifier"`
	UpdatedAt        string  `json:"updatedAt"`
}
