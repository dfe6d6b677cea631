package packets

// RESPONSES FOR /api/*

type RemainingResponse struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

type NextPrayerResponse struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	Time      string            `json:"time"`
	At        string            `json:"at"`
	Tomorrow  bool              `json:"tomorrow"`
	Remaining RemainingResponse `json:"remaining"`
}

type PushTokenResponse struct {
	ID               int64   `json:"id"`
	Token            string  `json:"token"`
	DeviceIdentifier *string `json:"deviceIdentifier"`
	UpdatedAt        string  `json:"updatedAt"`
}
