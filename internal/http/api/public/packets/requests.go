package packets

// REQUESTS FOR /api/*

type RegisterPushTokenRequest struct {
	Token            string  `json:"token" binding:"required"`
	DeviceIdentifier *string `json:"deviceIdentifier"`
}
