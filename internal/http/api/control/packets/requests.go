package packets

// REQUESTS FOR /api/alarms/* and /api/notifications/*

// NotificationEventRequest reports a tap or background wake-up observed on a
// device. Prayer names a prayer alarm, Type names the reschedule marker.
type NotificationEventRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Prayer string `json:"prayer"`
	Type   string `json:"_type"`
}
