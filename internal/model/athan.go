package model

type Prayer struct {
	Name   string `json:"name"`   // "fajr", "sunrise", ...
	Label  string `json:"label"`  // "Fajr"
	Time   string `json:"time"`   // "05:12"
	Period string `json:"period"` // "AM" or "PM"
	Alarm  bool   `json:"alarm"`  // false for sunrise and midnight
}

type AthanDay struct {
	Date     string   `json:"date"` // "2024-11-03"
	Timezone string   `json:"timezone"`
	Method   string   `json:"method"`
	Prayers  []Prayer `json:"prayers"`
}
