package aladhan

// response is the Al Adhan API envelope. Code mirrors the HTTP status
// (200 on success) even when the transport succeeds.
type response struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   data   `json:"data"`
}

type data struct {
	Timings timings  `json:"timings"`
	Date    dateInfo `json:"date"`
	Meta    meta     `json:"meta"`
}

// timings carries prayer and event times as "HH:MM" strings; the API may
// append a timezone suffix like " (BST)" which is stripped during parsing.
type timings struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

type dateInfo struct {
	Readable string    `json:"readable"`
	Hijri    hijriDate `json:"hijri"`
}

type hijriDate struct {
	Date  string     `json:"date"` // e.g. "10-08-1447"
	Day   string     `json:"day"`
	Month hijriMonth `json:"month"`
	Year  string     `json:"year"`
}

type hijriMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"`
	Ar     string `json:"ar"`
}

type meta struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}
