package model

import "time"

type SensorReading struct {
	ID          int64     `json:"id"`
	DeviceID    string    `json:"deviceId"`
	SoundLevel  *float64  `json:"soundLevel"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	COLevel     *float64  `json:"coLevel"`
	RSSI        *int      `json:"rssi"`
	Timestamp   time.Time `json:"timestamp"`
}

type Alert struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

// SensorStats aggregates readings over a window. Averages are nil when the
// window holds no values for that sensor.
type SensorStats struct {
	AvgSound      *float64 `json:"avgSound"`
	MaxSound      *float64 `json:"maxSound"`
	AvgTemp       *float64 `json:"avgTemp"`
	MaxTemp       *float64 `json:"maxTemp"`
	MinTemp       *float64 `json:"minTemp"`
	AvgHumidity   *float64 `json:"avgHumidity"`
	AvgCO         *float64 `json:"avgCO"`
	MaxCO         *float64 `json:"maxCO"`
	TotalReadings int      `json:"totalReadings"`
}

type SystemState string

const (
	StateOnline  SystemState = "ONLINE"
	StateOffline SystemState = "OFFLINE"
)

type RFIDCard struct {
	CardID      string    `json:"cardId"`
	StudentName string    `json:"studentName"`
	RFIDUID     string    `json:"rfidUid"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AccessAction string

const (
	ActionEntry AccessAction = "ENTRY"
	ActionExit  AccessAction = "EXIT"
)

type AccessLog struct {
	ID          int64        `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	Action      AccessAction `json:"action"`
	StudentName string       `json:"studentName"`
	RFIDUID     string       `json:"rfidUid"`
}

// Attendance is one student's card activity over a day.
type Attendance struct {
	StudentName string    `json:"studentName"`
	RFIDUID     string    `json:"rfidUid"`
	Entries     int       `json:"entries"`
	FirstEntry  time.Time `json:"firstEntry"`
	LastEntry   time.Time `json:"lastEntry"`
}
