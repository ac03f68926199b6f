package core

import (
	"time"

	"visitrack.net/visitrack/model"
)

// Event names delivered to company rooms.
const (
	EventStationStatusUpdated   = "stationStatusUpdated"
	EventStationMoved           = "stationMoved"
	EventStationApprovalUpdated = "stationApprovalUpdated"
	EventBuildingCreated        = "buildingCreated"
	EventBuildingDeleted        = "buildingDeleted"
	EventAttendanceUpdated      = "attendanceUpdated"
	EventDashboardStatsUpdated  = "dashboardStatsUpdated"
	EventAlarmTriggered         = "alarmTriggered"
	EventAlarmAcknowledged      = "alarmAcknowledged"
)

// Broadcaster fans typed events out to a company's admin connections.
// Services call it only after the corresponding write has committed, and
// treat delivery as best-effort: a room with no subscribers is not an error.
type Broadcaster interface {
	BroadcastToCompany(companyID int32, event string, payload interface{})
	// EvictStation force-closes the live real-time connection of a station,
	// if any. Used on delete and forced logout.
	EvictStation(stationID int32)
}

// NopBroadcaster satisfies Broadcaster without delivering anything.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToCompany(int32, string, interface{}) {}
func (NopBroadcaster) EvictStation(int32)                            {}

type StationStatusPayload struct {
	StationID int32      `json:"stationId"`
	IsOnline  bool       `json:"isOnline"`
	LastPing  *time.Time `json:"lastPing"`
}

type StationMovedPayload struct {
	StationID  int32  `json:"stationId"`
	BuildingID *int32 `json:"buildingId"`
}

type StationApprovalPayload struct {
	StationID int32 `json:"stationId"`
	Approved  bool  `json:"approved"`
}

type BuildingPayload struct {
	BuildingID int32  `json:"buildingId"`
	Name       string `json:"name"`
}

type AttendancePayload struct {
	RecordID    int32      `json:"recordId"`
	BuildingID  int32      `json:"buildingId"`
	StationID   int32      `json:"stationId"`
	VisitorID   int32      `json:"visitorId"`
	VisitorName string     `json:"visitorName"`
	Direction   string     `json:"direction"`
	CheckIn     time.Time  `json:"checkIn"`
	CheckOut    *time.Time `json:"checkOut"`
}

type AlarmTriggeredPayload struct {
	AlarmID       int32     `json:"alarmId"`
	BuildingID    int32     `json:"buildingId"`
	BuildingName  string    `json:"buildingName"`
	Code          int       `json:"code"`
	Message       string    `json:"message"`
	AffectedCount int       `json:"affectedCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AlarmAckedPayload struct {
	AlarmID int32     `json:"alarmId"`
	UserID  int32     `json:"userId"`
	AckedAt time.Time `json:"ackedAt"`
}

// OpsNotifier pushes a short operational note to wherever the operators
// live (Slack in production). Best-effort only.
type OpsNotifier interface {
	Info(message string) error
}

// VisitorNotifier delivers the emergency message to one affected visitor.
// Actual delivery is a collaborator concern; the shipped implementation
// only logs the would-be SMS.
type VisitorNotifier interface {
	NotifyAlarm(person model.AlarmPerson, message string)
}
