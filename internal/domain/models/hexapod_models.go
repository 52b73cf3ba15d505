package models

import (
	"time"

	pub "github.com/iwtcode/hexapodService/models"
)

// ChannelState - снимок канала агрегатора вместе с оценкой достижения цели.
type ChannelState struct {
	pub.ChannelSnapshot
	Formatted string      `json:"formatted"`
	Percent   float64     `json:"percent"`
	Verdict   pub.Verdict `json:"verdict"`
}

// TelemetryMessage - структура события для отправки в Kafka.
type TelemetryMessage struct {
	Device    string             `json:"device"`
	SessionID string             `json:"session_id,omitempty"`
	Type      pub.EventType      `json:"type"`
	Seq       uint64             `json:"seq"`
	Timestamp string             `json:"timestamp"`
	State     string             `json:"state"`
	Position  *pub.Vector6       `json:"position,omitempty"`
	Motion    *pub.MotionFlags   `json:"motion,omitempty"`
	Moving    *bool              `json:"moving,omitempty"`
	Analog    *pub.AnalogReading `json:"analog,omitempty"`
	ElapsedMs *float64           `json:"elapsed_ms,omitempty"`
	Failures  int                `json:"failures,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// NewTelemetryMessage преобразует событие в сообщение для Kafka.
func NewTelemetryMessage(ev pub.Event) TelemetryMessage {
	msg := TelemetryMessage{
		Device:    ev.Device,
		SessionID: ev.SessionID,
		Type:      ev.Type,
		Seq:       ev.Seq,
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		State:     ev.State.String(),
		Position:  ev.Position,
		Motion:    ev.Motion,
		Analog:    ev.Analog,
		Failures:  ev.Failures,
		Error:     ev.Error,
	}
	if ev.Type == pub.EventMotion {
		moving := ev.Moving
		msg.Moving = &moving
	}
	if ev.Type == pub.EventAnalog {
		ms := float64(ev.Elapsed) / float64(time.Millisecond)
		msg.ElapsedMs = &ms
	}
	return msg
}
