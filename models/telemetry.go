package models

import "time"

// EventType - тип телеметрического события.
type EventType string

const (
	EventPosition EventType = "position"
	EventMotion   EventType = "motion"
	EventAnalog   EventType = "analog"
	EventState    EventType = "state"
	EventFault    EventType = "fault"
)

// Event - телеметрическое событие, публикуемое сессией подписчикам.
// Заполняется только поле, соответствующее типу.
type Event struct {
	Type      EventType      `json:"type"`
	Device    string         `json:"device"`
	SessionID string         `json:"session_id,omitempty"`
	Seq       uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Position  *Vector6       `json:"position,omitempty"`
	Motion    *MotionFlags   `json:"motion,omitempty"`
	Moving    bool           `json:"moving,omitempty"`
	Analog    *AnalogReading `json:"analog,omitempty"`
	Elapsed   time.Duration  `json:"elapsed_ns,omitempty"`
	State     SessionState   `json:"state"`
	Failures  int            `json:"failures,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ChannelSpec описывает канал из каталога при старте.
type ChannelSpec struct {
	ID     int     `json:"Id" yaml:"Id"`
	Name   string  `json:"-" yaml:"-"`
	Unit   string  `json:"Unit" yaml:"Unit"`
	Target float64 `json:"Target" yaml:"Target"`
}

// ChannelSnapshot - согласованный снимок канала.
type ChannelSnapshot struct {
	Name    string    `json:"name"`
	Unit    string    `json:"unit"`
	Value   float64   `json:"value"`
	Average float64   `json:"average"`
	Target  float64   `json:"target"`
	Window  []float64 `json:"window"`
	Samples uint64    `json:"samples"`
}

// Verdict - результат сравнения среднего значения канала с целевым.
type Verdict string

const (
	VerdictNA       Verdict = "n/a"
	VerdictNeedWork Verdict = "need work"
	VerdictPass     Verdict = "pass"
)

// Evaluation - вердикт вместе с процентом достижения цели.
type Evaluation struct {
	Channel string  `json:"channel"`
	Percent float64 `json:"percent"`
	Verdict Verdict `json:"verdict"`
}

// Имена каналов, которые заполняет планировщик опроса, если они есть в каталоге.
const (
	ChannelAnalog5 = "PICH5"
	ChannelAnalog6 = "PICH6"
)

// PositionChannel возвращает имя канала позиции для оси.
func PositionChannel(axis Axis) string {
	return "POS_" + axis.String()
}
