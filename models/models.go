package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// AxisCount - число управляемых осей гексапода.
const AxisCount = 6

// Axis - индекс оси в фиксированном порядке X, Y, Z, U, V, W.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisU
	AxisV
	AxisW
)

// AxisNames содержит имена осей в порядке индексов.
var AxisNames = [AxisCount]string{"X", "Y", "Z", "U", "V", "W"}

func (a Axis) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return AxisNames[a]
}

// Valid сообщает, входит ли индекс в диапазон X..W.
func (a Axis) Valid() bool {
	return a >= AxisX && a <= AxisW
}

// ParseAxis разбирает имя оси без учета регистра.
func ParseAxis(name string) (Axis, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, axisName := range AxisNames {
		if axisName == n {
			return Axis(i), true
		}
	}
	return 0, false
}

// Vector6 - вектор из шести значений по осям X, Y, Z, U, V, W.
// Для команд движения это относительное смещение в единицах устройства (мм).
type Vector6 [AxisCount]float64

// Finite сообщает, что все компоненты вектора конечны.
func (v Vector6) Finite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Add возвращает покомпонентную сумму векторов.
func (v Vector6) Add(o Vector6) Vector6 {
	var out Vector6
	for i := range v {
		out[i] = v[i] + o[i]
	}
	return out
}

// NonZero возвращает число ненулевых компонент.
func (v Vector6) NonZero() int {
	n := 0
	for _, c := range v {
		if c != 0 {
			n++
		}
	}
	return n
}

// MotionFlags - флаги движения по каждой оси.
type MotionFlags [AxisCount]bool

// Any сообщает, движется ли хотя бы одна ось.
func (f MotionFlags) Any() bool {
	for _, moving := range f {
		if moving {
			return true
		}
	}
	return false
}

// AnalogReading - значения аналоговых входов контроллера (каналы 5 и 6).
type AnalogReading struct {
	Ch5 float64 `json:"ch5"`
	Ch6 float64 `json:"ch6"`
}

// DeviceConnection - неизменяемое описание подключения к гексаподу.
type DeviceConnection struct {
	Name        string `json:"name" yaml:"name"`
	Address     string `json:"ipAddress" yaml:"ipAddress"`
	Port        int    `json:"port" yaml:"port"`
	AutoConnect bool   `json:"autoConnect,omitempty" yaml:"autoConnect,omitempty"`
}

// Key возвращает ключ устройства; имена сравниваются без учета регистра.
func (c DeviceConnection) Key() string {
	return NameKey(c.Name)
}

// Endpoint возвращает адрес в формате "IP:PORT".
func (c DeviceConnection) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// Validate проверяет имя, адрес и порт.
func (c DeviceConnection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("device name is empty")
	}
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("device %q: address is empty", c.Name)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("device %q: port %d out of range", c.Name, c.Port)
	}
	return nil
}

func (c DeviceConnection) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Endpoint())
}

// NameKey нормализует имя устройства для поиска.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SessionState - состояние сессии устройства.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateFaulted
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Live сообщает, занимает ли сессия в этом состоянии имя устройства.
func (s SessionState) Live() bool {
	return s != StateDisconnected && s != StateFaulted
}

func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionInfo - снимок состояния сессии для чтения наблюдателями.
type SessionInfo struct {
	SessionID   string        `json:"session_id"`
	Name        string        `json:"name"`
	Address     string        `json:"ip_address"`
	Port        int           `json:"port"`
	State       SessionState  `json:"state"`
	Position    Vector6       `json:"position"`
	MotionFlags MotionFlags   `json:"motion_flags"`
	Moving      bool          `json:"moving"`
	Analog      AnalogReading `json:"analog"`
	Seq         uint64        `json:"seq"`
	Failures    int           `json:"failures"`
	ConnectedAt time.Time     `json:"connected_at,omitempty"`
	LastUpdate  time.Time     `json:"last_update,omitempty"`
}
