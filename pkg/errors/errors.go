package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	InternalServerError = "internal server error"
	BadRequest          = "bad request"
	NotFound            = "not_found"
	Conflict            = "conflict"
	UnprocessableEntity = "unprocessable_entity"
	BadGateway          = "device unreachable"
	GatewayTimeout      = "device timeout"

	InvalidDataCode         = 402
	NotFoundErrorCode       = 404
	ConflictErrorCode       = 409
	UnprocessableErrorCode  = 422
	InternalServerErrorCode = 500
	BadGatewayErrorCode     = 502
	GatewayTimeoutErrorCode = 504
)

// AppError представляет собой стандартизированную структуру ошибки для API.
type AppError struct {
	Code         int    `json:"code"`    // HTTP статус код
	Message      string `json:"message"` // Сообщение для клиента
	Err          error  `json:"-"`       // Внутренняя ошибка, не для клиента
	IsUserFacing bool   `json:"-"`       // Флаг, указывающий, можно ли показывать `Err`
}

func (a *AppError) Error() string {
	if a == nil {
		return ""
	}
	if a.Err != nil {
		return fmt.Sprintf("%s (code: %d): %v", a.Message, a.Code, a.Err)
	}
	return fmt.Sprintf("%s (code: %d)", a.Message, a.Code)
}

func (a *AppError) Unwrap() error {
	return a.Err
}

// NewAppError создает новый экземпляр AppError.
func NewAppError(httpCode int, message string, err error, isUserFacing bool) *AppError {
	return &AppError{
		Code:         httpCode,
		Message:      message,
		Err:          err,
		IsUserFacing: isUserFacing,
	}
}

// Коды ошибок подключения.
var (
	ErrConnectTimeout   = errors.New("connect timeout")
	ErrConnectRefused   = errors.New("connect refused")
	ErrProtocolMismatch = errors.New("protocol mismatch")
)

// Коды ошибок движения.
var (
	ErrNotConnected   = errors.New("not connected")
	ErrDeviceRejected = errors.New("device rejected")
	ErrBusy           = errors.New("busy")
	ErrMotionTimeout  = errors.New("motion timeout")
)

// Коды ошибок реестра сессий.
var (
	ErrAlreadyActive = errors.New("already active")
	ErrNotFound      = errors.New("not found")
)

// Коды ошибок опроса.
var (
	ErrPollTimeout = errors.New("poll timeout")
	ErrDeviceFault = errors.New("device fault")
)

var (
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrSessionFaulted    = errors.New("session faulted")
	ErrDrainTimeout      = errors.New("drain timeout")
	ErrShuttingDown      = errors.New("registry shutting down")
	ErrInvalidAxis       = errors.New("invalid axis")
	ErrInvalidJog        = errors.New("invalid jog parameters")
	ErrInvalidConnection = errors.New("invalid connection")
	ErrInternal          = errors.New("internal error")
)

// deviceError - общая часть типизированных ошибок: код из таксономии, устройство,
// операция и исходная причина.
type deviceError struct {
	Code   error
	Device string
	Op     string
	Err    error
}

func (e *deviceError) format(kind string) string {
	msg := fmt.Sprintf("%s: %s", kind, e.Code)
	if e.Device != "" {
		msg = fmt.Sprintf("%s: device %q", msg, e.Device)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Op)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// ConnectError возвращается при неудачном рукопожатии с устройством.
type ConnectError struct{ deviceError }

func (e *ConnectError) Error() string   { return e.format("connect") }
func (e *ConnectError) Unwrap() []error { return []error{e.Code, e.Err} }

// MotionError возвращается командами движения.
type MotionError struct{ deviceError }

func (e *MotionError) Error() string   { return e.format("motion") }
func (e *MotionError) Unwrap() []error { return []error{e.Code, e.Err} }

// RegistryError возвращается реестром сессий.
type RegistryError struct{ deviceError }

func (e *RegistryError) Error() string   { return e.format("registry") }
func (e *RegistryError) Unwrap() []error { return []error{e.Code, e.Err} }

// PollError возвращается чтениями состояния устройства.
type PollError struct{ deviceError }

func (e *PollError) Error() string   { return e.format("poll") }
func (e *PollError) Unwrap() []error { return []error{e.Code, e.Err} }

func NewConnectError(code error, device string, err error) *ConnectError {
	return &ConnectError{deviceError{Code: code, Device: device, Op: "connect", Err: err}}
}

func NewMotionError(code error, device, op string, err error) *MotionError {
	return &MotionError{deviceError{Code: code, Device: device, Op: op, Err: err}}
}

func NewRegistryError(code error, device string) *RegistryError {
	return &RegistryError{deviceError{Code: code, Device: device}}
}

func NewPollError(code error, device, op string, err error) *PollError {
	return &PollError{deviceError{Code: code, Device: device, Op: op, Err: err}}
}

// HTTPStatus сопоставляет ошибку из таксономии с HTTP статусом.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyActive), errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrBusy), errors.Is(err, ErrSessionFaulted), errors.Is(err, ErrShuttingDown):
		return http.StatusConflict
	case errors.Is(err, ErrDeviceRejected), errors.Is(err, ErrInvalidAxis), errors.Is(err, ErrInvalidJog),
		errors.Is(err, ErrUnknownChannel), errors.Is(err, ErrInvalidConnection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConnectTimeout), errors.Is(err, ErrMotionTimeout), errors.Is(err, ErrPollTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrConnectRefused), errors.Is(err, ErrProtocolMismatch), errors.Is(err, ErrDeviceFault):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
