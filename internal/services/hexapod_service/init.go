package hexapod_service

import (
	"context"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"
)

// ServiceOptions собирает параметры сессий и диспетчера толчковых команд.
type ServiceOptions struct {
	Session    SessionOptions
	JogPolicy  JogPolicy
	JogBacklog int
}

// NewServiceOptions переводит конфигурацию приложения в параметры сервиса.
func NewServiceOptions(cfg *config.AppConfig) ServiceOptions {
	analog := config.Millis(cfg.Polling.AnalogIntervalMs)
	if !cfg.Polling.AnalogEnable {
		analog = 0
	}
	return ServiceOptions{
		Session: SessionOptions{
			ConnectTimeout:   config.Millis(cfg.Session.ConnectTimeoutMs),
			IOTimeout:        config.Millis(cfg.Session.IOTimeoutMs),
			DrainTimeout:     config.Millis(cfg.Session.DrainTimeoutMs),
			FailureThreshold: cfg.Session.FailureThreshold,
			Polling: PollIntervals{
				Position: config.Millis(cfg.Polling.PositionIntervalMs),
				Motion:   config.Millis(cfg.Polling.MotionIntervalMs),
				Analog:   analog,
			},
			Window: cfg.AggregatorWindow,
		},
		JogPolicy:  ParseJogPolicy(cfg.Jog.Policy),
		JogBacklog: cfg.Jog.Backlog,
	}
}

type hexapodService struct {
	registry *SessionRegistry
	jog      *JogDispatcher
}

func NewHexapodService(
	transport interfaces.DeviceTransport,
	aggregator interfaces.ChannelAggregator,
	broker interfaces.TelemetryBroker,
	opts ServiceOptions,
	logger *logging.Logger,
) interfaces.HexapodService {
	return &hexapodService{
		registry: NewSessionRegistry(transport, aggregator, broker, opts.Session, logger),
		jog:      NewJogDispatcher(opts.JogPolicy, opts.JogBacklog, logger),
	}
}

// --- Реализация методов интерфейса HexapodService ---

func (s *hexapodService) OpenSession(ctx context.Context, conn models.DeviceConnection) (models.SessionInfo, error) {
	session, err := s.registry.OpenSession(ctx, conn)
	if err != nil {
		return models.SessionInfo{}, err
	}
	return session.Snapshot(), nil
}

func (s *hexapodService) CloseSession(name string) error {
	return s.registry.CloseSession(name)
}

func (s *hexapodService) GetSession(name string) (models.SessionInfo, error) {
	session, err := s.registry.Lookup(name)
	if err != nil {
		return models.SessionInfo{}, err
	}
	return session.Snapshot(), nil
}

func (s *hexapodService) ListSessions() []models.SessionInfo {
	return s.registry.List()
}

func (s *hexapodService) ShutdownAll() error {
	return s.registry.ShutdownAll()
}

func (s *hexapodService) MoveRelative(ctx context.Context, name string, vector models.Vector6) error {
	session, err := s.registry.Lookup(name)
	if err != nil {
		return err
	}
	return session.MoveRelative(ctx, vector)
}

func (s *hexapodService) ReadPosition(ctx context.Context, name string) (models.Vector6, error) {
	session, err := s.registry.Lookup(name)
	if err != nil {
		return models.Vector6{}, err
	}
	return session.ReadPosition(ctx)
}

func (s *hexapodService) Jog(ctx context.Context, name string, axis models.Axis, direction int, step float64) error {
	session, err := s.registry.Lookup(name)
	if err != nil {
		return err
	}
	return s.jog.Jog(ctx, session, axis, direction, step)
}
