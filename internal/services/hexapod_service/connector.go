package hexapod_service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"
)

// SessionRegistry хранит сессии по имени устройства. Блокировка защищает только карту
// и никогда не удерживается во время обмена с устройством.
type SessionRegistry struct {
	mu           sync.RWMutex
	pool         map[string]*Session
	shuttingDown bool
	shutdownOnce sync.Once
	shutdownErr  error

	transport  interfaces.DeviceTransport
	aggregator interfaces.ChannelAggregator
	publisher  interfaces.TelemetryPublisher
	opts       SessionOptions
	base       *logging.Logger
	logger     *logging.Logger
}

func NewSessionRegistry(
	transport interfaces.DeviceTransport,
	aggregator interfaces.ChannelAggregator,
	publisher interfaces.TelemetryPublisher,
	opts SessionOptions,
	logger *logging.Logger,
) *SessionRegistry {
	return &SessionRegistry{
		pool:       make(map[string]*Session),
		transport:  transport,
		aggregator: aggregator,
		publisher:  publisher,
		opts:       opts,
		base:       logger,
		logger:     logger.WithPrefix("REGISTRY"),
	}
}

// OpenSession создает сессию для устройства и подключается к нему. Живая сессия с тем же
// именем (без учета регистра) дает RegistryError{AlreadyActive}. Сессия в Disconnected
// или Faulted заменяется новой.
func (r *SessionRegistry) OpenSession(ctx context.Context, conn models.DeviceConnection) (*Session, error) {
	if err := conn.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidConnection, err)
	}
	key := conn.Key()

	r.mu.Lock()
	if r.shuttingDown {
		r.mu.Unlock()
		return nil, apperrors.NewRegistryError(apperrors.ErrShuttingDown, conn.Name)
	}
	if existing, ok := r.pool[key]; ok && existing.State().Live() {
		r.mu.Unlock()
		r.logger.Warn("Session already active", "device", conn.Name, "sessionID", existing.ID())
		return nil, apperrors.NewRegistryError(apperrors.ErrAlreadyActive, conn.Name)
	}
	session := NewSession(conn, r.transport, r.aggregator, r.publisher, r.opts, r.base)
	if err := session.reserve(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.pool[key] = session
	r.mu.Unlock()

	if err := session.handshake(ctx); err != nil {
		r.mu.Lock()
		if r.pool[key] == session {
			delete(r.pool, key)
		}
		r.mu.Unlock()
		return nil, err
	}

	r.logger.Info("Session opened", "device", conn.Name, "sessionID", session.ID(), "endpoint", conn.Endpoint())
	return session, nil
}

// CloseSession отключает сессию и удаляет ее из реестра. Отсутствующее имя - не ошибка.
func (r *SessionRegistry) CloseSession(name string) error {
	key := models.NameKey(name)

	r.mu.RLock()
	session, ok := r.pool[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	err := session.Disconnect()

	r.mu.Lock()
	if r.pool[key] == session {
		delete(r.pool, key)
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Session closed with error", "device", name, "error", err)
		return err
	}
	r.logger.Info("Session closed", "device", name)
	return nil
}

// Get возвращает сессию по имени без ожидания.
func (r *SessionRegistry) Get(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.pool[models.NameKey(name)]
	return session, ok
}

// Lookup - как Get, но отсутствие сессии возвращает RegistryError{NotFound}.
func (r *SessionRegistry) Lookup(name string) (*Session, error) {
	session, ok := r.Get(name)
	if !ok {
		return nil, apperrors.NewRegistryError(apperrors.ErrNotFound, name)
	}
	return session, nil
}

// List возвращает снимки всех сессий, отсортированные по имени.
func (r *SessionRegistry) List() []models.SessionInfo {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.pool))
	for _, s := range r.pool {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	infos := make([]models.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Snapshot())
	}
	sort.Slice(infos, func(i, j int) bool {
		return models.NameKey(infos[i].Name) < models.NameKey(infos[j].Name)
	})
	return infos
}

// ShutdownAll параллельно отключает все сессии. Выполняется один раз; после него
// OpenSession возвращает ErrShuttingDown.
func (r *SessionRegistry) ShutdownAll() error {
	r.shutdownOnce.Do(func() {
		r.mu.Lock()
		r.shuttingDown = true
		sessions := make([]*Session, 0, len(r.pool))
		for _, s := range r.pool {
			sessions = append(sessions, s)
		}
		r.mu.Unlock()

		r.logger.Info("Shutting down sessions", "count", len(sessions))

		errs := make([]error, len(sessions))
		var wg sync.WaitGroup
		for i, s := range sessions {
			wg.Add(1)
			go func(i int, s *Session) {
				defer wg.Done()
				errs[i] = s.Disconnect()
			}(i, s)
		}
		wg.Wait()

		r.mu.Lock()
		for _, s := range sessions {
			if key := s.Connection().Key(); r.pool[key] == s {
				delete(r.pool, key)
			}
		}
		r.mu.Unlock()

		r.shutdownErr = errors.Join(errs...)
		if r.shutdownErr != nil {
			r.logger.Error("Shutdown finished with errors", "error", r.shutdownErr)
		}
	})
	return r.shutdownErr
}
