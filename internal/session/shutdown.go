package session

import (
	"errors"
	"sync"

	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/mqtt"
)

// Closer ends the broker session. *mqtt.Client satisfies it.
type Closer interface {
	Close() error
}

// Shutdown is the scoped cleanup of a client run.
//
// Run stops background work, then disconnects. It executes at most once no
// matter how many exit paths call it, and it never returns or re-panics on
// failure: problems are logged.
type Shutdown struct {
	closer Closer
	logger *logging.Logger
	stops  []func()
	once   sync.Once
}

// NewShutdown creates the cleanup for closer. stops run first, in order.
func NewShutdown(closer Closer, logger *logging.Logger, stops ...func()) *Shutdown {
	return &Shutdown{
		closer: closer,
		logger: logger,
		stops:  stops,
	}
}

// Run performs the cleanup. Calls after the first are no-ops.
func (s *Shutdown) Run() {
	s.once.Do(s.run)
}

func (s *Shutdown) run() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Disconnect failed", "panic", r)
		}
		s.logger.Info("Disconnected from broker")
	}()

	for _, stop := range s.stops {
		stop()
	}

	if s.closer == nil {
		return
	}

	err := s.closer.Close()
	switch {
	case err == nil:
	case errors.Is(err, mqtt.ErrNotConnected):
		s.logger.Debug("session already closed", "error", err)
	default:
		s.logger.Error("Disconnect failed", "error", err)
	}
}
