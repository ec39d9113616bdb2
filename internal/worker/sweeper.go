package worker

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/hackdesk/internal/lifecycle"
)

// Sweeper periodically evicts closed tickets from the in-memory index so
// long-running deployments do not accumulate terminal state. Ticket ids are
// never reused after eviction.
type Sweeper struct {
	cron    *cron.Cron
	manager *lifecycle.Manager
	logger  *zap.Logger
}

// NewSweeper wires the sweep job onto the given schedule. The schedule uses
// cron syntax, including descriptors such as "@every 30m".
func NewSweeper(manager *lifecycle.Manager, schedule string, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		cron:    cron.New(),
		manager: manager,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the scheduler in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	removed := s.manager.Sweep()
	if removed > 0 {
		s.logger.Info("swept closed tickets", zap.Int("removed", removed))
	}
}
