package service

import (
	"context"
	"time"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// AccessLogServiceImpl implements ports.AccessLogService with a buffered
// worker, keeping persistence off the request path. Entries are dropped,
// with a warning, when the buffer is full.
type AccessLogServiceImpl struct {
	repo    ports.AccessLogRepository
	entries chan *domain.AccessLog
	done    chan struct{}
	log     zerolog.Logger
}

// NewAccessLogService creates the service and starts its worker.
func NewAccessLogService(repo ports.AccessLogRepository, log zerolog.Logger) *AccessLogServiceImpl {
	s := &AccessLogServiceImpl{
		repo:    repo,
		entries: make(chan *domain.AccessLog, 256),
		done:    make(chan struct{}),
		log:     log.With().Str("component", "access_log").Logger(),
	}
	go s.run()
	return s
}

// Record queues an entry without blocking the caller.
func (s *AccessLogServiceImpl) Record(entry *domain.AccessLog) {
	select {
	case s.entries <- entry:
	default:
		s.log.Warn().Str("request_id", entry.RequestID).Msg("access log buffer full, dropping entry")
	}
}

// Close drains the buffer and stops the worker.
func (s *AccessLogServiceImpl) Close() {
	close(s.entries)
	<-s.done
}

func (s *AccessLogServiceImpl) run() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Warn().Err(err).Str("request_id", entry.RequestID).Msg("failed to persist access log entry")
		}
		cancel()
	}
}
