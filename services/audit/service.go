package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/dtn-ai-router/models"
	"github.com/upb/dtn-ai-router/repositories"
	"go.uber.org/zap"
)

// DispatchLogService writes dispatch records to the repository in the background
type DispatchLogService struct {
	repo        repositories.DispatchLogRepository
	logger      *zap.Logger
	records     chan *models.DispatchRecord
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	stopped     bool
	mu          sync.Mutex
	dropped     atomic.Int64
	failed      atomic.Int64
}

// Config holds configuration for the DispatchLogService
type Config struct {
	BufferSize  int // Size of the record buffer channel
	WorkerCount int // Number of concurrent writers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewDispatchLogService creates a new DispatchLogService instance
func NewDispatchLogService(repo repositories.DispatchLogRepository, logger *zap.Logger, config Config) *DispatchLogService {
	ctx, cancel := context.WithCancel(context.Background())

	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.BufferSize < 0 {
		config.BufferSize = 0
	}

	return &DispatchLogService{
		repo:        repo,
		logger:      logger,
		records:     make(chan *models.DispatchRecord, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background writers
func (s *DispatchLogService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("dispatch log service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started dispatch log service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting records and waits for pending ones to be written
func (s *DispatchLogService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("dispatch log service not running")
	}
	s.stopped = true
	// Closed under the lock so Record never sends on a closed channel
	close(s.records)
	s.mu.Unlock()

	s.logger.Info("stopping dispatch log service", zap.Int("pending_records", len(s.records)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("dispatch log service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("dispatch log service stop timeout after %v", timeout)
	}
}

// Record queues a record without blocking.
// When the buffer is full or the service is not running the record is dropped and logged.
func (s *DispatchLogService) Record(record *models.DispatchRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		s.dropped.Add(1)
		s.logger.Warn("dispatch log service not running, dropping record",
			zap.String("request_id", record.RequestID))
		return
	}

	select {
	case s.records <- record:
	default:
		s.dropped.Add(1)
		s.logger.Warn("dispatch log buffer full, dropping record",
			zap.String("request_id", record.RequestID),
			zap.String("model", record.Model))
	}
}

func (s *DispatchLogService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("dispatch log worker started", zap.Int("worker_id", id))

	for record := range s.records {
		if err := s.write(record); err != nil {
			s.failed.Add(1)
			s.logger.Error("failed to write dispatch record",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("request_id", record.RequestID))
		}
	}

	s.logger.Debug("dispatch log worker stopped", zap.Int("worker_id", id))
}

func (s *DispatchLogService) write(record *models.DispatchRecord) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	return s.repo.Insert(ctx, record)
}

// GetStats returns statistics about the dispatch log service
func (s *DispatchLogService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:     s.bufferSize,
		PendingRecords: len(s.records),
		WorkerCount:    s.workerCount,
		Started:        s.started && !s.stopped,
		Dropped:        s.dropped.Load(),
		Failed:         s.failed.Load(),
	}
}

// Stats represents dispatch log service statistics
type Stats struct {
	BufferSize     int
	PendingRecords int
	WorkerCount    int
	Started        bool
	Dropped        int64
	Failed         int64
}
