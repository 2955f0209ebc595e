package email

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gymflow/internal/logger"
	"gymflow/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3
	popTimeout     = 2 * time.Second
	readBackoff    = time.Second
)

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Type    string    `json:"type"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis      *redis.Client
	transport  Transport
	retryDelay time.Duration
	backoff    time.Duration
	done       chan struct{}
}

func New(rdb *redis.Client, transport Transport) *Service {
	return &Service{
		redis:      rdb,
		transport:  transport,
		retryDelay: 5 * time.Second,
		backoff:    readBackoff,
		done:       make(chan struct{}),
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	return s.enqueue(ctx, Job{To: to, Name: name, Subject: subject, Body: body, Type: "general"})
}

func (s *Service) enqueue(ctx context.Context, job Job) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Error("failed to queue email", "to", job.To, "type", job.Type, "error", err)
		return err
	}

	logger.Debug("email queued", "to", job.To, "type", job.Type)
	return nil
}

// Start runs the delivery worker until ctx is cancelled. Done is closed once
// it has returned, including any delivery that was in flight.
func (s *Service) Start(ctx context.Context) {
	defer close(s.done)
	logger.Info("email worker started", "transport", s.transport.Name())

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, popTimeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		logger.Error("email queue read failed", "error", err, "backoff", s.backoff)
		sleep(ctx, s.backoff)
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad email job", "error", err)
		return
	}

	job.Tries++
	if err := s.transport.Deliver(ctx, job); err != nil {
		logger.Error("email delivery failed", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			metrics.RecordEmail(job.Type, "retry")
			s.requeue(ctx, job)
			return
		}

		metrics.RecordEmail(job.Type, "failed")
		s.saveFailed(job, err)
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("email sent", "to", job.To, "type", job.Type)
}

func (s *Service) requeue(ctx context.Context, job Job) {
	sleep(ctx, s.retryDelay)

	data, _ := json.Marshal(job)
	// A cancelled ctx must not lose the job during shutdown.
	if err := s.redis.LPush(context.Background(), queueKey, string(data)).Err(); err != nil {
		logger.Error("failed to requeue email", "to", job.To, "error", err)
	}
}

func (s *Service) saveFailed(job Job, cause error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": cause.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	if err := s.redis.LPush(context.Background(), failedQueueKey, string(data)).Err(); err != nil {
		logger.Error("failed to store failed email", "to", job.To, "error", err)
		return
	}
	logger.Warn("email moved to failed queue", "to", job.To, "tries", job.Tries)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// QueueLength reports pending jobs and publishes the figure as a gauge.
func (s *Service) QueueLength(ctx context.Context) int64 {
	length, err := s.redis.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0
	}
	metrics.EmailQueueLength.Set(float64(length))
	return length
}

func (s *Service) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Service) Close() error {
	return s.redis.Close()
}
