package notification

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/user"
)

const (
	DefaultQueueSize   = 1024
	DefaultMaxAttempts = 3
	defaultTimeout     = 10 * time.Second
)

// Sink accepts notifications without blocking the caller. Delivery
// failures are logged and never reported back.
type Sink interface {
	Notify(userID int, title, message, category string)
	NotifyMany(userIDs []int, title, message, category string)
	// NotifyStaff reaches every active staff and admin account.
	NotifyStaff(title, message, category string)
}

type Mailer interface {
	SendNotification(ctx context.Context, to, name, title, message, category string) error
}

type Directory interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
	ListActiveStaff(ctx context.Context) ([]user.Contact, error)
}

type task struct {
	toStaff  bool
	userIDs  []int
	title    string
	message  string
	category string
}

// Dispatcher is a Sink backed by a bounded queue and a fixed worker pool.
// Each task writes the in-app rows and then queues one email per recipient.
type Dispatcher struct {
	store   Repository
	users   Directory
	mailer  Mailer
	workers int

	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration

	mu      sync.RWMutex
	queue   chan task
	stopped bool
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

var _ Sink = (*Dispatcher)(nil)

func NewDispatcher(store Repository, users Directory, mailer Mailer, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		store:       store,
		users:       users,
		mailer:      mailer,
		workers:     workers,
		maxAttempts: DefaultMaxAttempts,
		backoff:     500 * time.Millisecond,
		timeout:     defaultTimeout,
		queue:       make(chan task, queueSize),
	}
}

func (d *Dispatcher) Start() {
	d.once.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run()
		}
		logger.Info("notification dispatcher started", "workers", d.workers)
	})
}

// Shutdown stops intake and waits for queued tasks to finish.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Dispatcher) Notify(userID int, title, message, category string) {
	d.enqueue(task{userIDs: []int{userID}, title: title, message: message, category: category})
}

func (d *Dispatcher) NotifyMany(userIDs []int, title, message, category string) {
	if len(userIDs) == 0 {
		return
	}
	ids := make([]int, len(userIDs))
	copy(ids, userIDs)
	d.enqueue(task{userIDs: ids, title: title, message: message, category: category})
}

func (d *Dispatcher) NotifyStaff(title, message, category string) {
	d.enqueue(task{toStaff: true, title: title, message: message, category: category})
}

func (d *Dispatcher) enqueue(t task) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		logger.Warn("notification dropped after shutdown", "title", t.title, "recipients", len(t.userIDs))
		d.drop()
		return
	}

	select {
	case d.queue <- t:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
	default:
		logger.Error("notification queue full, dropping", "title", t.title, "recipients", len(t.userIDs))
		d.drop()
	}
}

func (d *Dispatcher) drop() {
	d.dropped.Add(1)
	metrics.RecordNotification("dropped")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for t := range d.queue {
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		d.deliver(t)
	}
}

func (d *Dispatcher) deliver(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var contacts []user.Contact
	if t.toStaff {
		if d.users == nil {
			return
		}
		staff, err := d.users.ListActiveStaff(ctx)
		if err != nil {
			metrics.RecordNotification("failed")
			logger.Error("staff lookup failed", "title", t.title, "error", err)
			return
		}
		contacts = staff
		for _, c := range staff {
			t.userIDs = append(t.userIDs, c.ID)
		}
	}
	if len(t.userIDs) == 0 {
		return
	}

	rows := make([]Notification, len(t.userIDs))
	for i, id := range t.userIDs {
		rows[i] = Notification{UserID: id, Title: t.title, Message: t.message, Type: t.category}
	}

	err := d.retry(ctx, func() error {
		if len(rows) == 1 {
			return d.store.Create(ctx, &rows[0])
		}
		return d.store.CreateBulk(ctx, rows)
	})
	if err != nil {
		metrics.RecordNotification("failed")
		logger.Error("notification delivery failed",
			"title", t.title,
			"recipients", len(t.userIDs),
			"attempts", d.maxAttempts,
			"error", err,
		)
		return
	}
	metrics.RecordNotification("delivered")

	if d.mailer == nil || d.users == nil {
		return
	}
	if contacts == nil {
		contacts = d.lookup(ctx, t.userIDs)
	}
	for _, c := range contacts {
		if err := d.mailer.SendNotification(ctx, c.Email, c.Name, t.title, t.message, t.category); err != nil {
			logger.Error("notification email failed", "user_id", c.ID, "error", err)
		}
	}
}

func (d *Dispatcher) lookup(ctx context.Context, ids []int) []user.Contact {
	contacts := make([]user.Contact, 0, len(ids))
	for _, id := range ids {
		u, err := d.users.FindByID(ctx, id)
		if err != nil {
			logger.Error("notification email skipped", "user_id", id, "error", err)
			continue
		}
		contacts = append(contacts, user.Contact{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return contacts
}

func (d *Dispatcher) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == d.maxAttempts {
			break
		}

		metrics.RecordNotification("retried")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}
	return err
}
