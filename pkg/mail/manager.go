package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vigilantes/alertmail/pkg/config"
	"github.com/vigilantes/alertmail/pkg/delivery"
	"github.com/vigilantes/alertmail/pkg/metrics"
)

// Result is the outcome of a send, covering the whole retry sequence.
type Result struct {
	// ID correlates with the delivery tracker record. Empty when the send
	// failed before an attempt could start (no usable configuration).
	ID       string
	Status   delivery.Status
	Attempts int
	Category Category
	Err      error
}

// Succeeded reports whether the message was delivered.
func (r Result) Succeeded() bool {
	return r.Status == delivery.StatusSucceeded
}

// Manager orchestrates sends: it resolves configuration, drives the retry
// loop with exponential backoff, and keeps the delivery tracker current.
type Manager struct {
	store   *config.Store
	tracker *delivery.Tracker
	sender  Sender
	log     *zap.SugaredLogger

	baseDelay time.Duration
	maxDelay  time.Duration
	sleep     sleepFunc
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSender substitutes the SMTP sender, used by tests.
func WithSender(sender Sender) ManagerOption {
	return func(m *Manager) { m.sender = sender }
}

// WithBackoff overrides the retry backoff parameters.
func WithBackoff(base, max time.Duration) ManagerOption {
	return func(m *Manager) { m.baseDelay, m.maxDelay = base, max }
}

// WithSleeper substitutes the suspension mechanism between retries so tests
// can simulate elapsed time.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) ManagerOption {
	return func(m *Manager) { m.sleep = sleep }
}

// NewManager creates a Manager backed by the given store and tracker.
func NewManager(store *config.Store, tracker *delivery.Tracker, log *zap.SugaredLogger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		tracker:   tracker,
		sender:    NewSMTPSender(),
		log:       log.Named("mail"),
		baseDelay: defaultBaseDelay,
		maxDelay:  defaultMaxDelay,
		sleep:     contextSleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send delivers msg to recipient, retrying transient failures with
// exponential backoff up to MaxRetries extra attempts. Permanent failures
// (rejected credentials, bad recipient) stop immediately. The terminal
// outcome is always recorded in the delivery tracker.
func (m *Manager) Send(ctx context.Context, msg Message, recipient string) Result {
	cfg, err := m.store.Load()
	if err != nil {
		if errors.Is(err, config.ErrNotConfigured) {
			m.log.Warnw("Send rejected: no usable configuration")
		} else {
			m.log.Errorw("Send rejected: configuration unusable", "error", err)
		}
		return Result{Status: delivery.StatusFailed, Category: CategoryConfiguration, Err: err}
	}

	id := uuid.NewString()
	m.tracker.MarkSending(id, recipient)

	if !config.ValidEmail(recipient) {
		err := fmt.Errorf("malformed recipient address %q", recipient)
		m.finish(id, cfg, Result{ID: id, Status: delivery.StatusFailed, Category: CategoryRecipient, Err: err})
		return Result{ID: id, Status: delivery.StatusFailed, Category: CategoryRecipient, Err: err}
	}

	maxAttempts := cfg.MaxRetries + 1
	var lastErr error
	var lastCategory Category
	attemptsMade := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptsMade = attempt
		m.log.Infow("Attempting delivery",
			"id", id,
			"attempt", attempt,
			"maxAttempts", maxAttempts,
			"host", cfg.SMTPServer)

		err := m.attempt(ctx, cfg, msg, recipient)
		if err == nil {
			result := Result{ID: id, Status: delivery.StatusSucceeded, Attempts: attempt}
			m.finish(id, cfg, result)
			return result
		}

		lastErr = err
		lastCategory = Classify(err)

		if !lastCategory.Retryable() {
			m.log.Warnw("Permanent delivery failure, not retrying",
				"id", id, "attempt", attempt, "category", lastCategory, "error", err)
			break
		}
		if attempt == maxAttempts {
			m.log.Errorw("Delivery failed after all attempts",
				"id", id, "attempts", attempt, "category", lastCategory, "error", err)
			break
		}

		delay := backoffDelay(attempt, m.baseDelay, m.maxDelay)
		m.log.Warnw("Transient delivery failure, scheduling retry",
			"id", id, "attempt", attempt, "category", lastCategory, "retryIn", delay, "error", err)
		metrics.MailRetryScheduled.WithLabelValues(cfg.SMTPServer).Inc()

		if err := m.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	result := Result{
		ID:       id,
		Status:   delivery.StatusFailed,
		Attempts: attemptsMade,
		Category: lastCategory,
		Err:      lastErr,
	}
	m.finish(id, cfg, result)
	return result
}

// SendAsync runs Send in its own goroutine so callers (a UI thread) never
// block; multiple recipients can be served in parallel.
func (m *Manager) SendAsync(ctx context.Context, msg Message, recipient string) <-chan Result {
	results := make(chan Result, 1)
	go func() {
		results <- m.Send(ctx, msg, recipient)
	}()
	return results
}

// attempt performs one SMTP delivery bounded by the configured timeout. An
// in-flight handshake cannot be interrupted; on timeout the goroutine is
// abandoned and its eventual result discarded.
func (m *Manager) attempt(ctx context.Context, cfg *config.EmailConfig, msg Message, recipient string) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.TimeoutDuration())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.sender.Send(cfg, recipient, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp attempt exceeded %s: %w", cfg.TimeoutDuration(), context.DeadlineExceeded)
	}
}

func (m *Manager) finish(id string, cfg *config.EmailConfig, result Result) {
	if result.Succeeded() {
		m.tracker.RecordResult(id, true, result.Attempts, "")
		metrics.MailSendSuccess.WithLabelValues(cfg.SMTPServer).Inc()
		m.log.Infow("Delivery succeeded", "id", id, "attempts", result.Attempts)
	} else {
		m.tracker.RecordResult(id, false, result.Attempts, string(result.Category))
		metrics.MailSendFailure.WithLabelValues(cfg.SMTPServer, string(result.Category)).Inc()
	}
	if err := m.tracker.Flush(); err != nil {
		m.log.Warnw("Could not persist delivery journal", "error", err)
	}
}
