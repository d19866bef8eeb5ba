package rpcclient

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

// Delay is a fixed wait plus up to Jitter of random extra time.
type Delay struct {
	Base   time.Duration
	Jitter time.Duration
}

func (d Delay) pick() time.Duration {
	if d.Jitter <= 0 {
		return d.Base
	}
	return d.Base + rand.N(d.Jitter)
}

// StatusDelays are measured from Track.
type StatusDelays struct {
	Sent      Delay
	Delivered Delay
	Read      Delay
}

var DefaultStatusDelays = StatusDelays{
	Sent:      Delay{Base: 300 * time.Millisecond, Jitter: 200 * time.Millisecond},
	Delivered: Delay{Base: 800 * time.Millisecond, Jitter: 400 * time.Millisecond},
	Read:      Delay{Base: 2000 * time.Millisecond, Jitter: 1000 * time.Millisecond},
}

// StatusUpdater persists a status change; *Client implements it.
type StatusUpdater interface {
	UpdateMessageStatus(ctx context.Context, messageID string, status domain.MessageStatus) (domain.Message, error)
}

type TrackerOption func(*StatusTracker)

func WithStatusDelays(d StatusDelays) TrackerOption {
	return func(t *StatusTracker) { t.delays = d }
}

func WithTrackerLogger(l *slog.Logger) TrackerOption {
	return func(t *StatusTracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// OnStatusChange is called with the local id and the new status. The
// callback runs under the tracker lock and must not call back into it.
func OnStatusChange(fn func(localID string, status domain.MessageStatus)) TrackerOption {
	return func(t *StatusTracker) { t.onChange = fn }
}

type trackedMessage struct {
	serverID string
	status   domain.MessageStatus
	timers   []*time.Timer
}

type statusUpdate struct {
	messageID string
	status    domain.MessageStatus
}

// StatusTracker drives the optimistic delivery indicator of outgoing
// messages: sending, then sent, delivered and read on timers, or error.
// Statuses only move forward. Once a message has a server id each change is
// mirrored with updateMessageStatus on a background worker; failures are
// logged and never retried.
type StatusTracker struct {
	updater  StatusUpdater
	delays   StatusDelays
	logger   *slog.Logger
	onChange func(string, domain.MessageStatus)

	mu       sync.Mutex
	messages map[string]*trackedMessage
	closed   bool
	updates  chan statusUpdate
	done     chan struct{}
}

// NewStatusTracker starts the mirroring worker. Call Close when done.
func NewStatusTracker(updater StatusUpdater, opts ...TrackerOption) *StatusTracker {
	t := &StatusTracker{
		updater:  updater,
		delays:   DefaultStatusDelays,
		logger:   slog.Default(),
		messages: make(map[string]*trackedMessage),
		updates:  make(chan statusUpdate, 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.run()
	return t
}

// Track starts the progression for a message that has no server id yet.
func (t *StatusTracker) Track(localID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if old, ok := t.messages[localID]; ok {
		stopTimers(old)
	}
	m := &trackedMessage{status: domain.StatusSending}
	t.messages[localID] = m
	t.notify(localID, m.status)
	for _, step := range []struct {
		status domain.MessageStatus
		delay  Delay
	}{
		{domain.StatusSent, t.delays.Sent},
		{domain.StatusDelivered, t.delays.Delivered},
		{domain.StatusRead, t.delays.Read},
	} {
		status := step.status
		m.timers = append(m.timers, time.AfterFunc(step.delay.pick(), func() {
			t.advance(localID, status)
		}))
	}
}

// Reconcile binds the server id. The current status is pushed when the
// server does not already hold it.
func (t *StatusTracker) Reconcile(localID, serverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.messages[localID]
	if !ok || serverID == "" {
		return
	}
	m.serverID = serverID
	if m.status.Persistable() && m.status != domain.StatusSent {
		t.enqueue(serverID, m.status)
	}
}

// Fail moves the message to error and cancels pending steps.
func (t *StatusTracker) Fail(localID string) {
	t.advance(localID, domain.StatusError)
}

// Status returns the current status of a tracked message.
func (t *StatusTracker) Status(localID string) (domain.MessageStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.messages[localID]
	if !ok {
		return "", false
	}
	return m.status, true
}

// Forget stops tracking a message.
func (t *StatusTracker) Forget(localID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.messages[localID]; ok {
		stopTimers(m)
		delete(t.messages, localID)
	}
}

// Close stops every timer and waits for queued updates to finish.
func (t *StatusTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return
	}
	t.closed = true
	for _, m := range t.messages {
		stopTimers(m)
	}
	close(t.updates)
	t.mu.Unlock()
	<-t.done
}

func (t *StatusTracker) advance(localID string, next domain.MessageStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	m, ok := t.messages[localID]
	if !ok || !m.status.CanAdvanceTo(next) {
		return
	}
	m.status = next
	if next == domain.StatusError || next == domain.StatusRead {
		stopTimers(m)
	}
	t.notify(localID, next)
	if m.serverID != "" {
		t.enqueue(m.serverID, next)
	}
}

// notify and enqueue expect t.mu to be held.
func (t *StatusTracker) notify(localID string, status domain.MessageStatus) {
	if t.onChange != nil {
		t.onChange(localID, status)
	}
}

func (t *StatusTracker) enqueue(serverID string, status domain.MessageStatus) {
	if t.updater == nil || t.closed {
		return
	}
	select {
	case t.updates <- statusUpdate{messageID: serverID, status: status}:
	default:
		t.logger.Warn("status update dropped", "message_id", serverID, "status", status)
	}
}

func (t *StatusTracker) run() {
	defer close(t.done)
	for u := range t.updates {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := t.updater.UpdateMessageStatus(ctx, u.messageID, u.status); err != nil {
			t.logger.Warn("failed to update message status", "message_id", u.messageID, "status", u.status, "err", err)
		}
		cancel()
	}
}

func stopTimers(m *trackedMessage) {
	for _, timer := range m.timers {
		timer.Stop()
	}
	m.timers = nil
}
