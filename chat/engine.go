package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/roomsync/roomsync/chat/validator"
)

// A Store provides a storage layer that persists messages.
type Store interface {
	InsertMessage(ctx context.Context, msg Message) (Message, error)
	ListMessages(ctx context.Context) ([]Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// A Feed provides a push channel of row-change events on the message
// table.
type Feed interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// A Subscription is one live realtime channel. Events is closed once
// the subscription is released via Close.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// A Session resolves the identity of the current user.
type Session interface {
	CurrentUser(ctx context.Context) (User, error)
	SignOut(ctx context.Context) error
}

// DefaultPollInterval is used when Engine.PollInterval is unset.
const DefaultPollInterval = 2 * time.Second

// Engine holds the client-side ordered message list and reconciles it
// across poll results, realtime events and confirmed sends. All state
// mutations are applied atomically; results arriving after Close are
// discarded.
type Engine struct {
	Logger       *slog.Logger
	Store        Store
	Feed         Feed // optional, nil disables realtime
	Session      Session
	Val          *validator.Validator
	PollInterval time.Duration

	once     sync.Once
	mu       sync.Mutex
	msgs     []Message
	selected *Message
	sub      Subscription
	closed   bool
	updates  chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

func (e *Engine) init() {
	e.once.Do(func() {
		e.updates = make(chan struct{}, 1)
		e.done = make(chan struct{})
		if e.Logger == nil {
			e.Logger = slog.Default()
		}
		if e.Val == nil {
			e.Val = validator.New()
		}
	})
}

// Send persists a new message authored by the current user and merges
// the confirmed copy into the list. Nothing is displayed before the
// store confirms, so a failed send leaves local state untouched.
func (e *Engine) Send(ctx context.Context, text string) (Message, error) {
	e.init()
	if errs := e.Val.Validate(text, "required"); len(errs) > 0 {
		return Message{}, fmt.Errorf("validate text: %w", ErrValidation)
	}
	user, err := e.Session.CurrentUser(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("resolve sender: %w", err)
	}
	msg, err := e.Store.InsertMessage(ctx, Message{Text: text, SenderID: user.ID})
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return msg, nil
	}
	// A concurrent poll or realtime event may have delivered the same
	// message between request and response.
	if e.insertLocked(msg) {
		e.notifyLocked()
	}
	return msg, nil
}

// Refresh fetches the full message list and replaces local state when
// the fetched ID sequence differs from the current one. An unchanged
// poll leaves the list untouched so no spurious update is published.
func (e *Engine) Refresh(ctx context.Context) error {
	e.init()
	msgs, err := e.Store.ListMessages(ctx)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].before(msgs[j]) })

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	if sameIDs(e.msgs, msgs) {
		return nil
	}
	e.msgs = msgs
	e.notifyLocked()
	return nil
}

// Apply merges a realtime event into the list. Applying the same event
// twice is a no-op the second time.
func (e *Engine) Apply(ev Event) {
	e.init()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	var changed bool
	switch ev.Type {
	case EventInsert:
		changed = e.insertLocked(ev.Message)
	case EventUpdate:
		changed = e.replaceLocked(ev.Message)
	case EventDelete:
		changed = e.removeLocked(ev.Message.ID)
	default:
		e.Logger.Warn("Unknown realtime event type", "type", ev.Type)
	}
	if changed {
		e.notifyLocked()
	}
}

// Remove deletes the message from the store and drops it locally. A
// later realtime delete or refresh for the same ID converges to the
// same state.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.init()
	if err := e.Store.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	if e.removeLocked(id) {
		e.notifyLocked()
	}
	return nil
}

// Messages returns a snapshot of the list, ordered by creation time
// ascending with ties broken by ID.
func (e *Engine) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.msgs))
	copy(out, e.msgs)
	return out
}

// Updates returns a channel that receives a coalesced signal whenever
// the list changes.
func (e *Engine) Updates() <-chan struct{} {
	e.init()
	return e.updates
}

// Select marks one message as selected for contextual actions.
func (e *Engine) Select(msg Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := msg
	e.selected = &m
}

// Selected returns the currently selected message, if any.
func (e *Engine) Selected() (Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == nil {
		return Message{}, false
	}
	return *e.selected, true
}

// SignOut terminates the active session.
func (e *Engine) SignOut(ctx context.Context) error {
	if err := e.Session.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Start begins periodic polling and, when a Feed is configured, the
// realtime subscription. It returns once both are running; the work
// stops when ctx is cancelled or the engine is closed.
func (e *Engine) Start(ctx context.Context) error {
	e.init()
	if e.Feed != nil {
		if err := e.Subscribe(ctx); err != nil {
			return err
		}
	}
	interval := e.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()
	go e.poll(ctx, interval)
	return nil
}

func (e *Engine) poll(ctx context.Context, interval time.Duration) {
	defer e.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		// A single failed poll must not halt future polls.
		if err := e.Refresh(ctx); err != nil {
			e.Logger.Warn("Poll failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-ticker.C:
		}
	}
}

// Subscribe establishes the realtime subscription, tearing down any
// prior one first so events are never delivered twice.
func (e *Engine) Subscribe(ctx context.Context) error {
	e.init()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	prev := e.sub
	e.sub = nil
	e.mu.Unlock()
	if prev != nil {
		if err := prev.Close(); err != nil {
			e.Logger.Warn("Could not close previous subscription", "error", err.Error())
		}
	}

	sub, err := e.Feed.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubscription, err)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return sub.Close()
	}
	e.sub = sub
	e.wg.Add(1)
	e.mu.Unlock()

	go e.consume(sub)
	return nil
}

func (e *Engine) consume(sub Subscription) {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			e.Apply(ev)
		}
	}
}

// Close stops polling, releases any active subscription and marks the
// engine dead so late results are discarded. Close is idempotent.
func (e *Engine) Close() error {
	e.init()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sub := e.sub
	e.sub = nil
	close(e.done)
	e.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	e.wg.Wait()
	return err
}

func (e *Engine) indexLocked(id string) int {
	for i, m := range e.msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) insertLocked(msg Message) bool {
	if e.indexLocked(msg.ID) >= 0 {
		return false
	}
	i := sort.Search(len(e.msgs), func(i int) bool { return msg.before(e.msgs[i]) })
	e.msgs = append(e.msgs, Message{})
	copy(e.msgs[i+1:], e.msgs[i:])
	e.msgs[i] = msg
	return true
}

func (e *Engine) replaceLocked(msg Message) bool {
	i := e.indexLocked(msg.ID)
	if i < 0 {
		return false
	}
	e.msgs[i] = msg
	sort.SliceStable(e.msgs, func(i, j int) bool { return e.msgs[i].before(e.msgs[j]) })
	return true
}

func (e *Engine) removeLocked(id string) bool {
	i := e.indexLocked(id)
	if i < 0 {
		return false
	}
	e.msgs = append(e.msgs[:i], e.msgs[i+1:]...)
	if e.selected != nil && e.selected.ID == id {
		e.selected = nil
	}
	return true
}

func (e *Engine) notifyLocked() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// sameIDs reports whether both lists hold the same IDs in the same
// order. A full sequence comparison catches deletions and reorderings
// that a length check would miss.
func sameIDs(a, b []Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
