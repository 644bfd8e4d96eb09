// Package integration sets up and tears down configured accounts. Each
// entry gets its own sensor, dispatcher and test button; the dispatcher is
// handed its observers when it is built.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LeventeLantos/freesms-notify/internal/cache"
	"github.com/LeventeLantos/freesms-notify/internal/events"
	"github.com/LeventeLantos/freesms-notify/internal/metrics"
	"github.com/LeventeLantos/freesms-notify/internal/model"
	"github.com/LeventeLantos/freesms-notify/internal/repo"
	"github.com/LeventeLantos/freesms-notify/internal/service"
	"github.com/LeventeLantos/freesms-notify/internal/status"
)

var (
	ErrEntryNotFound   = errors.New("entry not found")
	ErrServiceNotFound = errors.New("notify service not found")
	ErrServiceTaken    = errors.New("notify service name already registered")
	ErrMissingTarget   = errors.New("target must not be empty")
)

type Entry struct {
	Account    model.Account
	Sensor     *status.Sensor
	Dispatcher *service.Dispatcher
	Button     *service.Button
}

type Options struct {
	Client      service.SendClient
	Repo        repo.AccountRepository
	Cache       cache.StatusCache // optional
	Hub         *events.Hub       // optional
	Metrics     *metrics.Metrics  // optional
	TestMessage string
	Logger      *slog.Logger
}

type Manager struct {
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	entries  map[string]*Entry
	services map[string]string // notify service name -> entry id
}

func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		entries:  make(map[string]*Entry),
		services: make(map[string]string),
	}
}

// LoadAll sets up every stored account. Accounts that fail are logged and
// skipped.
func (m *Manager) LoadAll(ctx context.Context) error {
	accounts, err := m.opts.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		if _, err := m.Setup(ctx, a); err != nil {
			m.logger.Error("setup failed", "entry_id", a.ID, "error", err)
		}
	}
	return nil
}

func (m *Manager) Setup(ctx context.Context, acct model.Account) (*Entry, error) {
	name := acct.ServiceName()
	st, restored := m.loadStatus(ctx, acct.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[acct.ID]; ok {
		return nil, fmt.Errorf("entry %s already set up", acct.ID)
	}
	if _, ok := m.services[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceTaken, name)
	}

	sensor := status.NewSensor(acct.ID, acct.Username)
	if restored {
		sensor.Restore(st)
	}

	observers := []service.Observer{sensor}
	if m.opts.Hub != nil {
		observers = append(observers, m.opts.Hub.ForEntry(acct))
	}
	if m.opts.Metrics != nil {
		observers = append(observers, m.opts.Metrics.ForAccount(acct.Username))
	}

	d := service.NewDispatcher(m.opts.Client, acct.Credentials(), observers...).
		WithLogger(m.logger.With("entry_id", acct.ID))

	e := &Entry{
		Account:    acct,
		Sensor:     sensor,
		Dispatcher: d,
		Button:     service.NewButton(d, m.opts.TestMessage),
	}
	m.entries[acct.ID] = e
	m.services[name] = acct.ID
	m.updateGauge()

	m.logger.Info("registered notify service", "service", name, "entry_id", acct.ID)
	return e, nil
}

// loadStatus reads the cached snapshot of an entry. It runs before the
// manager lock is taken.
func (m *Manager) loadStatus(ctx context.Context, entryID string) (model.Status, bool) {
	if m.opts.Cache == nil {
		return model.Status{}, false
	}
	st, found, err := m.opts.Cache.LoadStatus(ctx, entryID)
	if err != nil {
		m.logger.Warn("could not restore status", "entry_id", entryID, "error", err)
		return model.Status{}, false
	}
	return st, found
}

// Unload removes the entry and its notify service. It does not delete the
// stored account; see Remove.
func (m *Manager) Unload(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	delete(m.services, e.Account.ServiceName())
	delete(m.entries, id)
	m.updateGauge()

	m.logger.Info("removed notify service", "service", e.Account.ServiceName(), "entry_id", id)
	return nil
}

// Remove deletes the account, then unloads the entry and drops its cached
// status. If the account cannot be deleted the entry stays set up.
func (m *Manager) Remove(ctx context.Context, id string) error {
	delErr := m.opts.Repo.Delete(ctx, id)
	if delErr != nil && !errors.Is(delErr, repo.ErrNotFound) {
		return fmt.Errorf("delete account %s: %w", id, delErr)
	}
	if err := m.Unload(ctx, id); err != nil && delErr != nil {
		return ErrEntryNotFound
	}
	if m.opts.Cache != nil {
		if err := m.opts.Cache.DeleteStatus(ctx, id); err != nil {
			m.logger.Warn("could not delete cached status", "entry_id", id, "error", err)
		}
	}
	return nil
}

func (m *Manager) Entry(id string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok
}

// Entries returns the set up entries ordered by creation time.
func (m *Manager) Entries() []*Entry {
	m.mu.RLock()
	out := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Account.CreatedAt.Equal(out[j].Account.CreatedAt) {
			return out[i].Account.ID < out[j].Account.ID
		}
		return out[i].Account.CreatedAt.Before(out[j].Account.CreatedAt)
	})
	return out
}

func (m *Manager) HasService(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.services[name]
	return ok
}

// Notify sends message through the notify service registered as name.
func (m *Manager) Notify(ctx context.Context, name, message string) (model.Result, error) {
	m.mu.RLock()
	id, ok := m.services[name]
	var e *Entry
	if ok {
		e = m.entries[id]
	}
	m.mu.RUnlock()

	if e == nil {
		return model.Result{}, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return e.Dispatcher.Send(ctx, message)
}

// SendSMS is the generic entry point taking the target service by name.
func (m *Manager) SendSMS(ctx context.Context, target, message string) (model.Result, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return model.Result{}, ErrMissingTarget
	}
	if strings.TrimSpace(message) == "" {
		return model.Result{}, service.ErrEmptyMessage
	}
	return m.Notify(ctx, target, message)
}

func (m *Manager) PressButton(ctx context.Context, id string) (model.Result, error) {
	e, ok := m.Entry(id)
	if !ok {
		return model.Result{}, ErrEntryNotFound
	}
	return e.Button.Press(ctx), nil
}

// SyncStatuses writes every sensor snapshot to the status cache.
func (m *Manager) SyncStatuses(ctx context.Context) (written int, err error) {
	if m.opts.Cache == nil {
		return 0, nil
	}

	start := time.Now()
	var errs []error
	for _, e := range m.Entries() {
		if err := m.opts.Cache.StoreStatus(ctx, e.Sensor.Snapshot()); err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", e.Account.ID, err))
			continue
		}
		written++
	}

	if m.opts.Metrics != nil {
		m.opts.Metrics.RecordStatusSync(written, len(errs), time.Since(start))
	}
	return written, errors.Join(errs...)
}

func (m *Manager) updateGauge() {
	if m.opts.Metrics != nil {
		m.opts.Metrics.SetEntriesConfigured(len(m.entries))
	}
}
