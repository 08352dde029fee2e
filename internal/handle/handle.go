package handle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/googydeaath/dbhandle/internal/database"
	"github.com/sirupsen/logrus"
)

// Options configures a connection handle
type Options struct {
	Address        string
	Database       string
	Collections    []string
	ConnectTimeout time.Duration // zero means no timeout
	CloseTimeout   time.Duration // zero means no timeout
	Observer       Observer
}

// Observer is notified of every status transition, in transition order.
// Implementations must not call Close on the handle they observe.
type Observer interface {
	StatusChanged(id string, from, to Status)
}

// Handle owns one database client connection and tracks its lifecycle
type Handle struct {
	id       string
	opts     Options
	driver   database.Driver
	logger   *logrus.Entry
	observer Observer

	// transitionMu serializes status changes with their notifications
	transitionMu sync.Mutex

	mu          sync.RWMutex
	status      Status
	client      database.Client
	collections map[string]database.Collection
	lastErr     error
	connected   *Operation
}

// Open creates a handle and starts connecting to opts.Address in the background.
// It only fails for invalid arguments; connection failures are reported
// through Connected and Err.
func Open(driver database.Driver, opts Options, logger *logrus.Logger) (*Handle, error) {
	if driver == nil {
		return nil, ErrNilDriver
	}
	if opts.Address == "" {
		return nil, ErrAddressRequired
	}
	if opts.Database == "" {
		return nil, ErrDatabaseRequired
	}

	h := newHandle(driver, opts, logger)
	if _, err := h.connect(); err != nil {
		return nil, err
	}
	return h, nil
}

func newHandle(driver database.Driver, opts Options, logger *logrus.Logger) *Handle {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts.Collections = append([]string(nil), opts.Collections...)
	id := uuid.NewString()

	return &Handle{
		id:       id,
		opts:     opts,
		driver:   driver,
		observer: opts.Observer,
		status:   StatusNotExist,
		logger: logger.WithFields(logrus.Fields{
			"handle_id": id,
			"address":   database.RedactAddress(opts.Address),
			"database":  opts.Database,
		}),
	}
}

// ID returns the handle's unique identifier
func (h *Handle) ID() string {
	return h.id
}

// Address returns the connection address with credentials redacted
func (h *Handle) Address() string {
	return database.RedactAddress(h.opts.Address)
}

// Status returns the current status
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Err returns the last connect or close failure
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}

// Connected returns the operation tracking the connect sequence
func (h *Handle) Connected() *Operation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connected
}

// Collection returns the named collection handle once the handle is ready
func (h *Handle) Collection(name string) (database.Collection, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.status != StatusReady {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReady, h.status)
	}
	coll, ok := h.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return coll, nil
}

// Collections returns the configured collection names, sorted
func (h *Handle) Collections() []string {
	names := append([]string(nil), h.opts.Collections...)
	sort.Strings(names)
	return names
}

// Close starts disconnecting the client in the background.
// It is only valid while the handle is ready.
func (h *Handle) Close() (*Operation, error) {
	var client database.Client
	from, ok := h.transition(func(s Status) bool { return s == StatusReady }, StatusBusy, func() {
		client = h.client
		h.client = nil
		h.collections = nil
	})
	if !ok {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidStatusForClose, from)
	}

	h.logger.Info("Closing database connection")

	op := newOperation()
	go h.runClose(op, client)
	return op, nil
}

// connect starts the connect sequence if the current status allows it
func (h *Handle) connect() (*Operation, error) {
	op := newOperation()
	from, ok := h.transition(canConnect, StatusBusy, func() {
		h.connected = op
		h.lastErr = nil
	})
	if !ok {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidStatusForConnect, from)
	}

	go h.runConnect(op)
	return op, nil
}

func (h *Handle) runConnect(op *Operation) {
	ctx, cancel := h.operationContext(h.opts.ConnectTimeout)
	defer cancel()

	h.logger.Info("Connecting to database")

	client, err := h.driver.Connect(ctx, h.opts.Address)
	if err != nil {
		h.failConnect(op, nil, fmt.Errorf("%w: %w", ErrConnectFailure, err))
		return
	}

	db, err := client.Database(ctx, h.opts.Database)
	if err != nil {
		h.failConnect(op, client, fmt.Errorf("%w: database %q: %w", ErrConnectFailure, h.opts.Database, err))
		return
	}

	collections := make(map[string]database.Collection, len(h.opts.Collections))
	for _, name := range h.opts.Collections {
		coll, err := db.Collection(ctx, name)
		if err != nil {
			h.failConnect(op, client, fmt.Errorf("%w: collection %q: %w", ErrConnectFailure, name, err))
			return
		}
		collections[name] = coll
	}

	h.transition(nil, StatusReady, func() {
		h.client = client
		h.collections = collections
	})

	h.logger.WithField("collections", len(collections)).Info("Database connection ready")
	op.finish(StatusReady, nil)
}

// failConnect releases a partially connected client and records err
func (h *Handle) failConnect(op *Operation, client database.Client, err error) {
	if client != nil {
		ctx, cancel := h.operationContext(h.opts.CloseTimeout)
		if derr := client.Disconnect(ctx); derr != nil {
			h.logger.WithError(derr).Warn("Failed to release client after connect failure")
		}
		cancel()
	}

	h.transition(nil, StatusError, func() {
		h.lastErr = err
	})

	h.logger.WithError(err).Error("Database connection failed")
	op.finish(StatusError, err)
}

func (h *Handle) runClose(op *Operation, client database.Client) {
	ctx, cancel := h.operationContext(h.opts.CloseTimeout)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		err = fmt.Errorf("%w: %w", ErrCloseFailure, err)
		h.transition(nil, StatusError, func() {
			h.lastErr = err
		})
		h.logger.WithError(err).Error("Failed to close database connection")
		op.finish(StatusError, err)
		return
	}

	h.transition(nil, StatusDisconnected, nil)
	h.logger.Info("Database connection closed")
	op.finish(StatusDisconnected, nil)
}

// transition moves the handle to status to if allowed accepts the current
// status (nil accepts any). mutate runs under the state lock.
func (h *Handle) transition(allowed func(Status) bool, to Status, mutate func()) (Status, bool) {
	h.transitionMu.Lock()
	defer h.transitionMu.Unlock()

	h.mu.Lock()
	from := h.status
	if allowed != nil && !allowed(from) {
		h.mu.Unlock()
		return from, false
	}
	h.status = to
	if mutate != nil {
		mutate()
	}
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"from": from.String(),
		"to":   to.String(),
	}).Debug("Status changed")

	if h.observer != nil && from != to {
		h.observer.StatusChanged(h.id, from, to)
	}
	return from, true
}

func (h *Handle) operationContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
