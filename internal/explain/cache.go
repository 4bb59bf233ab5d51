// Package explain implements the cached, single-flight fetch of
// categorization explanations from the ledger.
package explain

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joshsymonds/coalesce/internal/api"
	"github.com/joshsymonds/coalesce/internal/model"
)

// Fallback texts shown in place of an explanation.
const (
	// TextNoExplanation is shown when the ledger replied but provided no
	// usable text.
	TextNoExplanation = "No explanation available yet."

	// TextUnavailable is shown when the ledger has no explanation
	// endpoint for this transaction (404).
	TextUnavailable = "Explanation feature not available yet."

	// TextLoadFailed is shown on any other fetch failure.
	TextLoadFailed = "Could not load explanation."
)

// State is the fetch state of one explanation cache.
type State int

// Explanation fetch states. Loaded and Unavailable are terminal: once
// reached, no further fetch is attempted for the cache's lifetime. Error
// permits one more fetch per later toggle-open, always user-initiated.
const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateUnavailable
	StateError
)

// Fetcher defines the contract for the explanation lookup.
type Fetcher interface {
	GetExplanation(ctx context.Context, id int64) (*model.Explanation, error)
}

// TextStore persists fetched explanation texts. Optional.
type TextStore interface {
	SaveExplanation(ctx context.Context, transactionID int64, text string) error
}

// Cache holds the explanation for a single transaction, fetching it at
// most once per toggle-open and never more than once concurrently.
type Cache struct {
	fetcher Fetcher
	store   TextStore
	logger  *slog.Logger
	text    string
	txnID   int64
	state   State
	visible bool
	mu      sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore persists fetched texts to the given store.
func WithStore(store TextStore) Option {
	return func(c *Cache) { c.store = store }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates an idle cache for one transaction.
func NewCache(txnID int64, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		txnID:   txnID,
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToggleVisible flips the visibility flag and returns the new value.
// Fetching is the caller's concern: when the panel becomes visible, call
// BeginFetch and, if it reports true, perform the fetch and Resolve it.
func (c *Cache) ToggleVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = !c.visible
	return c.visible
}

// Visible reports whether the panel is currently shown.
func (c *Cache) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// BeginFetch transitions Idle or Error to Loading and reports whether the
// caller now owns the fetch. While Loading, or once Loaded or Unavailable,
// it reports false: the single-flight guarantee lives in this check-and-set.
func (c *Cache) BeginFetch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateError {
		return false
	}
	c.state = StateLoading
	return true
}

// Resolve applies the result of a fetch started by BeginFetch. A 404-like
// failure means the explanation does not exist yet and is not an error;
// anything else is surfaced generically and logged.
func (c *Cache) Resolve(exp *model.Explanation, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoading {
		// A result for a fetch this cache no longer owns (e.g. the
		// component was torn down and reset). Drop it.
		return
	}

	if err != nil {
		if api.IsNotFound(err) {
			c.state = StateUnavailable
			c.text = TextUnavailable
			return
		}
		c.state = StateError
		c.text = TextLoadFailed
		c.logger.Error("failed to load explanation",
			"transaction_id", c.txnID,
			"error", err)
		return
	}

	text := ""
	if exp != nil {
		text = exp.Text()
	}
	if text == "" {
		text = TextNoExplanation
	}
	c.state = StateLoaded
	c.text = text

	if c.store != nil {
		if saveErr := c.store.SaveExplanation(context.Background(), c.txnID, c.text); saveErr != nil {
			c.logger.Debug("failed to persist explanation",
				"transaction_id", c.txnID,
				"error", saveErr)
		}
	}
}

// EnsureFetched performs the fetch synchronously if this caller wins the
// single-flight check. Idempotent: while Loading, or once Loaded or
// Unavailable, it returns immediately.
func (c *Cache) EnsureFetched(ctx context.Context) {
	if !c.BeginFetch() {
		return
	}
	exp, err := c.fetcher.GetExplanation(ctx, c.txnID)
	c.Resolve(exp, err)
}

// State returns the current fetch state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Text returns the display text for the current state. Empty until a fetch
// has resolved.
func (c *Cache) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}
