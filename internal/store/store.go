// Package store persists the résumé document and the theme/paper settings
// under named keys in a pluggable key-value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"cvbuilder/internal/cv"
)

// ErrNotFound is returned by a KV when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is the minimal backend contract.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

const (
	DefaultKey         = "cv-data"
	DefaultSettingsKey = "cv-settings"
)

// Adapter implements load/save/reset on top of a KV. Storage failures never
// reach the caller: reads fall back to defaults and the first failed write
// switches the adapter to in-memory operation for the rest of the session.
type Adapter struct {
	kv          KV
	key         string
	settingsKey string
	logger      *slog.Logger
	onFailure   func(op string)

	degraded atomic.Bool
}

type AdapterOption func(*Adapter)

func WithKeys(doc, settings string) AdapterOption {
	return func(a *Adapter) {
		if doc != "" {
			a.key = doc
		}
		if settings != "" {
			a.settingsKey = settings
		}
	}
}

func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithFailureHook is called with "load", "save" or "decode" on every storage failure.
func WithFailureHook(fn func(op string)) AdapterOption {
	return func(a *Adapter) { a.onFailure = fn }
}

func NewAdapter(kv KV, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		kv:          kv,
		key:         DefaultKey,
		settingsKey: DefaultSettingsKey,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if kv == nil {
		a.degraded.Store(true)
	}
	return a
}

// Degraded reports whether writes are no longer reaching the backend.
func (a *Adapter) Degraded() bool {
	return a.degraded.Load()
}

// Load returns the saved document, or the example document when nothing was
// saved yet or the saved value cannot be read.
func (a *Adapter) Load(ctx context.Context) cv.Document {
	var doc cv.Document
	if !a.read(ctx, a.key, &doc) {
		return cv.NewExample()
	}
	doc.Normalize()
	return doc
}

// Save writes doc under the document key.
func (a *Adapter) Save(ctx context.Context, doc cv.Document) {
	doc.Normalize()
	a.write(ctx, a.key, doc)
}

// Reset returns a blank document. The caller saves it like any other mutation.
func (a *Adapter) Reset() cv.Document {
	return cv.NewEmpty()
}

func (a *Adapter) LoadSettings(ctx context.Context) cv.Settings {
	var s cv.Settings
	if !a.read(ctx, a.settingsKey, &s) {
		return cv.DefaultSettings()
	}
	return s.Sanitize()
}

func (a *Adapter) SaveSettings(ctx context.Context, s cv.Settings) {
	a.write(ctx, a.settingsKey, s.Sanitize())
}

func (a *Adapter) read(ctx context.Context, key string, out any) bool {
	if a.kv == nil {
		return false
	}
	raw, err := a.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		a.fail("load", key, err)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		a.fail("decode", key, err)
		return false
	}
	return true
}

func (a *Adapter) write(ctx context.Context, key string, v any) {
	if a.degraded.Load() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		a.fail("save", key, fmt.Errorf("encode: %w", err))
		return
	}
	if err := a.kv.Put(ctx, key, raw); err != nil {
		a.fail("save", key, err)
		// 调用方取消或超时不代表存储故障，下一次写入照常进行。
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		a.degraded.Store(true)
		a.logger.Warn("Store: write failed, continuing in memory for this session", slog.String("key", key))
	}
}

func (a *Adapter) fail(op, key string, err error) {
	a.logger.Warn("Store: persistence failure", slog.String("op", op), slog.String("key", key), slog.Any("error", err))
	if a.onFailure != nil {
		a.onFailure(op)
	}
}

// Close releases the backend.
func (a *Adapter) Close() error {
	if a.kv == nil {
		return nil
	}
	return a.kv.Close()
}
