// Package workspace owns the single in-memory résumé session: the current
// document, the theme/paper selection and the export entry point. Every
// mutation is persisted through the store before it returns.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cvbuilder/internal/assets"
	"cvbuilder/internal/capture"
	"cvbuilder/internal/cv"
	"cvbuilder/internal/notify"
	"cvbuilder/internal/render"
)

var (
	// ErrConfirmationRequired is returned by destructive operations called without confirm.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrItemNotFound means the section holds no item with the given id.
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidPatch = errors.New("patch does not match field types")
)

// Store is the persistence contract; *store.Adapter satisfies it.
type Store interface {
	Load(ctx context.Context) cv.Document
	Save(ctx context.Context, doc cv.Document)
	Reset() cv.Document
	LoadSettings(ctx context.Context) cv.Settings
	SaveSettings(ctx context.Context, s cv.Settings)
	Degraded() bool
}

// Previewer loads rendered HTML into the capture surface.
type Previewer interface {
	Load(ctx context.Context, html string) error
}

type Exporter interface {
	Export(ctx context.Context, req capture.Request) (*capture.Result, error)
}

// Inliner resolves asset keys before rendering; *assets.Processor satisfies it.
type Inliner interface {
	Inline(ctx context.Context, doc cv.Document) (cv.Document, []assets.Warning, error)
}

// Publisher receives user-visible notices.
type Publisher interface {
	Publish(ctx context.Context, msg notify.Message)
}

type Workspace struct {
	store     Store
	preview   Previewer
	exporter  Exporter
	inliner   Inliner
	archive   Archive
	publisher Publisher
	logger    *slog.Logger
	scale     float64

	mu       sync.Mutex
	doc      cv.Document
	settings cv.Settings
	degraded bool

	// exportMu guards the whole load+capture sequence, not only the capture.
	exportMu sync.Mutex
}

type Option func(*Workspace)

func WithPreviewer(p Previewer) Option { return func(w *Workspace) { w.preview = p } }
func WithExporter(e Exporter) Option   { return func(w *Workspace) { w.exporter = e } }
func WithInliner(i Inliner) Option     { return func(w *Workspace) { w.inliner = i } }
func WithArchive(a Archive) Option     { return func(w *Workspace) { w.archive = a } }
func WithPublisher(p Publisher) Option { return func(w *Workspace) { w.publisher = p } }

func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDisplayScale sets the scale the preview is shown at outside of capture.
func WithDisplayScale(s float64) Option {
	return func(w *Workspace) {
		if s > 0 {
			w.scale = s
		}
	}
}

// New loads the saved document and settings from st.
func New(ctx context.Context, st Store, opts ...Option) *Workspace {
	w := &Workspace{
		store:  st,
		logger: slog.Default(),
		scale:  render.DefaultDisplayScale,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.doc = st.Load(ctx)
	w.settings = st.LoadSettings(ctx)
	w.degraded = st.Degraded()
	return w
}

// Document returns a copy of the current document.
func (w *Workspace) Document() cv.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Clone()
}

func (w *Workspace) Settings() cv.Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// SetSettings stores the selection after replacing invalid values with defaults.
func (w *Workspace) SetSettings(ctx context.Context, s cv.Settings) cv.Settings {
	s = s.Sanitize()
	w.mu.Lock()
	w.settings = s
	w.store.SaveSettings(context.WithoutCancel(ctx), s)
	w.mu.Unlock()
	w.checkDegraded(ctx)
	return s
}

// UpdatePersonal merges patch into the personal block.
func (w *Workspace) UpdatePersonal(ctx context.Context, patch cv.Patch) (cv.Document, error) {
	return w.mutate(ctx, func(d *cv.Document) error {
		if !d.UpdatePersonal(patch) {
			return ErrInvalidPatch
		}
		return nil
	})
}

// Add appends a new item to section and returns its id.
func (w *Workspace) Add(ctx context.Context, section cv.Section, defaults cv.Patch) (string, cv.Document, error) {
	var id string
	doc, err := w.mutate(ctx, func(d *cv.Document) error {
		id = d.Add(section, defaults)
		if id == "" {
			return fmt.Errorf("add item: unknown section %q", section)
		}
		return nil
	})
	return id, doc, err
}

// Remove deletes an item. An unknown id leaves the document untouched and
// returns ErrItemNotFound.
func (w *Workspace) Remove(ctx context.Context, section cv.Section, id string) (cv.Document, error) {
	return w.mutate(ctx, func(d *cv.Document) error {
		if !d.Remove(section, id) {
			return ErrItemNotFound
		}
		return nil
	})
}

func (w *Workspace) Update(ctx context.Context, section cv.Section, id string, patch cv.Patch) (cv.Document, error) {
	return w.mutate(ctx, func(d *cv.Document) error {
		if !d.Has(section, id) {
			return ErrItemNotFound
		}
		if !d.Update(section, id, patch) {
			return ErrInvalidPatch
		}
		return nil
	})
}

// Import replaces the whole document.
func (w *Workspace) Import(ctx context.Context, doc cv.Document) cv.Document {
	doc.Normalize()
	w.mu.Lock()
	w.doc = doc.Clone()
	w.store.Save(context.WithoutCancel(ctx), doc)
	w.mu.Unlock()
	w.checkDegraded(ctx)
	return doc
}

// ClearAll replaces the document with the blank template. Without confirm the
// document is left unchanged.
func (w *Workspace) ClearAll(ctx context.Context, confirm bool) (cv.Document, error) {
	if !confirm {
		return w.Document(), ErrConfirmationRequired
	}
	return w.Import(ctx, w.store.Reset()), nil
}

// LoadExample replaces the document with the example content. Without confirm
// the document is left unchanged.
func (w *Workspace) LoadExample(ctx context.Context, confirm bool) (cv.Document, error) {
	if !confirm {
		return w.Document(), ErrConfirmationRequired
	}
	return w.Import(ctx, cv.NewExample()), nil
}

// mutate applies fn to a working copy; the session document only changes
// when fn succeeds.
func (w *Workspace) mutate(ctx context.Context, fn func(*cv.Document) error) (cv.Document, error) {
	w.mu.Lock()
	work := w.doc.Clone()
	if err := fn(&work); err != nil {
		current := w.doc.Clone()
		w.mu.Unlock()
		return current, err
	}
	w.doc = work
	// 保存放在锁内，保证落盘顺序与修改顺序一致。
	// 请求取消不应中断已经生效的修改落盘。
	w.store.Save(context.WithoutCancel(ctx), work)
	w.mu.Unlock()

	w.checkDegraded(ctx)
	return work.Clone(), nil
}

// checkDegraded publishes a single notice the first time the store stops writing.
func (w *Workspace) checkDegraded(ctx context.Context) {
	if !w.store.Degraded() {
		return
	}
	w.mu.Lock()
	already := w.degraded
	w.degraded = true
	w.mu.Unlock()
	if already {
		return
	}
	w.logger.Warn("Workspace: persistence degraded, changes are kept in memory only")
	w.publish(ctx, notify.Message{
		Kind:    notify.KindPersistence,
		Level:   string(capture.LevelWarn),
		Message: "Changes can no longer be saved and will be lost when the session ends",
	})
}

func (w *Workspace) publish(ctx context.Context, msg notify.Message) {
	if w.publisher != nil {
		w.publisher.Publish(ctx, msg)
	}
}
