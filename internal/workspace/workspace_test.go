package workspace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cvbuilder/internal/assets"
	"cvbuilder/internal/capture"
	"cvbuilder/internal/cv"
	"cvbuilder/internal/errcode"
	"cvbuilder/internal/notify"
	"cvbuilder/internal/render"
	"cvbuilder/internal/store"
)

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, store.ErrNotFound }
func (failingKV) Put(context.Context, string, []byte) error  { return errors.New("disk full") }
func (failingKV) Close() error                               { return nil }

// cancelAwareKV rejects writes whose context is already done, as SQL drivers do.
type cancelAwareKV struct {
	*store.Memory
}

func (k cancelAwareKV) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.Memory.Put(ctx, key, value)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg notify.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type fakePreviewer struct {
	html string
	err  error
}

func (p *fakePreviewer) Load(_ context.Context, html string) error {
	p.html = html
	return p.err
}

type fakeExporter struct {
	req     capture.Request
	calls   int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (e *fakeExporter) Export(_ context.Context, req capture.Request) (*capture.Result, error) {
	e.calls++
	e.req = req
	if e.started != nil {
		close(e.started)
	}
	if e.block != nil {
		<-e.block
	}
	if e.err != nil {
		return nil, e.err
	}
	return &capture.Result{
		Filename: capture.Filename(req.FullName),
		Data:     []byte("%PDF-1.4"),
		Pages:    len(req.Pages),
		Paper:    req.Paper,
	}, nil
}

type fakeInliner struct {
	warnings []assets.Warning
}

func (i fakeInliner) Inline(_ context.Context, doc cv.Document) (cv.Document, []assets.Warning, error) {
	return doc, i.warnings, nil
}

type fakeArchive struct {
	keys []string
}

func (a *fakeArchive) Put(_ context.Context, key string, _ []byte, _ string) error {
	a.keys = append(a.keys, key)
	return nil
}

func (a *fakeArchive) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://minio.local/" + key, nil
}

func newWorkspace(t *testing.T, opts ...Option) (*Workspace, *store.Adapter) {
	t.Helper()
	adapter := store.NewAdapter(store.NewMemory())
	return New(context.Background(), adapter, opts...), adapter
}

func TestNewLoadsExampleOnFirstRun(t *testing.T) {
	ws, _ := newWorkspace(t)
	doc := ws.Document()
	if doc.Personal.FullName != cv.NewExample().Personal.FullName {
		t.Fatalf("expected example document, got %q", doc.Personal.FullName)
	}
	if got := ws.Settings(); got != cv.DefaultSettings() {
		t.Fatalf("settings = %+v", got)
	}
}

func TestMutationsPersist(t *testing.T) {
	ctx := context.Background()
	ws, adapter := newWorkspace(t)

	if _, err := ws.UpdatePersonal(ctx, cv.Patch{"fullName": "Ada Lovelace"}); err != nil {
		t.Fatalf("UpdatePersonal: %v", err)
	}
	id, _, err := ws.Add(ctx, cv.SectionHobbies, cv.Patch{"name": "Chess"})
	if err != nil || id == "" {
		t.Fatalf("Add: id=%q err=%v", id, err)
	}
	if _, err := ws.Update(ctx, cv.SectionHobbies, id, cv.Patch{"name": "Go"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	saved := adapter.Load(ctx)
	if saved.Personal.FullName != "Ada Lovelace" {
		t.Fatalf("saved name = %q", saved.Personal.FullName)
	}
	last := saved.Hobbies[len(saved.Hobbies)-1]
	if last.ID != id || last.Name != "Go" {
		t.Fatalf("saved hobby = %+v", last)
	}
}

func TestMutationPersistsAfterClientCancel(t *testing.T) {
	adapter := store.NewAdapter(cancelAwareKV{Memory: store.NewMemory()})
	ws := New(context.Background(), adapter)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ws.UpdatePersonal(cancelled, cv.Patch{"fullName": "A"}); err != nil {
		t.Fatalf("UpdatePersonal: %v", err)
	}
	if adapter.Degraded() {
		t.Fatal("store degraded after a cancelled request")
	}
	if got := adapter.Load(context.Background()).Personal.FullName; got != "A" {
		t.Fatalf("persisted fullName = %q, want %q", got, "A")
	}

	ws.SetSettings(cancelled, cv.Settings{Theme: cv.ThemeBold, Paper: cv.PaperLetter})
	if got := adapter.LoadSettings(context.Background()); got.Theme != cv.ThemeBold {
		t.Fatalf("persisted theme = %q", got.Theme)
	}

	if _, err := ws.UpdatePersonal(context.Background(), cv.Patch{"fullName": "B"}); err != nil {
		t.Fatalf("UpdatePersonal: %v", err)
	}
	if got := adapter.Load(context.Background()).Personal.FullName; got != "B" {
		t.Fatalf("persisted fullName = %q, want %q", got, "B")
	}
}

func TestRemoveUnknownIDLeavesDocument(t *testing.T) {
	ctx := context.Background()
	ws, _ := newWorkspace(t)
	before := ws.Document()

	doc, err := ws.Remove(ctx, cv.SectionExperience, "missing")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if len(doc.Experience) != len(before.Experience) {
		t.Fatalf("experience changed: %d -> %d", len(before.Experience), len(doc.Experience))
	}
}

func TestAddUnknownSection(t *testing.T) {
	ws, _ := newWorkspace(t)
	if _, _, err := ws.Add(context.Background(), cv.Section("skills"), nil); err == nil {
		t.Fatal("expected error for unknown section")
	}
}

func TestClearAllRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	ws, adapter := newWorkspace(t)
	before := ws.Document()

	doc, err := ws.ClearAll(ctx, false)
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if doc.Personal.FullName != before.Personal.FullName || len(doc.Experience) != len(before.Experience) {
		t.Fatal("declined clear changed the document")
	}

	doc, err = ws.ClearAll(ctx, true)
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if doc.Personal.FullName != "" || len(doc.Experience) != 0 {
		t.Fatalf("expected blank document, got %+v", doc.Personal)
	}
	if saved := adapter.Load(ctx); saved.Personal.FullName != "" {
		t.Fatalf("blank document not persisted: %q", saved.Personal.FullName)
	}
}

func TestLoadExampleRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	ws, _ := newWorkspace(t)
	if _, err := ws.ClearAll(ctx, true); err != nil {
		t.Fatal(err)
	}

	if _, err := ws.LoadExample(ctx, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if ws.Document().Personal.FullName != "" {
		t.Fatal("declined example load changed the document")
	}

	doc, err := ws.LoadExample(ctx, true)
	if err != nil {
		t.Fatalf("LoadExample: %v", err)
	}
	if doc.Personal.FullName != cv.NewExample().Personal.FullName {
		t.Fatalf("name = %q", doc.Personal.FullName)
	}
}

func TestSetSettingsSanitizes(t *testing.T) {
	ctx := context.Background()
	ws, adapter := newWorkspace(t)
	got := ws.SetSettings(ctx, cv.Settings{Theme: "Neon", Paper: cv.PaperLetter})
	if got.Theme != cv.ThemeModern || got.Paper != cv.PaperLetter {
		t.Fatalf("settings = %+v", got)
	}
	if saved := adapter.LoadSettings(ctx); saved != got {
		t.Fatalf("saved settings = %+v", saved)
	}
}

func TestDegradedNoticePublishedOnce(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	ws := New(ctx, store.NewAdapter(failingKV{}), WithPublisher(pub))

	for i := 0; i < 3; i++ {
		if _, err := ws.UpdatePersonal(ctx, cv.Patch{"tagline": "x"}); err != nil {
			t.Fatalf("UpdatePersonal: %v", err)
		}
	}
	kinds := pub.kinds()
	if len(kinds) != 1 || kinds[0] != notify.KindPersistence {
		t.Fatalf("notices = %v", kinds)
	}
	if got := ws.Document().Personal.Tagline; got != "x" {
		t.Fatalf("in-memory edit lost: %q", got)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	preview := &fakePreviewer{}
	exporter := &fakeExporter{}
	archive := &fakeArchive{}
	pub := &recordingPublisher{}
	ws, _ := newWorkspace(t,
		WithPreviewer(preview),
		WithExporter(exporter),
		WithArchive(archive),
		WithPublisher(pub),
		WithInliner(fakeInliner{warnings: []assets.Warning{{Code: errcode.ResourceMissing, Message: "missing", MissingKeys: []string{"assets/x.jpg"}}}}),
	)
	ws.SetSettings(ctx, cv.Settings{Theme: cv.ThemeClassic, Paper: cv.PaperLetter})

	res, err := ws.Export(ctx, "cid-1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Filename != "Jane_Doe_CV.pdf" {
		t.Fatalf("filename = %q", res.Filename)
	}
	if !strings.Contains(preview.html, render.ReadyElementID) {
		t.Fatal("preview HTML not loaded into the surface")
	}
	if exporter.req.Paper != cv.PaperLetter || exporter.req.CorrelationID != "cid-1" {
		t.Fatalf("request = %+v", exporter.req)
	}
	if len(exporter.req.Pages) != 1 || exporter.req.Pages[0].ElementID != "cv-page-1" {
		t.Fatalf("pages = %+v", exporter.req.Pages)
	}
	if len(res.Warnings) != 1 || res.ArchiveKey == "" || !strings.HasSuffix(res.ArchiveKey, "/Jane_Doe_CV.pdf") {
		t.Fatalf("result = %+v", res)
	}
	if res.ArchiveURL != "http://minio.local/"+res.ArchiveKey {
		t.Fatalf("archive url = %q", res.ArchiveURL)
	}
	if kinds := pub.kinds(); len(kinds) != 1 || kinds[0] != notify.KindWarning {
		t.Fatalf("notices = %v", kinds)
	}
}

func TestExportBusy(t *testing.T) {
	ctx := context.Background()
	exporter := &fakeExporter{block: make(chan struct{}), started: make(chan struct{})}
	ws, _ := newWorkspace(t, WithPreviewer(&fakePreviewer{}), WithExporter(exporter))

	done := make(chan error, 1)
	go func() {
		_, err := ws.Export(ctx, "first")
		done <- err
	}()
	<-exporter.started

	if _, err := ws.Export(ctx, "second"); !errors.Is(err, capture.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(exporter.block)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
	if exporter.calls != 1 {
		t.Fatalf("exporter called %d times", exporter.calls)
	}
}

func TestExportWithoutBrowser(t *testing.T) {
	pub := &recordingPublisher{}
	ws, _ := newWorkspace(t, WithPublisher(pub))
	_, err := ws.Export(context.Background(), "cid")
	if !errors.Is(err, capture.ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Code != errcode.CapabilityUnavailable {
		t.Fatalf("notices = %+v", pub.msgs)
	}
}

func TestExportPreviewLoadFailure(t *testing.T) {
	exporter := &fakeExporter{}
	ws, _ := newWorkspace(t, WithPreviewer(&fakePreviewer{err: errors.New("tab crashed")}), WithExporter(exporter))
	_, err := ws.Export(context.Background(), "cid")
	if !errors.Is(err, capture.ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
	if exporter.calls != 0 {
		t.Fatal("exporter must not run when the preview failed to load")
	}
}
