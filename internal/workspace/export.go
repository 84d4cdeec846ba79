package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"cvbuilder/internal/assets"
	"cvbuilder/internal/capture"
	"cvbuilder/internal/cv"
	"cvbuilder/internal/errcode"
	"cvbuilder/internal/notify"
	"cvbuilder/internal/render"
)

const (
	archivePrefix = "exports/"
	archiveTTL    = 24 * time.Hour
)

// Archive keeps a copy of every exported PDF; *storage.Client satisfies it.
type Archive interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// ExportResult is a finished export plus everything reported along the way.
type ExportResult struct {
	*capture.Result
	Warnings   []assets.Warning
	ArchiveKey string
	ArchiveURL string
}

// Preview renders the current document with the current settings. Asset keys
// are resolved first so the HTML is self-contained.
func (w *Workspace) Preview(ctx context.Context) (*render.Preview, []assets.Warning, error) {
	doc, settings := w.snapshot()
	return w.render(ctx, doc, settings)
}

func (w *Workspace) render(ctx context.Context, doc cv.Document, settings cv.Settings) (*render.Preview, []assets.Warning, error) {
	var warnings []assets.Warning
	if w.inliner != nil {
		var err error
		doc, warnings, err = w.inliner.Inline(ctx, doc)
		if err != nil {
			return nil, nil, fmt.Errorf("inline assets: %w", err)
		}
	}
	preview, err := render.Render(doc, settings.Theme, settings.Paper, render.Options{DisplayScale: w.scale})
	if err != nil {
		return nil, warnings, fmt.Errorf("render preview: %w", err)
	}
	return preview, warnings, nil
}

// Export renders the current document into the capture surface and turns
// its pages into a PDF. A second call while one is running returns
// capture.ErrBusy and changes nothing.
func (w *Workspace) Export(ctx context.Context, correlationID string) (*ExportResult, error) {
	if !w.exportMu.TryLock() {
		w.logger.Info("Workspace: export already running", slog.String("correlation_id", correlationID))
		return nil, capture.ErrBusy
	}
	defer w.exportMu.Unlock()

	logger := w.logger.With(slog.String("correlation_id", correlationID))
	if w.preview == nil || w.exporter == nil {
		err := fmt.Errorf("export: %w", capture.ErrCapabilityUnavailable)
		w.publishFailure(ctx, correlationID, errcode.CapabilityUnavailable, "PDF export is not available in this environment")
		return nil, err
	}

	doc, settings := w.snapshot()
	preview, warnings, err := w.render(ctx, doc, settings)
	if err != nil {
		logger.Error("Workspace: render failed", slog.Any("error", err))
		w.publishFailure(ctx, correlationID, errcode.SystemError, "Could not prepare the preview")
		return nil, err
	}
	for _, warn := range warnings {
		w.publish(ctx, notify.Message{
			Kind:          notify.KindWarning,
			Level:         string(capture.LevelWarn),
			Code:          warn.Code,
			Message:       warn.Message,
			CorrelationID: correlationID,
			MissingKeys:   warn.MissingKeys,
		})
	}

	if err := w.preview.Load(ctx, preview.HTML); err != nil {
		logger.Error("Workspace: loading preview into browser failed", slog.Any("error", err))
		w.publishFailure(ctx, correlationID, errcode.CapabilityUnavailable, "PDF export is not available in this environment")
		return nil, fmt.Errorf("load preview: %w: %w", capture.ErrCapabilityUnavailable, err)
	}

	res, err := w.exporter.Export(ctx, capture.Request{
		Pages:         preview.Pages,
		Paper:         preview.Paper,
		FullName:      doc.Personal.FullName,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}

	out := &ExportResult{Result: res, Warnings: warnings}
	if w.archive != nil {
		w.archiveResult(ctx, logger, out)
	}
	return out, nil
}

// archiveResult 上传失败不影响导出结果，只记录日志。
func (w *Workspace) archiveResult(ctx context.Context, logger *slog.Logger, out *ExportResult) {
	key := path.Join(archivePrefix, uuid.NewString(), out.Filename)
	if err := w.archive.Put(ctx, key, out.Data, "application/pdf"); err != nil {
		logger.Warn("Workspace: archiving export failed", slog.String("object_key", key), slog.Any("error", err))
		return
	}
	out.ArchiveKey = key
	url, err := w.archive.PresignedURL(ctx, key, archiveTTL)
	if err != nil {
		logger.Warn("Workspace: presigning archived export failed", slog.String("object_key", key), slog.Any("error", err))
		return
	}
	out.ArchiveURL = url
}

func (w *Workspace) snapshot() (cv.Document, cv.Settings) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Clone(), w.settings
}

func (w *Workspace) publishFailure(ctx context.Context, correlationID string, code int, msg string) {
	w.publish(ctx, notify.Message{
		Kind:          notify.KindExport,
		Level:         string(capture.LevelError),
		Code:          code,
		Message:       msg,
		CorrelationID: correlationID,
	})
}
