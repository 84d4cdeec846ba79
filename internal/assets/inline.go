package assets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/errcode"
	"cvbuilder/internal/storage"
)

// Warning is a recoverable problem found while preparing a document for
// rendering. Rendering continues without the affected images.
type Warning struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	MissingKeys []string `json:"missing_keys,omitempty"`
}

// Inline returns a copy of doc whose asset keys are replaced by data URIs.
// Keys whose object no longer exists are dropped and reported as a 4004
// warning; any other storage error aborts.
func (p *Processor) Inline(ctx context.Context, doc cv.Document) (cv.Document, []Warning, error) {
	doc = doc.Clone()
	var missing []string

	resolve := func(ref string) (string, error) {
		ref = strings.TrimSpace(ref)
		if !IsKey(ref) {
			return ref, nil
		}
		if p.store == nil {
			missing = append(missing, ref)
			return "", nil
		}
		data, ct, err := p.store.Get(ctx, ref)
		if err != nil {
			if storage.IsNoSuchKey(err) {
				missing = append(missing, ref)
				return "", nil
			}
			return "", fmt.Errorf("fetch asset %s: %w", ref, err)
		}
		if ct == "" {
			ct = contentType
		}
		return DataURI(ct, data), nil
	}

	var err error
	if doc.Personal.Photo, err = resolve(doc.Personal.Photo); err != nil {
		return cv.Document{}, nil, err
	}
	for i := range doc.Portfolio {
		if doc.Portfolio[i].Image, err = resolve(doc.Portfolio[i].Image); err != nil {
			return cv.Document{}, nil, err
		}
	}

	if len(missing) == 0 {
		return doc, nil, nil
	}
	for _, key := range missing {
		p.logger.Warn("Assets: image removed before render", slog.String("object_key", key))
	}
	return doc, []Warning{{
		Code:        errcode.ResourceMissing,
		Message:     "some images are missing and were left out",
		MissingKeys: missing,
	}}, nil
}
