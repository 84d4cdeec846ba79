package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cvbuilder/internal/app"
	"cvbuilder/internal/capture"
	"cvbuilder/internal/config"
	"cvbuilder/internal/cv"
	"cvbuilder/internal/store"
	"cvbuilder/internal/workspace"
)

type stubPreviewer struct{}

func (stubPreviewer) Load(context.Context, string) error { return nil }

type stubExporter struct{}

func (stubExporter) Export(_ context.Context, req capture.Request) (*capture.Result, error) {
	return &capture.Result{
		Filename: capture.Filename(req.FullName),
		Data:     []byte("%PDF-1.4"),
		Pages:    len(req.Pages),
		Paper:    req.Paper,
	}, nil
}

// runExport 用内存存储和桩导出器执行 export，fullName 决定文件名。
func runExport(t *testing.T, fullName string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := &cli{stdout: &stdout, stderr: &stderr}
	c.build = func(ctx context.Context, _ bool) (*app.App, error) {
		ws := workspace.New(ctx, store.NewAdapter(store.NewMemory()),
			workspace.WithPreviewer(stubPreviewer{}),
			workspace.WithExporter(stubExporter{}),
		)
		if _, err := ws.UpdatePersonal(ctx, cv.Patch{"fullName": fullName}); err != nil {
			return nil, err
		}
		return &app.App{Workspace: ws}, nil
	}
	root := newRootCmd(c)
	root.SetArgs(append([]string{"export"}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

// runCLI 在临时 SQLite 上执行一条命令，浏览器始终关闭。
func runCLI(t *testing.T, dbPath, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)

	var stdout, stderr bytes.Buffer
	c := &cli{stdout: &stdout, stderr: &stderr}
	c.build = func(ctx context.Context, _ bool) (*app.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return app.Build(ctx, cfg, app.NewLogger(cfg.Log, io.Discard), app.Options{})
	}
	root := newRootCmd(c)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func showDocument(t *testing.T, dbPath string) cv.Document {
	t.Helper()
	out, _, err := runCLI(t, dbPath, "", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var doc cv.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	return doc
}

func TestShowPrintsExampleOnFirstRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cv.db")
	doc := showDocument(t, db)
	if doc.Personal.FullName != "Jane Doe" {
		t.Fatalf("name = %q", doc.Personal.FullName)
	}
}

func TestResetAsksForConfirmation(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cv.db")

	_, stderr, err := runCLI(t, db, "n\n", "reset")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(stderr, "Cancelled") {
		t.Fatalf("stderr = %q", stderr)
	}
	if showDocument(t, db).Personal.FullName != "Jane Doe" {
		t.Fatal("declined reset changed the document")
	}

	if _, _, err := runCLI(t, db, "", "reset", "--yes"); err != nil {
		t.Fatalf("reset --yes: %v", err)
	}
	if doc := showDocument(t, db); doc.Personal.FullName != "" || len(doc.Experience) != 0 {
		t.Fatalf("document not cleared: %+v", doc.Personal)
	}

	if _, _, err := runCLI(t, db, "yes\n", "example"); err != nil {
		t.Fatalf("example: %v", err)
	}
	if showDocument(t, db).Personal.FullName != "Jane Doe" {
		t.Fatal("example not loaded")
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cv.db")
	file := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(file, []byte(`{"personal":{"fullName":"Mary Jackson"},"hobbies":[{"name":"Sewing"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, db, "", "import", file)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Mary Jackson") {
		t.Fatalf("stdout = %q", out)
	}
	doc := showDocument(t, db)
	if doc.Personal.FullName != "Mary Jackson" || len(doc.Hobbies) != 1 || doc.Hobbies[0].ID == "" {
		t.Fatalf("imported = %+v", doc)
	}
}

func TestImportRejectsInvalid(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cv.db")
	_, stderr, err := runCLI(t, db, `{"hobbies":"nope"}`, "import", "-")
	if err == nil {
		t.Fatal("expected schema error")
	}
	if !strings.Contains(stderr, "validation failed") {
		t.Fatalf("stderr = %q", stderr)
	}
	if showDocument(t, db).Personal.FullName != "Jane Doe" {
		t.Fatal("invalid import changed the document")
	}
}

func TestThemes(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cv.db")
	out, _, err := runCLI(t, db, "", "themes")
	if err != nil {
		t.Fatal(err)
	}
	for _, theme := range cv.Themes {
		if !strings.Contains(out, string(theme)) {
			t.Fatalf("missing theme %s in %q", theme, out)
		}
	}
	if !strings.Contains(out, "215.9x279.4 mm") {
		t.Fatalf("missing letter size in %q", out)
	}
}

func TestExportWithoutBrowser(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cv.db")
	_, _, err := runCLI(t, db, "", "export", "--out", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "not available") {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestExportWritesIntoOutDir(t *testing.T) {
	base := t.TempDir()
	outDir := filepath.Join(base, "a", "b")

	cases := []struct {
		fullName string
		want     string
	}{
		{"Jane Doe", "Jane_Doe_CV.pdf"},
		{"Jean/Paul", "Jean_Paul_CV.pdf"},
		{"../../x", ".._.._x_CV.pdf"},
	}
	for _, tc := range cases {
		out, err := runExport(t, tc.fullName, "--out", outDir)
		if err != nil {
			t.Fatalf("export %q: %v", tc.fullName, err)
		}
		path := filepath.Join(outDir, tc.want)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("export %q: expected %s: %v\n%s", tc.fullName, path, err, out)
		}
	}
	if _, err := os.Stat(filepath.Join(base, "x_CV.pdf")); !os.IsNotExist(err) {
		t.Fatalf("file written outside the output directory: %v", err)
	}
}
