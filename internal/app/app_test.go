package app_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/zsprackett/now-playing/internal/app"
	"github.com/zsprackett/now-playing/internal/config"
	"github.com/zsprackett/now-playing/internal/notify"
	"github.com/zsprackett/now-playing/internal/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()

	missing := registry.NewStore(filepath.Join(dir, "missing.json"))
	if got := app.LoadRegistry(missing, discardLogger()); len(got) != 0 {
		t.Errorf("missing file: got %v", got)
	}

	corruptPath := filepath.Join(dir, "corrupt.json")
	os.WriteFile(corruptPath, []byte("{not json"), 0o600)
	if got := app.LoadRegistry(registry.NewStore(corruptPath), discardLogger()); len(got) != 0 {
		t.Errorf("corrupt file: got %v", got)
	}

	good := registry.NewStore(filepath.Join(dir, "config.json"))
	want := []registry.Entry{{SourceID: "app.a", Enabled: true}, {SourceID: "app.b", Enabled: false}}
	if err := good.Save(want); err != nil {
		t.Fatal(err)
	}
	got := app.LoadRegistry(good, discardLogger())
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestNewRunner(t *testing.T) {
	cfg := config.Defaults()

	cfg.ToastMode = config.ToastModeInline
	r, err := app.NewRunner(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(notify.InlineRunner); !ok {
		t.Errorf("inline mode: got %T", r)
	}

	cfg.ToastMode = config.ToastModeProcess
	r, err = app.NewRunner(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	pr, ok := r.(notify.ProcessRunner)
	if !ok || pr.Executable == "" {
		t.Errorf("process mode: got %#v", r)
	}

	cfg.ToastMode = "carrier-pigeon"
	if _, err := app.NewRunner(cfg, nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}
