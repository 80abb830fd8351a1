package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	applog "finanzas/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.env")
	if err := os.WriteFile(good, []byte("FINANZAS_TEST_VAR=hola\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FINANZAS_TEST_VAR") })

	if err := LoadEnvFile(filepath.Join(dir, "missing.env"), good); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("FINANZAS_TEST_VAR"); got != "hola" {
		t.Errorf("FINANZAS_TEST_VAR = %q", got)
	}
}

func TestGracefulShutdownRunsEveryStep(t *testing.T) {
	logger := applog.New(applog.Config{Output: io.Discard})
	var ran []int
	GracefulShutdown(logger, time.Second,
		func(context.Context) error { ran = append(ran, 1); return errors.New("boom") },
		func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("step context has no deadline")
			}
			ran = append(ran, 2)
			return nil
		},
	)
	if len(ran) != 2 {
		t.Errorf("ran = %v", ran)
	}
}

func TestSetupLoggerFallsBackToInfo(t *testing.T) {
	l := SetupLogger("verbose", applog.ComponentCLI)
	if l.Component() != applog.ComponentCLI {
		t.Errorf("component = %q", l.Component())
	}
	if l.Enabled(context.Background(), -4) {
		t.Error("debug should be disabled")
	}
}
