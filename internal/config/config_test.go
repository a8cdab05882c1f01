package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/ingestion"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigPath, "RECONCILER_RAW_DIR", "RECONCILER_EXTENSION", "RECONCILER_WORKERS",
		"RECONCILER_START", "RECONCILER_END", "RECONCILER_CALENDAR", "RECONCILER_REBATES",
		"RECONCILER_OUTPUT_DIR", "RECONCILER_PDF", "DB_PATH", "RECONCILER_PERSIST",
		"RECONCILER_TOLERANCE", "PORT", "RECONCILER_HTTP_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reconciler.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Tolerance() != domain.DefaultTolerance {
		t.Errorf("tolerance = %v, want %v", cfg.Tolerance(), domain.DefaultTolerance)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
raw_dir: /srv/statements
extension: csv
workers: 3
start: "2019-01-02"
end: "20190131"
pdf: true
layout:
  tolerance: 0.01
  brokers: ["华泰期货"]
  instrument_prefixes:
    ec: INE
  rules:
    - name: huatai-transfer
      contains: 转账
      broker: 华泰期货
      category: BankTransfer
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RawDir != "/srv/statements" || cfg.Workers != 3 || !cfg.PDF {
		t.Errorf("scalar fields not applied: %+v", cfg)
	}
	if cfg.Extension != ".csv" {
		t.Errorf("extension = %q, want .csv", cfg.Extension)
	}
	if cfg.Tolerance() != 0.01 {
		t.Errorf("tolerance = %v", cfg.Tolerance())
	}
	if diff := cmp.Diff([]string{"华泰期货"}, cfg.Layout.Brokers); diff != "" {
		t.Errorf("brokers (-want +got):\n%s", diff)
	}
	wantRules := []ingestion.ClassificationRule{
		{Name: "huatai-transfer", Contains: "转账", Broker: "华泰期货", Category: domain.CategoryBankTransfer},
	}
	if diff := cmp.Diff(wantRules, cfg.Layout.Rules); diff != "" {
		t.Errorf("rules (-want +got):\n%s", diff)
	}
	// Labels not named in the file keep their defaults.
	if diff := cmp.Diff(ingestion.DefaultLayout().BalanceCFLabels, cfg.Layout.BalanceCFLabels); diff != "" {
		t.Errorf("balance labels (-want +got):\n%s", diff)
	}

	r, err := cfg.Range()
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if !r.Start.Equal(time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)) || !r.End.Equal(time.Date(2019, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("range = %v..%v", r.Start, r.End)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, writeFile(t, "workers: 2\noutput_dir: from-file\n"))
	t.Setenv("RECONCILER_OUTPUT_DIR", "from-env")
	t.Setenv("RECONCILER_TOLERANCE", "0.5")
	t.Setenv("PORT", "9090")
	t.Setenv("RECONCILER_PDF", "not-a-bool")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Workers)
	}
	if cfg.OutputDir != "from-env" {
		t.Errorf("output dir = %q, want from-env", cfg.OutputDir)
	}
	if cfg.Tolerance() != 0.5 {
		t.Errorf("tolerance = %v, want 0.5", cfg.Tolerance())
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("http addr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.PDF {
		t.Error("unparsable bool should keep the default")
	}
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"bad yaml", "workers: [\n"},
		{"zero workers", "workers: 0\n"},
		{"bad start", "start: 2019/01/02\n"},
		{"inverted range", "start: \"20190201\"\nend: \"20190101\"\n"},
		{"unknown category", "layout:\n  rules:\n    - contains: x\n      category: Bonus\n"},
		{"negative tolerance", "layout:\n  tolerance: -1\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := Load(writeFile(t, tc.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
