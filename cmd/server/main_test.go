package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/population"
)

func TestLoadConfig_Missing(t *testing.T) {
	cfg, found, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found = true for a missing file")
	}
	if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_OverridesAndEnv(t *testing.T) {
	t.Setenv("TEST_AZURE_KEY", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
addr: ":9000"
data_dir: /var/lib/census
municipalities: true
check_interval: 30s
sdmx:
  base_url: http://localhost:1234/rest
  retries: 0
build:
  useful_dataflows: ["22_289", "22_315"]
llm:
  default: gpt4o
  models:
    gpt4o:
      api_key: ${TEST_AZURE_KEY}
      endpoint: https://example.openai.azure.com
      api_version: "2024-02-01"
      deployment: gpt-4o
      timeout: 45s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, found, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("found = false")
	}
	if cfg.Addr != ":9000" || cfg.DataDir != "/var/lib/census" || !cfg.Municipalities {
		t.Errorf("top-level fields not applied: %+v", cfg)
	}
	if cfg.CheckInterval != 30*time.Second {
		t.Errorf("CheckInterval = %v", cfg.CheckInterval)
	}
	if cfg.QueryTimeout != 2*time.Minute {
		t.Errorf("QueryTimeout default lost: %v", cfg.QueryTimeout)
	}
	if cfg.SDMX.BaseURL != "http://localhost:1234/rest" || cfg.SDMX.Retries != 0 {
		t.Errorf("sdmx = %+v", cfg.SDMX)
	}
	if cfg.SDMX.Agency != "IT1" {
		t.Errorf("sdmx agency default lost: %q", cfg.SDMX.Agency)
	}
	if diff := cmp.Diff([]string{"22_289", "22_315"}, cfg.Build.UsefulDataflows); diff != "" {
		t.Errorf("useful dataflows (-want +got):\n%s", diff)
	}
	if cfg.Build.TerritoryFlow != "22_289" {
		t.Errorf("territory flow default lost: %q", cfg.Build.TerritoryFlow)
	}
	m := cfg.LLM.Models["gpt4o"]
	if m.APIKey != "s3cret" {
		t.Errorf("api_key = %q, want expanded env", m.APIKey)
	}
	if m.Timeout != 45*time.Second {
		t.Errorf("timeout = %v", m.Timeout)
	}
	if err := m.Validate("gpt4o"); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("addr: [unclosed"), 0o644)
	if _, _, err := loadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" dataflows, territories:R ,,")
	if diff := cmp.Diff([]string{"dataflows", "territories:R"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
}

func TestRenderRows(t *testing.T) {
	var buf bytes.Buffer
	renderRows(&buf, &population.Result{
		Rows: []population.Row{{Location: "Bologna", Sex: "Total", Age: "85-86", TimePeriod: "2023", Population: "12651"}},
		URL:  "https://example.test/data",
	})
	out := buf.String()
	for _, want := range []string{"Bologna", "85-86", "12651", "(1 rows)", "https://example.test/data"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	renderRows(&buf, &population.Result{URL: "u"})
	if !strings.Contains(buf.String(), "(0 rows)") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestRenderManifest(t *testing.T) {
	var buf bytes.Buffer
	renderManifest(&buf, &catalog.Manifest{Steps: []catalog.StepResult{
		{ID: "dataflows", Records: 2},
		{ID: "territories:R", Error: "boom"},
	}})
	out := buf.String()
	if !strings.Contains(out, "dataflows") || !strings.Contains(out, "FAILED: boom") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
