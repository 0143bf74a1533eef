package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soyunomas/dupefinder/internal/config"
	"github.com/soyunomas/dupefinder/internal/engine"
	"github.com/soyunomas/dupefinder/internal/report"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestParseArgs_Positional(t *testing.T) {
	isolateConfig(t)

	c, _, err := parseArgs([]string{"-quiet", "photos", "dupes.txt"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if c.dir != "photos" || c.output != "dupes.txt" || !c.quiet {
		t.Errorf("unexpected cli: %+v", c)
	}
}

func TestParseArgs_Conflicts(t *testing.T) {
	isolateConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"dir twice", []string{"-dir", "a", "b"}},
		{"output twice", []string{"-output", "x.txt", "a", "y.txt"}},
		{"too many", []string{"a", "b", "c"}},
		{"unknown flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseArgs(tt.args, io.Discard); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestParseArgs_FlagsOverrideFile(t *testing.T) {
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "config.ini")
	data := "[compare]\nchunk_size = 1KiB\ndigest = sha256\n\n[scan]\nexclude = *.bak\n\n[output]\nmode = all\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	_, cfg, err := parseArgs([]string{"-config", path, "-digest", "md5", "-exclude", "*.tmp", "-sort", "size"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Compare.ChunkSize != 1024 {
		t.Errorf("chunk size from file expected 1024, got %d", resolved.Compare.ChunkSize)
	}
	if got := resolved.Compare.Algorithm.String(); got != "md5" {
		t.Errorf("flag must override file digest, got %s", got)
	}
	if resolved.Report.Mode != report.ModeAll {
		t.Errorf("mode from file expected all")
	}
	if resolved.Report.Order != engine.OrderSize {
		t.Errorf("expected size order, got %v", resolved.Report.Order)
	}
	if len(resolved.Excludes) != 2 || resolved.Excludes[0] != "*.bak" || resolved.Excludes[1] != "*.tmp" {
		t.Errorf("unexpected excludes: %v", resolved.Excludes)
	}
}

func TestParseArgs_MissingExplicitConfig(t *testing.T) {
	isolateConfig(t)

	if _, _, err := parseArgs([]string{"-config", filepath.Join(t.TempDir(), "missing.ini")}, io.Discard); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestParseArgs_AllFalseOverridesFile(t *testing.T) {
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("[output]\nmode = all\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, cfg, err := parseArgs([]string{"-config", path, "-all=false"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if cfg.Mode != "duplicates" {
		t.Errorf("expected duplicates mode, got %s", cfg.Mode)
	}
}

func TestWriteReport_File(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"a.txt": "hello", "b.txt": "hello", "c.txt": "world"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	resolved, err := config.Default().Resolve()
	if err != nil {
		t.Fatal(err)
	}
	resolved.Report.Relative = true

	runner, err := engine.New(engine.Options{Compare: resolved.Compare, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Run(t.Context(), dir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "report.txt")
	rep := report.Build(res, report.Metadata{ScannedPath: dir}, resolved.Report)
	if err := writeReport(out, res, rep, resolved); err != nil {
		t.Fatalf("writeReport failed: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a.txt: [b.txt]\n" {
		t.Errorf("unexpected report: %q", got)
	}
}

func TestWriteFatal(t *testing.T) {
	boom := errors.New(`no existe "fotos"`)

	var stdout, stderr bytes.Buffer
	writeFatal(&stdout, &stderr, boom, true)

	var decoded map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("stdout must be valid JSON: %v\n%s", err, stdout.String())
	}
	if decoded["error"] != boom.Error() {
		t.Errorf("unexpected error field: %q", decoded["error"])
	}
	if !strings.HasPrefix(stderr.String(), "❌ Error fatal: ") {
		t.Errorf("unexpected stderr: %q", stderr.String())
	}

	stdout.Reset()
	writeFatal(&stdout, &stderr, boom, false)
	if stdout.Len() != 0 {
		t.Errorf("text mode must keep stdout empty, got %q", stdout.String())
	}
}

func TestJSONToStdout(t *testing.T) {
	cfg := config.Default()
	if jsonToStdout(cfg, "") {
		t.Error("text format is not JSON")
	}
	cfg.Format = "json"
	if !jsonToStdout(cfg, "") {
		t.Error("json format without -output goes to stdout")
	}
	if jsonToStdout(cfg, "report.json") {
		t.Error("json written to a file leaves stdout free")
	}
}
