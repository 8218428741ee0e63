package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/loksync/config"
	"github.com/minios-linux/loksync/settings"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	logOut = io.Discard
	os.Exit(m.Run())
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{name: "clamps below zero", percent: -10, width: 4, want: "░░░░   0%"},
		{name: "mid range", percent: 50, width: 4, want: "██░░  50%"},
		{name: "clamps above hundred", percent: 120, width: 4, want: "████ 100%"},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLangHelpers(t *testing.T) {
	langs := []string{"de", "pt-BR", "zh-Hant"}
	if got := langColumnWidth(langs); got != len("zh-Hant") {
		t.Fatalf("langColumnWidth() = %d, want %d", got, len("zh-Hant"))
	}

	cell := langCell("de", 5)
	if !strings.HasPrefix(cell, "de    ") || !strings.Contains(cell, "Deutsch / German") {
		t.Fatalf("langCell() = %q, want padded code with native and English names", cell)
	}
	if got := langCell("zt", 3); got != "zt " {
		t.Fatalf("langCell(zt) = %q, want %q", got, "zt ")
	}

	if got := langLabels([]string{"de", "zt"}); got != "Deutsch (de), zt" {
		t.Fatalf("langLabels() = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(nil); got != exitOK {
		t.Fatalf("exitCode(nil) = %d", got)
	}
	if got := exitCode(errors.New("boom")); got != exitFailure {
		t.Fatalf("exitCode(error) = %d", got)
	}
	if got := exitCode(&exitError{code: exitChanged}); got != exitChanged {
		t.Fatalf("exitCode(exitError) = %d", got)
	}

	wrapped := &exitError{code: exitFailure, err: context.Canceled}
	if !errors.Is(wrapped, context.Canceled) {
		t.Fatalf("exitError does not unwrap")
	}
	if wrapped.Error() != context.Canceled.Error() {
		t.Fatalf("exitError.Error() = %q", wrapped.Error())
	}
}

func TestReadToken(t *testing.T) {
	got, err := readToken(strings.NewReader("  secret-token \n"))
	if err != nil || got != "secret-token" {
		t.Fatalf("readToken() = %q, %v", got, err)
	}
	got, err = readToken(strings.NewReader("no-newline"))
	if err != nil || got != "no-newline" {
		t.Fatalf("readToken(no newline) = %q, %v", got, err)
	}
	if _, err := readToken(strings.NewReader("\n")); err == nil {
		t.Fatalf("readToken(empty) error = nil, want error")
	}
}

func TestPrintDiff(t *testing.T) {
	var buf bytes.Buffer
	printDiff(&buf, "locales/de/app.json", " {\n-  \"a\": \"x\"\n+  \"a\": \"y\"\n }\n", 1, 1)

	want := "locales/de/app.json (+1 -1)\n {\n-  \"a\": \"x\"\n+  \"a\": \"y\"\n }\n"
	if buf.String() != want {
		t.Fatalf("printDiff() = %q, want %q", buf.String(), want)
	}
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "loksync version dev\n") {
		t.Fatalf("version output = %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Configuration precedence
// ---------------------------------------------------------------------------

func newFlagCmd(f *projectFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addLayoutFlags(cmd, f)
	addBackendFlags(cmd, f)
	return cmd
}

func withConfigFile(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv(config.TokenEnv, "")
	withConfigFile(t, "languages: [fr, it]\nconcurrency: 3\ntoken: file-token\n")

	var f projectFlags
	cmd := newFlagCmd(&f)
	if err := cmd.Flags().Set("langs", "ja,ko"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(cmd, &f)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Languages, []string{"ja", "ko"}) {
		t.Fatalf("Languages = %v, want flag value", cfg.Languages)
	}
	if cfg.Concurrency != 3 {
		t.Fatalf("Concurrency = %d, want config file value", cfg.Concurrency)
	}
	if cfg.URL != config.DefaultURL {
		t.Fatalf("URL = %q, want default", cfg.URL)
	}
	if cfg.Token != "file-token" {
		t.Fatalf("Token = %q, want config file token", cfg.Token)
	}

	t.Setenv(config.TokenEnv, "env-token")
	cfg, err = loadConfig(cmd, &f)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Token != "env-token" {
		t.Fatalf("Token = %q, want env token", cfg.Token)
	}

	if err := cmd.Flags().Set("token", "flag-token"); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(cmd, &f)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Token != "flag-token" {
		t.Fatalf("Token = %q, want flag token", cfg.Token)
	}
}

func TestLoadConfigTokenStore(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv(config.TokenEnv, "")
	withConfigFile(t, "")

	if err := settings.SetToken(config.DefaultURL, "stored-token"); err != nil {
		t.Fatal(err)
	}

	var f projectFlags
	cfg, err := loadConfig(newFlagCmd(&f), &f)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Token != "stored-token" {
		t.Fatalf("Token = %q, want stored token", cfg.Token)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	withConfigFile(t, "")

	var f projectFlags
	cmd := newFlagCmd(&f)
	if err := cmd.Flags().Set("concurrency", "0"); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd, &f); err == nil || !strings.Contains(err.Error(), "concurrency") {
		t.Fatalf("loadConfig() error = %v, want concurrency error", err)
	}
}

// ---------------------------------------------------------------------------
// sync end to end
// ---------------------------------------------------------------------------

func newTranslateServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Q      string `json:"q"`
			Target string `json:"target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": "[" + req.Target + "] " + req.Q})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSyncConfig(t *testing.T, url string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Source = filepath.Join(dir, "locales", "en")
	cfg.Output = filepath.Join(dir, "locales")
	cfg.Languages = []string{"de", "ja"}
	cfg.URL = url
	cfg.Timeout = 5 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunSyncAndCheck(t *testing.T) {
	srv := newTranslateServer(t)
	cfg := testSyncConfig(t, srv.URL)
	writeFile(t, filepath.Join(cfg.Source, "app.json"), `{"nav": {"home": "Home"}, "title": "Home"}`)

	var out bytes.Buffer
	if err := runSync(context.Background(), cfg, syncArgs{}, &out); err != nil {
		t.Fatalf("runSync() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Output, "de", "app.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "{\n  \"nav\": {\n    \"home\": \"[de] Home\"\n  },\n  \"title\": \"[de] Home\"\n}\n"
	if string(data) != want {
		t.Fatalf("de output = %q, want %q", data, want)
	}

	// The output tree sits next to the source; a second scan must not pick
	// up translated documents.
	docs, err := findDocuments(cfg)
	if err != nil || len(docs) != 1 {
		t.Fatalf("findDocuments() = %v, %v; want only the source document", docs, err)
	}

	if err := runSync(context.Background(), cfg, syncArgs{check: true}, &out); err != nil {
		t.Fatalf("check on fresh outputs: %v", err)
	}

	writeFile(t, filepath.Join(cfg.Source, "app.json"), `{"title": "Start"}`)
	out.Reset()
	err = runSync(context.Background(), cfg, syncArgs{check: true}, &out)
	if got := exitCode(err); got != exitChanged {
		t.Fatalf("check exit code = %d, want %d (err %v)", got, exitChanged, err)
	}
	if !strings.Contains(out.String(), "+  \"title\": \"[de] Start\"") {
		t.Fatalf("check diff missing new line:\n%s", out.String())
	}

	data, _ = os.ReadFile(filepath.Join(cfg.Output, "de", "app.json"))
	if string(data) != want {
		t.Fatalf("check mode modified output")
	}
}

func TestRunSyncKeepsConfiguredLanguageCodes(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv(config.TokenEnv, "")
	withConfigFile(t, "")
	srv := newTranslateServer(t)
	dir := t.TempDir()

	var f projectFlags
	cmd := newFlagCmd(&f)
	for name, value := range map[string]string{
		"source": filepath.Join(dir, "src"),
		"output": filepath.Join(dir, "out"),
		"langs":  "tl,pt_br",
		"url":    srv.URL,
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := loadConfig(cmd, &f)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Languages, []string{"tl", "pt_br"}) {
		t.Fatalf("Languages = %v, want configured codes", cfg.Languages)
	}

	writeFile(t, filepath.Join(cfg.Source, "app.json"), `{"title": "Home"}`)
	if err := runSync(context.Background(), cfg, syncArgs{}, io.Discard); err != nil {
		t.Fatalf("runSync() error: %v", err)
	}

	for _, lang := range []string{"tl", "pt_br"} {
		data, err := os.ReadFile(filepath.Join(cfg.Output, lang, "app.json"))
		if err != nil {
			t.Fatalf("read %s output: %v", lang, err)
		}
		want := "{\n  \"title\": \"[" + lang + "] Home\"\n}\n"
		if string(data) != want {
			t.Fatalf("%s output = %q, want %q", lang, data, want)
		}
	}
	for _, dir := range []string{"fil", "pt-BR"} {
		if _, err := os.Stat(filepath.Join(cfg.Output, dir)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("unexpected output directory %s (err %v)", dir, err)
		}
	}
}

func TestRunSyncDocumentFailure(t *testing.T) {
	srv := newTranslateServer(t)
	cfg := testSyncConfig(t, srv.URL)
	writeFile(t, filepath.Join(cfg.Source, "bad.json"), `{"a": `)
	writeFile(t, filepath.Join(cfg.Source, "good.json"), `{"a": "Hello"}`)

	err := runSync(context.Background(), cfg, syncArgs{}, io.Discard)
	if got := exitCode(err); got != exitFailure {
		t.Fatalf("exit code = %d, want %d", got, exitFailure)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output, "ja", "good.json")); err != nil {
		t.Fatalf("good document not written: %v", err)
	}
}

func TestRunSyncDryRun(t *testing.T) {
	cfg := testSyncConfig(t, "http://127.0.0.1:1/translate")
	writeFile(t, filepath.Join(cfg.Source, "app.json"), `{"a": "Hello", "b": "Hello"}`)

	if err := runSync(context.Background(), cfg, syncArgs{dryRun: true}, io.Discard); err != nil {
		t.Fatalf("dry run error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output, "de")); !os.IsNotExist(err) {
		t.Fatalf("dry run created outputs, stat err=%v", err)
	}
}

func TestRunStatus(t *testing.T) {
	srv := newTranslateServer(t)
	cfg := testSyncConfig(t, srv.URL)
	writeFile(t, filepath.Join(cfg.Source, "app.json"), `{"a": "Hello", "b": {"c": "World"}}`)
	writeFile(t, filepath.Join(cfg.Output, "de", "app.json"), `{"a": "Hallo"}`)

	var out bytes.Buffer
	if err := runStatus(cfg, &out); err != nil {
		t.Fatalf("runStatus() error: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "app.json") || !strings.Contains(text, "1/2") {
		t.Fatalf("status output missing document or counts:\n%s", text)
	}
	if !strings.Contains(text, "output missing") {
		t.Fatalf("status output missing ja entry:\n%s", text)
	}
}

func TestLogFileReceivesPlainLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loksync.log")
	openLogFile(path)
	logWarning("keeping %s", "Hello")
	closeLogFile()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "[WARN] keeping Hello\n") {
		t.Fatalf("log file = %q, want a [WARN] line", data)
	}
}
