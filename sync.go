package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/loksync/config"
	"github.com/minios-linux/loksync/i18n"
	"github.com/minios-linux/loksync/langmeta"
	"github.com/minios-linux/loksync/scan"
	"github.com/minios-linux/loksync/settings"
	"github.com/minios-linux/loksync/translate"
)

// ---------------------------------------------------------------------------
// Shared project flags
// ---------------------------------------------------------------------------

// projectFlags are the flags that override .loksync.yaml. Only flags that
// were set on the command line take effect.
type projectFlags struct {
	source      string
	output      string
	langs       string
	sourceLang  string
	concurrency int
	url         string
	token       string
	timeout     time.Duration
	maxRetries  int
	proxy       string
}

func addLayoutFlags(cmd *cobra.Command, f *projectFlags) {
	cmd.Flags().StringVarP(&f.source, "source", "s", config.DefaultSource, "Directory with source-language JSON documents")
	cmd.Flags().StringVarP(&f.output, "output", "o", config.DefaultOutput, "Directory receiving <lang>/ output trees")
	cmd.Flags().StringVarP(&f.langs, "langs", "l", strings.Join(config.DefaultLanguages, ","), "Target languages (comma-separated)")
	cmd.Flags().StringVar(&f.sourceLang, "source-lang", config.DefaultSourceLang, "Source language code")
}

func addBackendFlags(cmd *cobra.Command, f *projectFlags) {
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "c", config.DefaultConcurrency, "Maximum backend requests in flight")
	cmd.Flags().StringVarP(&f.url, "url", "u", config.DefaultURL, "Translation endpoint URL")
	cmd.Flags().StringVar(&f.token, "token", "", "Bearer token (or "+config.TokenEnv+" env var)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "Timeout for a single backend request")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", 0, "Retries on network errors, 5xx and 429 responses")
	cmd.Flags().StringVar(&f.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
}

// loadConfig resolves the effective configuration:
// flag > environment > config file > defaults, with the token store last.
func loadConfig(cmd *cobra.Command, f *projectFlags) (config.Config, error) {
	cfg := config.Defaults()

	file, err := config.LoadFile(configPath)
	if err != nil {
		return cfg, err
	}
	if file == nil && cmd.Flags().Changed("config") {
		return cfg, fmt.Errorf("config file %s not found", configPath)
	}
	cfg.Apply(file)

	fl := cmd.Flags()
	if fl.Changed("source") {
		cfg.Source = f.source
	}
	if fl.Changed("output") {
		cfg.Output = f.output
	}
	if fl.Changed("langs") {
		cfg.Languages = config.SplitList(f.langs)
	}
	if fl.Changed("source-lang") {
		cfg.SourceLang = f.sourceLang
	}
	if fl.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if fl.Changed("url") {
		cfg.URL = f.url
	}
	if fl.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if fl.Changed("max-retries") {
		cfg.MaxRetries = f.maxRetries
	}
	if fl.Changed("proxy") {
		cfg.Proxy = f.proxy
	}

	switch {
	case fl.Changed("token"):
		cfg.Token = f.token
	case os.Getenv(config.TokenEnv) != "":
		cfg.Token = os.Getenv(config.TokenEnv)
	case cfg.Token == "":
		cfg.Token = settings.Token(cfg.URL)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// findDocuments lists the source documents, skipping the output tree when
// it is nested inside the source directory.
func findDocuments(cfg config.Config) ([]string, error) {
	exclude := append([]string{cfg.Output}, cfg.Exclude...)
	return scan.FindDocuments(cfg.Source, exclude...)
}

func langLabels(langs []string) string {
	labels := make([]string, len(langs))
	for i, lang := range langs {
		labels[i] = langmeta.Resolve(lang).Label()
	}
	return strings.Join(labels, ", ")
}

// ---------------------------------------------------------------------------
// sync
// ---------------------------------------------------------------------------

type syncArgs struct {
	dryRun  bool
	check   bool
	verbose bool
}

func newSyncCmd() *cobra.Command {
	var (
		f projectFlags
		a syncArgs
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Translate all documents into every target language",
		Long: `Translate every JSON document under the source directory.

Each distinct string of a document is sent once per target language. Outputs
are written atomically and only when their content changes, so re-running
on unchanged input leaves the output tree untouched.

Examples:
  # Defaults: locales/en -> locales/{de,id,ja} via a local LibreTranslate
  loksync sync

  # Other languages and endpoint
  loksync sync -l fr,pt-BR -u https://translate.example.com/translate

  # Show what would be requested, without calling the backend
  loksync sync --dry-run

  # Fail (exit 2) when committed outputs are out of date
  loksync sync --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), cfg, a, cmd.OutOrStdout())
		},
	}

	addLayoutFlags(cmd, &f)
	addBackendFlags(cmd, &f)
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would be translated without calling the backend")
	cmd.Flags().BoolVar(&a.check, "check", false, "Translate and print diffs without writing; exit 2 if outputs would change")
	cmd.Flags().BoolVar(&a.verbose, "verbose", false, "Enable detailed logging")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "check")

	_ = cmd.RegisterFlagCompletionFunc("langs", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"de", "es", "fr", "id", "it", "ja", "ko", "pt-BR", "ru", "uk", "zh"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runSync(parent context.Context, cfg config.Config, a syncArgs, out io.Writer) error {
	docs, err := findDocuments(cfg)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		logWarning(i18n.T("No JSON documents found in %s"), cfg.Source)
		return nil
	}
	logInfo(i18n.N("Found %d document in %s", "Found %d documents in %s", len(docs)), len(docs), cfg.Source)
	logInfo("%s -> %s", cfg.SourceLang, langLabels(cfg.Languages))

	if a.dryRun {
		return runDryRun(cfg, docs)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Setup signal handling for graceful cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, cancelling..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	backendCfg := translate.BackendConfig{
		URL:        cfg.URL,
		Token:      cfg.Token,
		Proxy:      cfg.Proxy,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}
	if a.verbose {
		backendCfg.OnDebug = logInfo
	}
	backend, err := translate.NewHTTPBackend(backendCfg)
	if err != nil {
		return err
	}

	opts := translate.Options{
		SourceDir:  cfg.Source,
		OutputDir:  cfg.Output,
		SourceLang: cfg.SourceLang,
		Languages:  cfg.Languages,
		Backend:    backend,
		Pool:       translate.NewPool(cfg.Concurrency),
		Check:      a.check,
		Verbose:    a.verbose,
		OnLog:      logInfo,
		OnWarn:     logWarning,
		OnError:    logError,
	}
	if a.check {
		opts.OnDiff = func(path, diff string, added, removed int) {
			printDiff(out, path, diff, added, removed)
		}
	}

	p, err := translate.New(opts)
	if err != nil {
		return err
	}

	start := time.Now()
	summary, runErr := p.Run(ctx, docs)
	if ctx.Err() != nil {
		return &exitError{code: exitFailure, err: errors.New(i18n.T("sync cancelled, no further outputs written"))}
	}

	logInfo(i18n.T("Backend calls: %d, kept in source language: %d"), summary.Calls, summary.Fallbacks)
	if a.check {
		if summary.Changed > 0 {
			logWarning(i18n.N("%d output would change", "%d outputs would change", summary.Changed), summary.Changed)
		} else if summary.Failed == 0 {
			logSuccess("%s", i18n.T("All outputs are up to date"))
		}
	} else {
		logSuccess(i18n.T("Written: %d, unchanged: %d, failed documents: %d (%s)"),
			summary.Written, summary.Unchanged, summary.Failed, time.Since(start).Round(time.Millisecond))
	}

	if runErr != nil {
		return &exitError{code: exitFailure}
	}
	if a.check && summary.Changed > 0 {
		return &exitError{code: exitChanged}
	}
	return nil
}

// runDryRun reports the unique strings each document would send per
// language without contacting the backend.
func runDryRun(cfg config.Config, docs []string) error {
	logInfo("%s", i18n.T("Dry run: no requests will be sent"))

	requests := 0
	failed := 0
	for _, plan := range translate.PlanDocuments(docs) {
		if plan.Err != nil {
			logError("%v", plan.Err)
			failed++
			continue
		}
		logInfo(i18n.T("%s: %d keys, %d unique strings"), relPath(cfg.Source, plan.Path), plan.Keys(), plan.Unique)
		requests += plan.Unique * len(cfg.Languages)
	}
	logInfo(i18n.N("Would send %d request", "Would send %d requests", requests), requests)

	if failed > 0 {
		return &exitError{code: exitFailure}
	}
	return nil
}

// printDiff writes a check-mode diff with colored added/removed lines.
func printDiff(w io.Writer, path, diff string, added, removed int) {
	logMu.Lock()
	defer logMu.Unlock()

	fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint(path),
		color.New(color.FgCyan).Sprintf("(+%d -%d)", added, removed))
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			fmt.Fprint(w, colorOK.Sprint(line))
		case '-':
			fmt.Fprint(w, colorError.Sprint(line))
		default:
			fmt.Fprint(w, line)
		}
	}
}

func relPath(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}
