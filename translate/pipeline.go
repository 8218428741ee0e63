// Package translate implements the batch translation pipeline for nested
// JSON localization documents.
//
// For every document the pipeline flattens the tree, collects the distinct
// source strings, fetches each of them once per target language through a
// Backend, and rebuilds and writes one tree per language. All backend calls
// of a run share one Pool, so the number of requests in flight is bounded
// across every document and language. A failed call keeps the source text;
// a failed document is reported and does not stop the others.
package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/loksync/jsontree"
	"github.com/minios-linux/loksync/outfile"
	"github.com/minios-linux/loksync/scan"
)

// DefaultSourceLang is the source language sent to the backend.
const DefaultSourceLang = "en"

// ErrEmptyTranslation is returned when the backend answers a non-empty
// string with an empty translation.
var ErrEmptyTranslation = errors.New("backend returned an empty translation")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls a pipeline run.
type Options struct {
	// SourceDir is the root the documents were discovered under.
	SourceDir string
	// OutputDir receives <lang>/<relative path> outputs.
	OutputDir string
	// SourceLang is the language of the source documents (default "en").
	SourceLang string
	// Languages are the target language codes.
	Languages []string
	// Backend performs the translations.
	Backend Backend
	// Pool bounds concurrent backend calls. Share one Pool per run.
	Pool *Pool
	// Check computes every output without writing; differences are
	// reported through OnDiff.
	Check bool
	// Verbose enables per-document detail through OnLog.
	Verbose bool
	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnWarn emits per-string fallback warnings.
	OnWarn func(format string, args ...any)
	// OnError emits document and output failures.
	OnError func(format string, args ...any)
	// OnDiff receives the diff of an output that would change in check mode.
	OnDiff func(path, diff string, added, removed int)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else {
		o.log(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// Summary counts what a run did.
type Summary struct {
	Documents int
	Failed    int
	// Outputs is the number of language outputs produced without error.
	Outputs   int
	Written   int
	Unchanged int
	// Changed counts outputs that differ from disk in check mode.
	Changed   int
	Calls     int
	Fallbacks int
}

// Pipeline runs translations for a set of documents.
type Pipeline struct {
	opts Options

	calls     atomic.Int64
	fallbacks atomic.Int64
	outputs   atomic.Int64
	written   atomic.Int64
	unchanged atomic.Int64
	changed   atomic.Int64
}

// New validates opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Backend == nil {
		return nil, errors.New("no translation backend configured")
	}
	if opts.Pool == nil {
		return nil, errors.New("no concurrency pool configured")
	}
	if len(opts.Languages) == 0 {
		return nil, errors.New("no target languages configured")
	}
	if opts.SourceLang == "" {
		opts.SourceLang = DefaultSourceLang
	}
	return &Pipeline{opts: opts}, nil
}

// Run processes all documents concurrently. Each failure is reported
// through OnError and the failures are combined into the returned error;
// a failing document never stops the others.
func (p *Pipeline) Run(ctx context.Context, docs []string) (Summary, error) {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		errs   error
		failed int
	)

	if p.opts.Verbose {
		p.opts.log("%d documents, %d languages, up to %d requests in flight",
			len(docs), len(p.opts.Languages), p.opts.Pool.Size())
	}

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			err := p.processDocument(ctx, doc)
			if err == nil {
				return nil
			}
			if ctx.Err() == nil {
				for _, e := range multierr.Errors(err) {
					p.opts.logError("%v", e)
				}
			}
			mu.Lock()
			errs = multierr.Append(errs, err)
			failed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s := Summary{
		Documents: len(docs),
		Failed:    failed,
		Outputs:   int(p.outputs.Load()),
		Written:   int(p.written.Load()),
		Unchanged: int(p.unchanged.Load()),
		Changed:   int(p.changed.Load()),
		Calls:     int(p.calls.Load()),
		Fallbacks: int(p.fallbacks.Load()),
	}
	if err := ctx.Err(); err != nil {
		return s, err
	}
	return s, errs
}

func (p *Pipeline) processDocument(ctx context.Context, doc string) error {
	data, err := os.ReadFile(doc)
	if err != nil {
		return &DocumentError{Path: doc, Op: OpRead, Err: err}
	}
	root, err := jsontree.Parse(data)
	if err != nil {
		return &DocumentError{Path: doc, Op: OpParse, Err: err}
	}

	flat := jsontree.Flatten(root)
	unique := flat.UniqueValues()
	p.opts.log("Translating %s (%d keys, %d unique strings)", doc, len(flat), len(unique))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	for _, lang := range p.opts.Languages {
		lang := lang
		g.Go(func() error {
			if err := p.processLanguage(ctx, doc, lang, flat, unique); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (p *Pipeline) processLanguage(ctx context.Context, doc, lang string, flat jsontree.FlatMap, unique []string) error {
	cache, err := p.fetchLanguage(ctx, lang, unique)
	if err != nil {
		return err
	}
	if n := cache.Fallbacks(); n > 0 {
		p.opts.warn("%s [%s]: %d/%d strings kept in source language", doc, lang, n, cache.Len())
	}

	if n := cache.Ignored(); n > 0 {
		p.opts.warn("%s [%s]: %d duplicate results ignored", doc, lang, n)
	}

	translated := make(jsontree.FlatMap, len(flat))
	missing := 0
	for _, key := range flat.Keys() {
		if !cache.Has(flat[key]) {
			missing++
		}
		translated[key] = cache.Lookup(flat[key])
	}
	if missing > 0 {
		p.opts.warn("%s [%s]: %d keys had no fetched result, kept in source language", doc, lang, missing)
	}

	tree, err := jsontree.Build(translated)
	if err != nil {
		return &OutputError{Path: doc, Lang: lang, Op: OpBuild, Err: err}
	}
	data, err := jsontree.Marshal(tree)
	if err != nil {
		return &OutputError{Path: doc, Lang: lang, Op: OpBuild, Err: err}
	}

	outPath, err := scan.OutputPath(p.opts.SourceDir, p.opts.OutputDir, lang, doc)
	if err != nil {
		return &OutputError{Path: doc, Lang: lang, Op: OpWrite, Err: err}
	}

	if p.opts.Check {
		return p.check(lang, outPath, data)
	}

	written, err := outfile.WriteIfChanged(outPath, data)
	if err != nil {
		return &OutputError{Path: outPath, Lang: lang, Op: OpWrite, Err: err}
	}
	p.outputs.Add(1)
	if written {
		p.written.Add(1)
		p.opts.log("Saved %s", outPath)
	} else {
		p.unchanged.Add(1)
		if p.opts.Verbose {
			p.opts.log("Unchanged %s", outPath)
		}
	}
	return nil
}

func (p *Pipeline) check(lang, outPath string, data []byte) error {
	existing, err := outfile.Existing(outPath)
	if err != nil {
		return &OutputError{Path: outPath, Lang: lang, Op: OpRead, Err: err}
	}
	p.outputs.Add(1)
	if bytes.Equal(existing, data) {
		p.unchanged.Add(1)
		return nil
	}
	p.changed.Add(1)
	if p.opts.OnDiff != nil {
		diff, added, removed := outfile.Diff(string(existing), string(data))
		p.opts.OnDiff(outPath, diff, added, removed)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// fetchLanguage translates every unique string for lang and returns the
// filled cache once all fetches have finished.
func (p *Pipeline) fetchLanguage(ctx context.Context, lang string, texts []string) (*LanguageCache, error) {
	results := make(chan Result, len(texts))

	var g errgroup.Group
	for _, text := range texts {
		text := text
		g.Go(func() error {
			results <- p.fetch(ctx, text, lang)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cache := NewLanguageCache(lang, len(texts))
	for r := range results {
		cache.Put(r)
	}
	return cache, nil
}

// fetch translates one string while holding a permit. Every failure turns
// into a fallback to the source text.
func (p *Pipeline) fetch(ctx context.Context, text, lang string) Result {
	var translated string
	err := p.opts.Pool.Do(ctx, func(ctx context.Context) error {
		p.calls.Add(1)
		var err error
		translated, err = p.opts.Backend.Translate(ctx, text, p.opts.SourceLang, lang)
		return err
	})
	if err == nil && translated == "" && text != "" {
		err = ErrEmptyTranslation
	}
	if err != nil {
		p.fallbacks.Add(1)
		if ctx.Err() == nil {
			p.opts.warn("[%s] keeping source text for %q: %v", lang, truncate(text, 60), err)
		}
		return Fallback(text, lang, fmt.Errorf("translating to %s: %w", lang, err))
	}
	return Translated(text, lang, translated)
}
