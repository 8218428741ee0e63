package translate

// Outcome tells how a Result was produced.
type Outcome int

const (
	// OutcomeTranslated means the backend returned a usable translation.
	OutcomeTranslated Outcome = iota
	// OutcomeFallback means the source text is used in place of a translation.
	OutcomeFallback
)

// Result is the outcome of fetching one unique string for one language.
type Result struct {
	Source  string
	Lang    string
	Outcome Outcome
	// Reason is set for fallbacks.
	Reason error

	translated string
}

// Translated returns a successful result.
func Translated(source, lang, text string) Result {
	return Result{Source: source, Lang: lang, Outcome: OutcomeTranslated, translated: text}
}

// Fallback returns a result that keeps the source text.
func Fallback(source, lang string, reason error) Result {
	return Result{Source: source, Lang: lang, Outcome: OutcomeFallback, Reason: reason}
}

// Text returns the string to use in output: the translation, or the source
// text for a fallback.
func (r Result) Text() string {
	if r.Outcome == OutcomeTranslated {
		return r.translated
	}
	return r.Source
}

// ---------------------------------------------------------------------------
// Language cache
// ---------------------------------------------------------------------------

// LanguageCache maps source strings to translations for one document and
// one target language. It is filled once after all fetches finish and only
// read afterwards, so it needs no locking.
type LanguageCache struct {
	Lang      string
	entries   map[string]string
	fallbacks int
	ignored   int
}

// NewLanguageCache returns an empty cache sized for n strings.
func NewLanguageCache(lang string, n int) *LanguageCache {
	return &LanguageCache{Lang: lang, entries: make(map[string]string, n)}
}

// Put records a result. The first result for a source string wins; later
// ones are ignored and Put returns false.
func (c *LanguageCache) Put(r Result) bool {
	if _, ok := c.entries[r.Source]; ok {
		c.ignored++
		return false
	}
	c.entries[r.Source] = r.Text()
	if r.Outcome == OutcomeFallback {
		c.fallbacks++
	}
	return true
}

// Lookup returns the translation for source, or source itself when the
// cache has no entry.
func (c *LanguageCache) Lookup(source string) string {
	if t, ok := c.entries[source]; ok {
		return t
	}
	return source
}

// Has reports whether source has an entry.
func (c *LanguageCache) Has(source string) bool {
	_, ok := c.entries[source]
	return ok
}

// Len returns the number of entries.
func (c *LanguageCache) Len() int { return len(c.entries) }

// Fallbacks returns how many entries hold the source text due to a failure.
func (c *LanguageCache) Fallbacks() int { return c.fallbacks }

// Ignored returns how many duplicate submissions were dropped.
func (c *LanguageCache) Ignored() int { return c.ignored }
