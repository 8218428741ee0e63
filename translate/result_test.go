package translate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_Text(t *testing.T) {
	ok := Translated("Hello", "de", "Hallo")
	assert.Equal(t, "Hallo", ok.Text())
	assert.Equal(t, OutcomeTranslated, ok.Outcome)

	fb := Fallback("Hello", "de", errors.New("timeout"))
	assert.Equal(t, "Hello", fb.Text())
	assert.Equal(t, OutcomeFallback, fb.Outcome)
	assert.EqualError(t, fb.Reason, "timeout")
}

func TestLanguageCache_FirstResultWins(t *testing.T) {
	c := NewLanguageCache("de", 2)

	assert.True(t, c.Put(Translated("Hello", "de", "Hallo")))
	assert.False(t, c.Put(Translated("Hello", "de", "Servus")))
	assert.False(t, c.Put(Fallback("Hello", "de", errors.New("late"))))

	assert.Equal(t, "Hallo", c.Lookup("Hello"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Ignored())
	assert.Equal(t, 0, c.Fallbacks())
}

func TestLanguageCache_Fallbacks(t *testing.T) {
	c := NewLanguageCache("ja", 2)
	c.Put(Fallback("Hello", "ja", errors.New("down")))
	c.Put(Translated("World", "ja", "世界"))

	assert.Equal(t, 1, c.Fallbacks())
	assert.Equal(t, "Hello", c.Lookup("Hello"))
	assert.Equal(t, "世界", c.Lookup("World"))
}

func TestLanguageCache_LookupMissing(t *testing.T) {
	c := NewLanguageCache("id", 0)
	assert.False(t, c.Has("Bye"))
	assert.Equal(t, "Bye", c.Lookup("Bye"))
}
