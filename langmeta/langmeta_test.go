package langmeta

import (
	"reflect"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
		{in: "zh-Hant", want: "zh-Hant"},
		{in: "zt", want: "zt"},
	}

	for _, tc := range cases {
		got, err := Canonicalize(tc.in)
		if err != nil {
			t.Fatalf("Canonicalize(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalize_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "not a lang", "de--DE", "toolonglanguage"} {
		if got, err := Canonicalize(in); err == nil {
			t.Fatalf("Canonicalize(%q) = %q, want error", in, got)
		}
	}
}

func TestCheckList(t *testing.T) {
	got, err := CheckList([]string{"de", "DE", "pt_br", "pt-BR", " ja ", "tl", "fil"})
	if err != nil {
		t.Fatalf("CheckList() error: %v", err)
	}
	// "fil" is dropped: x/text maps the legacy "tl" to it.
	want := []string{"de", "pt_br", "ja", "tl"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CheckList() = %v, want %v", got, want)
	}

	if _, err := CheckList([]string{"de", "x y"}); err == nil {
		t.Fatalf("CheckList() with invalid code: want error")
	}
}

func TestCheckList_KeepsLegacyCodes(t *testing.T) {
	in := []string{"tl", "iw", "in", "ji", "jw", "sh", "mo"}
	got, err := CheckList(in)
	if err != nil {
		t.Fatalf("CheckList() error: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("CheckList() = %v, want %v", got, in)
	}
}

func TestSame(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{a: "en", b: "EN", want: true},
		{a: "pt_br", b: "pt-BR", want: true},
		{a: "iw", b: "he", want: true},
		{a: "de", b: "en", want: false},
		{a: "x y", b: "x y", want: true},
	}
	for _, tc := range cases {
		if got := Same(tc.a, tc.b); got != tc.want {
			t.Fatalf("Same(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("known language", func(t *testing.T) {
		got := Resolve("de")
		if got.Code != "de" || got.Name != "Deutsch" || got.English != "German" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("native script", func(t *testing.T) {
		got := Resolve("ja")
		if got.Name != "日本語" || got.English != "Japanese" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("code kept as given", func(t *testing.T) {
		got := Resolve("pt_br")
		if got.Code != "pt_br" || got.Name == "pt_br" {
			t.Fatalf("unexpected result: %#v", got)
		}
		if got := Resolve("tl"); got.Code != "tl" {
			t.Fatalf("Resolve(tl).Code = %q, want %q", got.Code, "tl")
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("zt")
		if got.Code != "zt" || got.Name != "zt" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
		if got.Label() != "zt" {
			t.Fatalf("Label() = %q, want %q", got.Label(), "zt")
		}
	})

	t.Run("label", func(t *testing.T) {
		if got := Resolve("de").Label(); got != "Deutsch (de)" {
			t.Fatalf("Label() = %q, want %q", got, "Deutsch (de)")
		}
	})
}
