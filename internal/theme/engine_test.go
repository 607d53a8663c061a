package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phFolio/internal/palette"
)

func TestResolveUnknownThemeFallsBackToDefault(t *testing.T) {
	e := NewEngine(nil)

	missing := e.Resolve("nonexistent-theme-id", nil)
	def := e.Resolve(DefaultThemeID, nil)

	assert.Equal(t, def.Vars(), missing.Vars())
	assert.Equal(t, DefaultThemeID, missing.ThemeID)
	assert.NotEmpty(t, missing.Diagnostics)
	assert.Empty(t, def.Diagnostics)
}

func TestResolveIsIdempotent(t *testing.T) {
	e := NewEngine(nil)
	o := &Overrides{
		CustomBaseColor: String("#10B981"),
		Background:      String("#FAFAFA"),
		BodyFont:        String("Georgia"),
	}

	first := e.Resolve("ocean", o)
	second := e.Resolve("ocean", o)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("resolve not idempotent (-first +second):\n%s", diff)
	}
}

func TestResolveOverridesWinTokenByToken(t *testing.T) {
	e := NewEngine(nil)
	base, ok := e.Catalog().Lookup("midnight")
	require.True(t, ok)

	got := e.Resolve("midnight", &Overrides{
		Primary:        String("#FF0000"),
		HeadingFont:    String("Georgia"),
		ShadowsEnabled: Bool(false),
	})

	assert.Equal(t, "#FF0000", got.Tokens.Colors.Primary)
	assert.Equal(t, base.Tokens.Colors.Secondary, got.Tokens.Colors.Secondary)
	assert.Equal(t, base.Tokens.Colors.Background, got.Tokens.Colors.Background)
	assert.Equal(t, "Georgia", got.Tokens.Fonts.Heading)
	assert.Equal(t, base.Tokens.Fonts.Body, got.Tokens.Fonts.Body)
	assert.False(t, got.Tokens.ShadowsEnabled)
	assert.Equal(t, base.Tokens.Animation, got.Tokens.Animation)
}

func TestResolveCustomBaseColorThenOverrides(t *testing.T) {
	e := NewEngine(nil)
	p := palette.Derive("#3B82F6")

	got := e.Resolve("sunset", &Overrides{
		CustomBaseColor: String("#3B82F6"),
		Accent:          String("#123456"),
	})

	require.NotNil(t, got.Palette)
	assert.Equal(t, "#3B82F6", got.Tokens.Colors.Primary)
	assert.Equal(t, p.Secondary, got.Tokens.Colors.Secondary)
	assert.Equal(t, "#123456", got.Tokens.Colors.Accent)

	vars := got.Vars()
	assert.Equal(t, p.Shades[0], vars["color-shade-1"])
	assert.Equal(t, p.Tints[4], vars["color-tint-5"])
}

func TestResolveRejectsInvalidColors(t *testing.T) {
	e := NewEngine(nil)
	def := e.Resolve(DefaultThemeID, nil)

	got := e.Resolve(DefaultThemeID, &Overrides{
		CustomBaseColor: String("not-a-color"),
		Text:            String("#12345"),
		Animation:       func() *Animation { a := Animation("wild"); return &a }(),
	})

	assert.Equal(t, def.Tokens, got.Tokens)
	assert.Nil(t, got.Palette)
	assert.Len(t, got.Diagnostics, 3)
}

func TestApplyLeavesReceiverUntouched(t *testing.T) {
	e := NewEngine(nil)
	doc := e.Resolve(DefaultThemeID, nil)
	before := doc.Tokens

	section := doc.Apply(&Overrides{Background: String("#000000")})

	assert.Equal(t, before, doc.Tokens)
	assert.Equal(t, "#000000", section.Tokens.Colors.Background)
}

func TestCSSIsSortedDeclarationBlock(t *testing.T) {
	got := DeclarationBlock(":root", map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, ":root{--a:1;--b:2;}", got)

	css := NewEngine(nil).Resolve(DefaultThemeID, nil).CSS()
	assert.True(t, strings.HasPrefix(css, ":root{--animation:subtle;"))
	assert.Contains(t, css, "--color-primary:#3B82F6;")
}

func TestFontOverridesAreSanitized(t *testing.T) {
	got := NewEngine(nil).Resolve(DefaultThemeID, &Overrides{HeadingFont: String("Evil;}<script>")})
	assert.Equal(t, "Evilscript", got.Tokens.Fonts.Heading)
}

func TestMergeOverrides(t *testing.T) {
	doc := &Overrides{Primary: String("#111111"), BodyFont: String("Lato")}
	section := &Overrides{Primary: String("#222222")}

	merged := doc.Merge(section)
	assert.Equal(t, "#222222", *merged.Primary)
	assert.Equal(t, "Lato", *merged.BodyFont)
	assert.Equal(t, "#111111", *doc.Primary)

	var none *Overrides
	assert.Nil(t, none.Merge(nil))
	assert.True(t, none.IsZero())
}

func TestNewCatalogRejectsInvalidThemes(t *testing.T) {
	bad := Builtin().Default()
	bad.ID = "broken"
	bad.Tokens.Colors.Heading = "#ZZZ"

	_, err := NewCatalog(DefaultThemeID, Builtin().Default(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heading")

	_, err = NewCatalog("missing", Builtin().Default())
	require.Error(t, err)
}

func TestLoadFileMergesYAMLThemes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "themes.yaml")
	content := `
themes:
  - id: forest
    name: Forest
    tokens:
      colors:
        primary: "#166534"
        secondary: "#4D7C0F"
        accent: "#CA8A04"
        background: "#F7FEE7"
        text: "#1A2E05"
        heading: "#14532D"
      fonts:
        heading: Merriweather
        body: Source Sans Pro
      border_radius: 4px
      shadows_enabled: true
      animation: subtle
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	catalog, err := LoadFile(Builtin(), path)
	require.NoError(t, err)

	forest, ok := catalog.Lookup("forest")
	require.True(t, ok)
	assert.Equal(t, "Merriweather", forest.Tokens.Fonts.Heading)
	assert.Equal(t, "4px", forest.Tokens.BorderRadius)
	assert.Len(t, catalog.Themes(), len(Builtin().Themes())+1)

	require.NoError(t, os.WriteFile(path, []byte("themes:\n  - id: x\n    tokens:\n      animation: none\n"), 0o600))
	_, err = LoadFile(Builtin(), path)
	assert.Error(t, err)
}

func TestLoadFileSanitizesFreeTextTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.yaml")
	content := `
themes:
  - id: hostile
    name: Hostile
    tokens:
      colors:
        primary: "#111111"
        secondary: "#222222"
        accent: "#333333"
        background: "#FFFFFF"
        text: "#000000"
        heading: "#000000"
      fonts:
        heading: "Inter</style><script>alert(1)</script>"
        body: "Lato; color: red"
      border_radius: "4px}body{display:none"
      animation: none
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	catalog, err := LoadFile(Builtin(), path)
	require.NoError(t, err)

	hostile, ok := catalog.Lookup("hostile")
	require.True(t, ok)
	assert.Equal(t, "Inter/stylescriptalert(1)/script", hostile.Tokens.Fonts.Heading)
	assert.Equal(t, "Lato color: red", hostile.Tokens.Fonts.Body)
	assert.Equal(t, "4pxbodydisplay:none", hostile.Tokens.BorderRadius)

	css := NewEngine(catalog).Resolve("hostile", nil).CSS()
	assert.NotContains(t, css, "</style>")
	assert.Equal(t, 1, strings.Count(css, "{"))
	assert.Equal(t, 1, strings.Count(css, "}"))
}

func TestLoadSwitchesDefault(t *testing.T) {
	catalog, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultThemeID, catalog.DefaultID())

	catalog, err = Load("", "midnight")
	require.NoError(t, err)
	assert.Equal(t, "midnight", catalog.DefaultID())
	assert.Equal(t, "midnight", NewEngine(catalog).Resolve("", nil).ThemeID)

	_, err = Load("", "missing")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "none.yaml"), "")
	assert.Error(t, err)
}
