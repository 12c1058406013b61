package content

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco-reel-pipeline/types"
)

func TestEmbedded_CoversEveryTheme(t *testing.T) {
	c, err := Embedded()
	require.NoError(t, err)

	for _, theme := range types.AllThemes() {
		t.Run(string(theme), func(t *testing.T) {
			tc := c.Theme(theme)
			assert.Len(t, tc.Prompts, PromptBankSize)
			assert.NotEmpty(t, tc.Label)

			script, err := c.FallbackScript(theme, "Pune")
			require.NoError(t, err)
			assert.Contains(t, script, "Pune")
			words := len(strings.Fields(script))
			assert.GreaterOrEqual(t, words, 20)
			assert.LessOrEqual(t, words, 60)

			ctx, err := c.Context(theme, ContextData{Temp: "31.0", Humidity: "60", Description: "clear sky", DescriptionTitle: "Clear sky"})
			require.NoError(t, err)
			assert.NotEmpty(t, ctx)
		})
	}
}

func TestContext_Interpolates(t *testing.T) {
	c, err := Embedded()
	require.NoError(t, err)

	got, err := c.Context(types.ThemeHeat, ContextData{Temp: "38.5", Description: "haze"})
	require.NoError(t, err)
	assert.Equal(t, "Current temperature is 38.5°C with haze conditions. Heat stress and energy consumption are key concerns.", got)
}

func TestLoadFS_MissingTheme(t *testing.T) {
	fsys := fstest.MapFS{
		"themes.yaml": {Data: []byte(`
themes:
  heat:
    label: Heat
    visual_style: warm
    context: hot
    guidance: {opening: o}
    prompts: [a, b, c, d, e]
    fallback_prompt: f
    fallback_script: "In {{.Location}}"
`)},
		"prompts/script.tmpl": {Data: []byte("x")},
	}

	_, err := LoadFS(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theme water: missing")
}

func TestLoadFS_UnknownTheme(t *testing.T) {
	fsys := fstest.MapFS{
		"themes.yaml":         {Data: []byte("themes:\n  lava: {label: Lava}\n")},
		"prompts/script.tmpl": {Data: []byte("x")},
	}

	_, err := LoadFS(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown theme "lava"`)
}
