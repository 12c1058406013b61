// Package content holds the creative assets of a reel: per-theme narrative
// guidance, image prompt banks, fallback scripts and the script prompt.
// The embedded copy is the default; an override directory with the same
// layout (themes.yaml, prompts/*.tmpl) replaces it without a rebuild.
package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"eco-reel-pipeline/types"
)

//go:embed themes.yaml prompts/*.tmpl
var embedded embed.FS

// PromptBankSize is the number of image prompts each theme must carry.
const PromptBankSize = 5

// ScriptPrompt is the template name of the narration prompt.
const ScriptPrompt = "script.tmpl"

type Guidance struct {
	Opening      string `yaml:"opening"`
	Impact       string `yaml:"impact"`
	CallToAction string `yaml:"call_to_action"`
	Example      string `yaml:"example"`
}

// ThemeContent is everything a theme contributes to prompts and fallbacks.
type ThemeContent struct {
	Label          string   `yaml:"label"`
	VisualStyle    string   `yaml:"visual_style"`
	Context        string   `yaml:"context"`
	Guidance       Guidance `yaml:"guidance"`
	Prompts        []string `yaml:"prompts"`
	FallbackPrompt string   `yaml:"fallback_prompt"`
	FallbackScript string   `yaml:"fallback_script"`
}

type catalogFile struct {
	PromptSuffix string                  `yaml:"prompt_suffix"`
	Themes       map[string]ThemeContent `yaml:"themes"`
}

// Catalog is the loaded, validated content set.
type Catalog struct {
	PromptSuffix string
	themes       map[types.Theme]ThemeContent
	root         *template.Template
}

// ContextData feeds the per-theme context template.
type ContextData struct {
	Temp             string
	Humidity         string
	Description      string
	DescriptionTitle string
}

// LocationData feeds the fallback script and guidance example templates.
type LocationData struct {
	Location string
}

// Load reads the catalog from dir, or the embedded copy when dir is empty.
func Load(dir string) (*Catalog, error) {
	if dir == "" {
		return Embedded()
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	return LoadFS(os.DirFS(dir))
}

// Embedded returns the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return LoadFS(embedded)
}

// LoadFS reads themes.yaml and prompts/*.tmpl from fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, "themes.yaml")
	if err != nil {
		return nil, fmt.Errorf("read themes.yaml: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse themes.yaml: %w", err)
	}

	c := &Catalog{
		PromptSuffix: strings.TrimSpace(file.PromptSuffix),
		themes:       make(map[types.Theme]ThemeContent, len(file.Themes)),
		root:         template.New("root").Option("missingkey=error"),
	}

	for key, tc := range file.Themes {
		theme, ok := types.ParseTheme(key)
		if !ok {
			return nil, fmt.Errorf("themes.yaml: unknown theme %q", key)
		}
		c.themes[theme] = tc
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := c.parseThemeTemplates(); err != nil {
		return nil, err
	}
	if err := c.parsePrompts(fsys); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	var errs []error
	for _, t := range types.AllThemes() {
		tc, ok := c.themes[t]
		if !ok {
			errs = append(errs, fmt.Errorf("theme %s: missing", t))
			continue
		}
		if len(tc.Prompts) != PromptBankSize {
			errs = append(errs, fmt.Errorf("theme %s: want %d prompts, got %d", t, PromptBankSize, len(tc.Prompts)))
		}
		for field, v := range map[string]string{
			"label":           tc.Label,
			"visual_style":    tc.VisualStyle,
			"context":         tc.Context,
			"fallback_prompt": tc.FallbackPrompt,
			"fallback_script": tc.FallbackScript,
			"guidance":        tc.Guidance.Opening,
		} {
			if strings.TrimSpace(v) == "" {
				errs = append(errs, fmt.Errorf("theme %s: %s is empty", t, field))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) parseThemeTemplates() error {
	for t, tc := range c.themes {
		for kind, text := range map[string]string{
			"context":  tc.Context,
			"fallback": tc.FallbackScript,
			"example":  tc.Guidance.Example,
		} {
			if _, err := c.root.New(kind + "/" + string(t)).Parse(text); err != nil {
				return fmt.Errorf("theme %s %s template: %w", t, kind, err)
			}
		}
	}
	return nil
}

func (c *Catalog) parsePrompts(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "prompts/*.tmpl")
	if err != nil {
		return err
	}
	for _, name := range files {
		text, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		if _, err := c.root.New(path.Base(name)).Parse(string(text)); err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
	}
	if c.root.Lookup(ScriptPrompt) == nil {
		return fmt.Errorf("prompts/%s: missing", ScriptPrompt)
	}
	return nil
}

// Theme returns the content for t. Load guarantees every theme is present.
func (c *Catalog) Theme(t types.Theme) ThemeContent {
	return c.themes[t]
}

// Render executes the named template.
func (c *Catalog) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Context renders the theme's context sentence.
func (c *Catalog) Context(t types.Theme, data ContextData) (string, error) {
	return c.Render("context/"+string(t), data)
}

// FallbackScript renders the theme's deterministic script for location.
func (c *Catalog) FallbackScript(t types.Theme, location string) (string, error) {
	return c.Render("fallback/"+string(t), LocationData{Location: location})
}

// Example renders the theme's example opening line for location.
func (c *Catalog) Example(t types.Theme, location string) (string, error) {
	return c.Render("example/"+string(t), LocationData{Location: location})
}
