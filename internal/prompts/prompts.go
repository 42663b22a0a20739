// Package prompts renders the text generation prompts from an embedded catalog.
package prompts

import (
	_ "embed"
	"log/slog"
	"strings"
	"sync"
	"text/template"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"gopkg.in/yaml.v3"
)

// Prompt names.
const (
	Backstory     = "backstory"
	Crime         = "crime"
	Teaser        = "teaser"
	Extraction    = "extraction"
	MemoryCulprit = "memory_culprit"
	MemoryMotive  = "memory_motive"
	MemoryVague   = "memory_vague"
	MotiveJudge   = "motive_judge"
	Interrogation = "interrogation"
)

//go:embed prompts.yaml
var catalogYAML []byte

var ErrUnknownPrompt = errors.NewSentinel("unknown prompt")

// Rendered is a prompt ready to be sent to a text generator.
type Rendered struct {
	System string
	User   string
}

type catalogFile struct {
	World   string `yaml:"world"`
	Prompts map[string]struct {
		System string `yaml:"system"`
		User   string `yaml:"user"`
	} `yaml:"prompts"`
}

type entry struct {
	system *template.Template
	user   *template.Template
}

// Catalog holds parsed prompt templates.
type Catalog struct {
	world   string
	entries map[string]entry
}

// Parse reads a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "unmarshal prompt catalog")
	}
	c := &Catalog{
		world:   strings.TrimSpace(file.World),
		entries: make(map[string]entry, len(file.Prompts)),
	}
	for name, p := range file.Prompts {
		system, err := template.New(name + ".system").Option("missingkey=error").Parse(p.System)
		if err != nil {
			return nil, errors.Wrap(err, "parse system template", slog.String("prompt", name))
		}
		user, err := template.New(name + ".user").Option("missingkey=error").Parse(p.User)
		if err != nil {
			return nil, errors.Wrap(err, "parse user template", slog.String("prompt", name))
		}
		c.entries[name] = entry{system: system, user: user}
	}
	return c, nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) { //nolint:gochecknoglobals // lazily parsed embed
	return Parse(catalogYAML)
})

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// World is the setting every case takes place in.
func (c *Catalog) World() string {
	return c.world
}

// Render executes the named prompt with data.
func (c *Catalog) Render(name string, data any) (Rendered, error) {
	e, ok := c.entries[name]
	if !ok {
		return Rendered{}, errors.Wrap(ErrUnknownPrompt, "render", slog.String("prompt", name))
	}
	var system, user strings.Builder
	if err := e.system.Execute(&system, data); err != nil {
		return Rendered{}, errors.Wrap(err, "execute system template", slog.String("prompt", name))
	}
	if err := e.user.Execute(&user, data); err != nil {
		return Rendered{}, errors.Wrap(err, "execute user template", slog.String("prompt", name))
	}
	return Rendered{
		System: strings.TrimSpace(system.String()),
		User:   strings.TrimSpace(user.String()),
	}, nil
}
