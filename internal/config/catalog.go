package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hegemon/internal/actions"
	"github.com/talgya/hegemon/internal/demands"
	"github.com/talgya/hegemon/internal/organization"
	"github.com/talgya/hegemon/internal/vassal"
)

// ErrUnknownDifficulty is returned for a difficulty with no damping entry.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Catalog is the process-wide policy. It is built once at startup and only
// read afterwards.
//
// In the YAML overlay, map entries (a vassal type, a measure, a demand type)
// replace the default entry whole and the actions list replaces the default
// list.
type Catalog struct {
	Organization organization.Config `yaml:"organization"`
	Difficulty   map[string]float64  `yaml:"difficulty"`
	Demands      demands.Config      `yaml:"demands"`
	Actions      []actions.Action    `yaml:"actions"`
	Vassal       vassal.Config       `yaml:"vassal"`

	strategic *actions.Catalog
}

// DefaultCatalog returns the built-in policy.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Organization: organization.DefaultConfig(),
		Difficulty:   map[string]float64{"easy": 0.75, "normal": 1.0, "hard": 1.25},
		Demands:      demands.DefaultConfig(),
		Actions:      actions.DefaultActions(),
		Vassal:       vassal.DefaultConfig(),
	}
	if err := c.finish(); err != nil {
		panic(fmt.Sprintf("default catalog invalid: %v", err))
	}
	return c
}

// LoadCatalog returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog overlays YAML onto the defaults. Unknown keys and names are
// rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	c := DefaultCatalog()
	c.strategic = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) finish() error {
	if err := c.Demands.Validate(); err != nil {
		return err
	}
	if err := c.Vassal.Validate(); err != nil {
		return err
	}
	if len(c.Difficulty) == 0 {
		return fmt.Errorf("%w: no difficulty levels", ErrUnknownDifficulty)
	}
	for name, d := range c.Difficulty {
		if d <= 0 {
			return fmt.Errorf("difficulty %q: damping must be positive", name)
		}
	}
	strategic, err := actions.NewCatalog(c.Actions)
	if err != nil {
		return err
	}
	c.strategic = strategic
	return nil
}

// Strategic returns the validated action catalog.
func (c *Catalog) Strategic() *actions.Catalog {
	return c.strategic
}

// OrganizationFor returns the growth policy with the damping of difficulty
// applied.
func (c *Catalog) OrganizationFor(difficulty string) (organization.Config, error) {
	d, ok := c.Difficulty[difficulty]
	if !ok {
		return organization.Config{}, fmt.Errorf("%w: %q (have %v)", ErrUnknownDifficulty, difficulty, c.Difficulties())
	}
	cfg := c.Organization
	cfg.Damping = d
	return cfg, nil
}

// Difficulties lists the configured difficulty names.
func (c *Catalog) Difficulties() []string {
	out := make([]string, 0, len(c.Difficulty))
	for name := range c.Difficulty {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
