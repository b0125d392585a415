// Package scripts is the canned snippet catalog.
//
// Scripts are opaque payloads to the bridge: the catalog only names them,
// the peer executes them. A user catalog file can add to or shadow the
// built-in set; the bridge core never interprets the code.
package scripts

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// Script is one named snippet
type Script struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Code        string `yaml:"code"`
}

type catalogFile struct {
	Scripts []Script `yaml:"scripts"`
}

// Catalog holds the resolved script set
type Catalog struct {
	scripts map[string]Script
}

// Builtin loads the embedded catalog
func Builtin() (*Catalog, error) {
	c := &Catalog{scripts: make(map[string]Script)}
	if err := c.merge(builtinCatalog); err != nil {
		return nil, fmt.Errorf("builtin catalog: %w", err)
	}
	return c, nil
}

// Load returns the builtin catalog with the user file merged over it.
// A missing user file is not an error; a malformed one is.
func Load(path string) (*Catalog, error) {
	c, err := Builtin()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("user catalog %s: %w", path, err)
	}
	if err := c.merge(data); err != nil {
		return nil, fmt.Errorf("user catalog %s: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) merge(data []byte) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	for _, s := range file.Scripts {
		if s.Name == "" || s.Code == "" {
			return fmt.Errorf("script entries need both name and code")
		}
		c.scripts[s.Name] = s
	}
	return nil
}

// Get looks up a script by name
func (c *Catalog) Get(name string) (Script, bool) {
	s, ok := c.scripts[name]
	return s, ok
}

// List returns all scripts sorted by name
func (c *Catalog) List() []Script {
	out := make([]Script, 0, len(c.scripts))
	for _, s := range c.scripts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
