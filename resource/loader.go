// Package resource locates scenario scripts, indexes presentation assets by
// category and key, and holds the character registry.
package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kasuganosora/scenarioplayer/config"
	"gopkg.in/yaml.v3"
)

// ErrScriptNotFound is returned by ReadScript for an unknown script name.
var ErrScriptNotFound = errors.New("resource: script not found")

// Category is an asset folder under the asset root.
type Category string

const (
	CategoryBackground Category = "bg"
	CategoryCharacter  Category = "chara"
	CategoryBgm        Category = "bgm"
	CategorySe         Category = "se"
)

// Categories lists every indexed category.
var Categories = []Category{CategoryBackground, CategoryCharacter, CategoryBgm, CategorySe}

// Character is one entry of the character registry.
type Character struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`   // display name
	Color string `yaml:"color" json:"color"` // name label color, e.g. "#7FB2FF"
	// Expressions lists the accepted values per slot (eye, mouth, brow,
	// cheek). A slot missing from the map accepts anything.
	Expressions map[string][]string `yaml:"expressions" json:"expressions,omitempty"`
}

// HasExpression reports whether value is valid for slot.
func (c *Character) HasExpression(slot, value string) bool {
	allowed, ok := c.Expressions[slot]
	if !ok {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

type characterFile struct {
	Characters []*Character `yaml:"characters"`
}

// Loader serves scripts, assets and characters from disk.
type Loader struct {
	Root          string
	ScriptDir     string
	CharacterFile string
	ScriptExt     string

	mu         sync.RWMutex
	assets     map[Category]map[string]string // nil = not indexed, everything exists
	characters map[string]*Character
}

// NewLoader creates a Loader for the configured directories.
func NewLoader(cfg config.AssetsConfig) *Loader {
	ext := cfg.ScriptExt
	if ext == "" {
		ext = ".txt"
	}
	return &Loader{
		Root:          cfg.Root,
		ScriptDir:     cfg.ScriptDir,
		CharacterFile: cfg.CharacterFile,
		ScriptExt:     ext,
		characters:    make(map[string]*Character),
	}
}

// Load indexes the asset folders and reads the character registry. A missing
// asset root or character file is not an error.
func (l *Loader) Load() error {
	loaders := []func() error{
		l.loadAssets,
		l.loadCharacters,
	}
	for _, fn := range loaders {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadAssets() error {
	if l.Root == "" {
		return nil
	}
	if _, err := os.Stat(l.Root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	index := make(map[Category]map[string]string, len(Categories))
	for _, cat := range Categories {
		index[cat] = make(map[string]string)
		dir := filepath.Join(l.Root, string(cat))
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
			index[cat][key] = path
			return nil
		})
		if err != nil {
			return fmt.Errorf("resource: index %s: %w", dir, err)
		}
	}
	l.mu.Lock()
	l.assets = index
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadCharacters() error {
	if l.CharacterFile == "" {
		return nil
	}
	data, err := os.ReadFile(l.CharacterFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resource: read %s: %w", l.CharacterFile, err)
	}
	return l.LoadCharacters(data)
}

// LoadCharacters replaces the registry with the YAML document in data.
func (l *Loader) LoadCharacters(data []byte) error {
	var f characterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("resource: parse characters: %w", err)
	}
	chars := make(map[string]*Character, len(f.Characters))
	for _, c := range f.Characters {
		if c == nil || c.ID == "" {
			continue
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		chars[c.ID] = c
	}
	l.mu.Lock()
	l.characters = chars
	l.mu.Unlock()
	return nil
}

// Register adds an asset to the index, switching the loader to strict
// existence checks. Used for embedded or generated assets.
func (l *Loader) Register(cat Category, key, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.assets == nil {
		l.assets = make(map[Category]map[string]string)
	}
	if l.assets[cat] == nil {
		l.assets[cat] = make(map[string]string)
	}
	l.assets[cat][key] = path
}

// Exists reports whether an asset is available. Without an index every
// asset is assumed to exist.
func (l *Loader) Exists(cat Category, key string) bool {
	_, ok := l.Path(cat, key)
	return ok
}

// Path returns the file backing an asset.
func (l *Loader) Path(cat Category, key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.assets == nil {
		return filepath.Join(l.Root, string(cat), key), true
	}
	p, ok := l.assets[cat][key]
	return p, ok
}

// Character returns a registry entry.
func (l *Loader) Character(id string) (*Character, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.characters[id]
	return c, ok
}

// DisplayName resolves a speaker id. Unknown ids display verbatim.
func (l *Loader) DisplayName(id string) string {
	if c, ok := l.Character(id); ok {
		return c.Name
	}
	return id
}

// Characters returns all registry entries sorted by id.
func (l *Loader) Characters() []*Character {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Character, 0, len(l.characters))
	for _, c := range l.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ScriptNames lists scripts under ScriptDir without extension, sorted.
func (l *Loader) ScriptNames() ([]string, error) {
	var names []string
	err := filepath.WalkDir(l.ScriptDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != l.ScriptExt {
			return nil
		}
		rel, err := filepath.Rel(l.ScriptDir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, l.ScriptExt)))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resource: list scripts: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// ReadScript returns the text of a named script. Names are relative to
// ScriptDir and may not escape it.
func (l *Loader) ReadScript(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrScriptNotFound, name)
	}
	data, err := os.ReadFile(filepath.Join(l.ScriptDir, clean+l.ScriptExt))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %q", ErrScriptNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("resource: read script %s: %w", name, err)
	}
	return string(data), nil
}
