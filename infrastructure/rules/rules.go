// Package rules loads unification rule sets from YAML.
//
// Each file describes one provider:
//
//	provider: hubspot
//	entities:
//	  crm.note:
//	    remote_id: id
//	    fields:
//	      - field: content
//	        path: properties.hs_note_body
//	        required: true
//
// The files under builtin/ are compiled in. A directory given to Load is
// read afterwards and its rule sets replace builtin ones for the same
// (provider, entity type).
package rules

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/unification"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// ErrParse wraps YAML and validation failures with the offending file.
var ErrParse = errors.New("parse rule file")

type fileDoc struct {
	Provider string                `yaml:"provider"`
	Entities map[string]entityDoc `yaml:"entities"`
}

type entityDoc struct {
	RemoteID string     `yaml:"remote_id"`
	Fields   []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Field    string            `yaml:"field"`
	Path     string            `yaml:"path"`
	Kind     string            `yaml:"kind"`
	Layout   string            `yaml:"layout"`
	Required bool              `yaml:"required"`
	Values   map[string]string `yaml:"values"`
	ReadOnly bool              `yaml:"readonly"`
}

// Builtin returns the compiled-in rule sets.
func Builtin() ([]unification.RuleSet, error) {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}
	return loadFS(sub)
}

// Load returns the builtin rule sets overlaid with those in dir. An empty
// dir returns the builtin sets.
func Load(dir string) ([]unification.RuleSet, error) {
	sets, err := Builtin()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return sets, nil
	}
	overrides, err := loadFS(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	return merge(sets, overrides), nil
}

// LoadEngine builds a unification engine from Load(dir).
func LoadEngine(dir string) (*unification.Engine, error) {
	sets, err := Load(dir)
	if err != nil {
		return nil, err
	}
	return unification.NewEngine(sets...)
}

// Parse decodes one rule file.
func Parse(name string, data []byte) ([]unification.RuleSet, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, name, err)
	}
	if doc.Provider == "" {
		return nil, fmt.Errorf("%w %s: provider is required", ErrParse, name)
	}

	keys := make([]string, 0, len(doc.Entities))
	for k := range doc.Entities {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	sets := make([]unification.RuleSet, 0, len(keys))
	for _, k := range keys {
		t, err := entity.ParseType(k)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrParse, name, err)
		}
		ed := doc.Entities[k]
		rs := unification.RuleSet{
			Provider:     doc.Provider,
			EntityType:   t,
			RemoteIDPath: ed.RemoteID,
			Fields:       make([]unification.FieldRule, 0, len(ed.Fields)),
		}
		for _, f := range ed.Fields {
			rs.Fields = append(rs.Fields, unification.FieldRule{
				Field:    f.Field,
				Path:     f.Path,
				Kind:     unification.Kind(strings.ToLower(f.Kind)),
				Layout:   f.Layout,
				Required: f.Required,
				Values:   f.Values,
				ReadOnly: f.ReadOnly,
			})
		}
		if err := rs.Validate(); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrParse, name, err)
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

func loadFS(fsys fs.FS) ([]unification.RuleSet, error) {
	var sets []unification.RuleSet
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".yaml", ".yml":
		default:
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		parsed, err := Parse(p, data)
		if err != nil {
			return err
		}
		sets = merge(sets, parsed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sets, nil
}

// merge appends overrides to base, replacing entries with the same key in
// place.
func merge(base, overrides []unification.RuleSet) []unification.RuleSet {
	out := slices.Clone(base)
	for _, o := range overrides {
		i := slices.IndexFunc(out, func(rs unification.RuleSet) bool {
			return rs.Provider == o.Provider && rs.EntityType == o.EntityType
		})
		if i >= 0 {
			out[i] = o
			continue
		}
		out = append(out, o)
	}
	return out
}
