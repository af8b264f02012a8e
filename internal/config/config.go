// Package config loads default flag values from a YAML file.
//
// Keys are flag names; "col-sep" and "col_sep" are equivalent. Flags of a
// subcommand may also be nested under the command name:
//
//	log-level: debug
//	table:
//	  col-sep: ","
//	  exclude-markers: [bcv, notes]
//
// Lists are joined with commas, matching kong's default separator.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// DefaultPaths are searched in order; missing files are skipped.
var DefaultPaths = []string{
	"~/.config/usfm-grammar/config.yaml",
	"./usfm-grammar.yaml",
}

// YAML is a kong.ConfigurationLoader for YAML files.
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid YAML config: %w", err)
	}
	values = normalizeKeys(values)

	var f kong.ResolverFunc = func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		name := normalizeKey(flag.Name)

		if parent != nil && parent.Command != nil {
			if section, ok := values[normalizeKey(parent.Command.Name)].(map[string]any); ok {
				if raw, ok := section[name]; ok {
					return flagValue(flag.Name, raw)
				}
			}
		}
		raw, ok := values[name]
		if !ok {
			return nil, nil
		}
		if _, isSection := raw.(map[string]any); isSection {
			return nil, nil
		}
		return flagValue(flag.Name, raw)
	}
	return f, nil
}

func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(k), "_", "-")
}

func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			v = normalizeKeys(sub)
		}
		out[normalizeKey(k)] = v
	}
	return out
}

// flagValue renders a YAML value as the string kong would read from the
// command line.
func flagValue(name string, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if _, ok := item.(map[string]any); ok {
				return nil, fmt.Errorf("config key %q: list items must be scalars", name)
			}
			if _, ok := item.([]any); ok {
				return nil, fmt.Errorf("config key %q: list items must be scalars", name)
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ","), nil
	case map[string]any:
		return nil, fmt.Errorf("config key %q: expected a value, found a mapping", name)
	default:
		return fmt.Sprint(v), nil
	}
}
