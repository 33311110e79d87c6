// Package yamlprompts implements spec.TextResolver over a YAML message
// catalog. Keys are dotted paths into the YAML document
// ("actionResponses.cancellationSuccessful"); values are Go
// text/template strings executed against the caller's data.
package yamlprompts

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

type Resolver struct {
	templates map[string]*template.Template
	raw       map[string]string
}

// Load reads a YAML catalog from disk.
func Load(path string) (*Resolver, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message catalog %s: %w", path, err)
	}
	return Parse(b)
}

// Parse builds a resolver from YAML bytes. Nested mappings flatten into
// dotted keys; every leaf must be a scalar.
func Parse(b []byte) (*Resolver, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("invalid message catalog YAML: %w", err)
	}

	flat := map[string]string{}
	if err := flatten("", doc, flat); err != nil {
		return nil, err
	}

	r := &Resolver{
		templates: make(map[string]*template.Template, len(flat)),
		raw:       flat,
	}
	for key, text := range flat {
		tpl, err := template.New(key).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("message %q: %w", key, err)
		}
		r.templates[key] = tpl
	}
	return r, nil
}

// ResolveText renders the message for key with data. Unknown keys resolve
// to the key itself; a render failure falls back to the raw template
// text. Text resolution never fails the conversation.
func (r *Resolver) ResolveText(key string, data any) string {
	tpl, ok := r.templates[key]
	if !ok {
		return key
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return r.raw[key]
	}
	return sb.String()
}

func flatten(prefix string, v any, out map[string]string) error {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flatten(key, child, out); err != nil {
				return err
			}
		}
		return nil
	case string:
		out[prefix] = t
		return nil
	case nil:
		out[prefix] = ""
		return nil
	default:
		return fmt.Errorf("message %q: value must be a string, got %T", prefix, v)
	}
}
