// Package prompts provides a loader for externalized LLM prompt templates.
// Each JSON file maps a prompt name to a text/template body and is embedded at
// compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.json
var promptFiles embed.FS

var (
	files     = make(map[string]map[string]string)
	templates = make(map[string]*template.Template)
	cacheMu   sync.RWMutex
)

// Get returns the raw template text for a prompt.
// The filename should not include the path (e.g., "resume.json").
func Get(filename, key string) (string, error) {
	entries, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	text, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return text, nil
}

// Render executes a prompt template with data. Every placeholder the template
// references must be present; a missing one is an error rather than "<no value>".
func Render(filename, key string, data map[string]string) (string, error) {
	tmpl, err := lookup(filename, key)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s/%s: %w", filename, key, err)
	}
	return sb.String(), nil
}

// MustRender is Render for embedded prompts, where any failure is a programming error.
func MustRender(filename, key string, data map[string]string) string {
	out, err := Render(filename, key, data)
	if err != nil {
		panic(err)
	}
	return out
}

// List returns all prompt keys in a file, sorted.
func List(filename string) ([]string, error) {
	entries, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// ClearCache drops parsed files and templates. Used by tests.
func ClearCache() {
	cacheMu.Lock()
	files = make(map[string]map[string]string)
	templates = make(map[string]*template.Template)
	cacheMu.Unlock()
}

func lookup(filename, key string) (*template.Template, error) {
	id := filename + "/" + key

	cacheMu.RLock()
	tmpl, ok := templates[id]
	cacheMu.RUnlock()
	if ok {
		return tmpl, nil
	}

	text, err := Get(filename, key)
	if err != nil {
		return nil, err
	}
	tmpl, err = template.New(id).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt %s: %w", id, err)
	}

	cacheMu.Lock()
	templates[id] = tmpl
	cacheMu.Unlock()
	return tmpl, nil
}

func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	entries, ok := files[filename]
	cacheMu.RUnlock()
	if ok {
		return entries, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	files[filename] = entries
	cacheMu.Unlock()
	return entries, nil
}
