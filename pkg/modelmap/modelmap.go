// Package modelmap resolves caller-facing model names to upstream model names.
package modelmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/modelrelay/modelrelay/pkg/jsonfile"
)

// Map holds the model-name mapping loaded at startup. It is immutable after
// construction and safe for concurrent use without locking.
type Map struct {
	forward map[string]string
	reverse map[string]string
}

func New(mapping map[string]string) *Map {
	m := &Map{
		forward: make(map[string]string, len(mapping)),
		reverse: make(map[string]string, len(mapping)),
	}
	for k, v := range mapping {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		m.forward[k] = v
		m.reverse[v] = k
	}
	return m
}

func Empty() *Map {
	return New(nil)
}

// Load reads a string-to-string JSON object from path. A missing or
// malformed file is reported as an error so the caller can degrade to an
// empty map; it is never fatal.
func Load(path string) (*Map, error) {
	var mapping map[string]string
	if err := jsonfile.Load(path, &mapping); err != nil {
		return Empty(), fmt.Errorf("load model map: %w", err)
	}
	return New(mapping), nil
}

// Resolve maps a caller-facing name to its upstream name. Names that are
// already upstream names, and names the map has never seen, pass through
// unchanged.
func (m *Map) Resolve(name string) string {
	if m == nil {
		return name
	}
	if upstream, ok := m.forward[name]; ok {
		return upstream
	}
	if _, ok := m.reverse[name]; ok {
		return name
	}
	return name
}

// Keys returns the caller-facing model names in sorted order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.forward))
	for k := range m.forward {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.forward)
}
