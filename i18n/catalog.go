// Package i18n resolves user-facing messages from YAML catalogs.
package i18n

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultMessages []byte

// Catalog is a flat key → message map. It implements tokengate.Localizer.
// Missing keys resolve to the key itself.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]string
}

// New returns a catalog preloaded with the embedded English messages.
func New() (*Catalog, error) {
	c := &Catalog{messages: make(map[string]string)}
	if err := c.Load(defaultMessages); err != nil {
		return nil, err
	}
	return c, nil
}

// Load merges YAML-encoded messages into the catalog, overriding existing keys.
func (c *Catalog) Load(data []byte) error {
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("tokengate/i18n: parse messages: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range m {
		c.messages[k] = v
	}
	return nil
}

// LoadFile merges the messages in path.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tokengate/i18n: %w", err)
	}
	return c.Load(data)
}

// Resolve returns the message for key.
func (c *Catalog) Resolve(_ context.Context, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.messages[key]; ok && v != "" {
		return v
	}
	return key
}

// Len returns the number of messages.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
