package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// RegistryFile is the name of the relayctl controller registry.
const RegistryFile = "controllers.yaml"

// Registry stores what relayctl remembers about controllers it has seen.
// Passwords are never stored.
type Registry struct {
	Version     int                    `yaml:"version"`
	Controllers map[string]*Controller `yaml:"controllers,omitempty"` // keyed by device ID
	Preferences *Preferences           `yaml:"preferences,omitempty"`

	path string
}

// Controller is the user metadata for one controller.
type Controller struct {
	Nickname string         `yaml:"nickname,omitempty"`
	LastAddr string         `yaml:"last_addr,omitempty"` // host:port
	LastSeen time.Time      `yaml:"last_seen,omitempty"`
	Channels map[int]string `yaml:"channels,omitempty"` // channel number to label
}

type Preferences struct {
	DiscoverTimeout int    `yaml:"discover_timeout"` // seconds
	Username        string `yaml:"username,omitempty"`
}

// NewRegistry returns an empty registry that saves to path.
func NewRegistry(path string) *Registry {
	return &Registry{
		Version:     1,
		Controllers: make(map[string]*Controller),
		Preferences: &Preferences{DiscoverTimeout: 5, Username: "admin"},
		path:        path,
	}
}

// LoadRegistry reads the registry at path. A missing file yields an empty
// registry bound to path.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewRegistry(path), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	r := NewRegistry(path)
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	if r.Version != 1 {
		return nil, fmt.Errorf("unsupported registry version: %d (expected 1)", r.Version)
	}
	if r.Controllers == nil {
		r.Controllers = make(map[string]*Controller)
	}
	if r.Preferences == nil {
		r.Preferences = &Preferences{DiscoverTimeout: 5, Username: "admin"}
	}
	return r, nil
}

// Save writes the registry back to the path it was loaded from.
func (r *Registry) Save() error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	header := []byte("# relayctl controller registry\n# Passwords are never stored in this file.\n\n")
	return writeAtomic(r.path, append(header, data...))
}

// Path is where Save writes.
func (r *Registry) Path() string { return r.path }

// Ensure returns the entry for id, creating it when missing.
func (r *Registry) Ensure(id string) *Controller {
	if c, ok := r.Controllers[id]; ok {
		return c
	}
	c := &Controller{Channels: make(map[int]string)}
	r.Controllers[id] = c
	return c
}

// Seen records that id answered at addr.
func (r *Registry) Seen(id, addr string, at time.Time) {
	c := r.Ensure(id)
	c.LastAddr = addr
	c.LastSeen = at
}

// SetChannelLabel labels one relay channel of id. An empty label removes it.
func (r *Registry) SetChannelLabel(id string, channel int, label string) {
	c := r.Ensure(id)
	if c.Channels == nil {
		c.Channels = make(map[int]string)
	}
	if label == "" {
		delete(c.Channels, channel)
		return
	}
	c.Channels[channel] = label
}

// ChannelLabel returns the label of a channel, or "channel N".
func (r *Registry) ChannelLabel(id string, channel int) string {
	if c, ok := r.Controllers[id]; ok {
		if label := c.Channels[channel]; label != "" {
			return label
		}
	}
	return fmt.Sprintf("channel %d", channel)
}

// Resolve finds a controller by ID or nickname.
func (r *Registry) Resolve(name string) (string, *Controller, bool) {
	if c, ok := r.Controllers[name]; ok {
		return name, c, true
	}
	for _, id := range r.IDs() {
		if c := r.Controllers[id]; c.Nickname == name {
			return id, c, true
		}
	}
	return "", nil, false
}

// IDs returns the known controller IDs in order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.Controllers))
	for id := range r.Controllers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
