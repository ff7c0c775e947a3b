// Package registry keeps named printer targets with persistent IDs
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/thereceipt/label-engine/internal/printer"
)

var (
	// ErrNotFound is returned when no printer has the given name or ID
	ErrNotFound = errors.New("printer not found")

	// ErrNameTaken is returned when a name already points at another target
	ErrNameTaken = errors.New("printer name already in use")

	// ErrNameRequired is returned for a blank printer name
	ErrNameRequired = errors.New("printer name is required")
)

// Entry is a registered printer
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Target      string `json:"target"`
	Description string `json:"description,omitempty"`
}

// Registry maps printer names and IDs to delivery targets. Entries are
// keyed by their normalized target, so registering the same printer twice
// keeps its ID.
type Registry struct {
	filePath string
	data     map[string]*Entry
	mu       sync.RWMutex
}

// New loads the registry at filePath. An empty path keeps it in memory
// and a missing file starts empty.
func New(filePath string) (*Registry, error) {
	r := &Registry{
		filePath: filePath,
		data:     make(map[string]*Entry),
	}

	if err := r.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	return r, nil
}

// Add registers target under name and returns the stored entry. Re-adding
// a known target renames it.
func (r *Registry) Add(name, target, description string) (*Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	parsed, err := printer.ParseTarget(target)
	if err != nil {
		return nil, err
	}
	key := parsed.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if other := r.findLocked(name); other != nil && other.Target != key {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	entry, exists := r.data[key]
	if !exists {
		entry = &Entry{
			ID:     uuid.New().String(),
			Target: key,
		}
		r.data[key] = entry
	}
	entry.Name = name
	if description != "" {
		entry.Description = description
	}

	if err := r.save(); err != nil {
		return nil, fmt.Errorf("failed to save registry: %w", err)
	}

	entryCopy := *entry
	return &entryCopy, nil
}

// Get returns the entry with the given name or ID
func (r *Registry) Get(nameOrID string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.findLocked(nameOrID)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nameOrID)
	}

	entryCopy := *entry
	return &entryCopy, nil
}

// Resolve turns a registered name, an ID or a literal address into a target
func (r *Registry) Resolve(nameOrAddress string) (printer.Target, error) {
	if entry, err := r.Get(nameOrAddress); err == nil {
		return printer.ParseTarget(entry.Target)
	}
	return printer.ParseTarget(nameOrAddress)
}

// Remove deletes the printer with the given name or ID
func (r *Registry) Remove(nameOrID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.findLocked(nameOrID)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, nameOrID)
	}

	delete(r.data, entry.Target)
	if err := r.save(); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}

// All returns every entry ordered by name
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.data))
	for _, e := range r.data {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

func (r *Registry) findLocked(nameOrID string) *Entry {
	for _, entry := range r.data {
		if entry.ID == nameOrID || strings.EqualFold(entry.Name, nameOrID) {
			return entry
		}
	}
	return nil
}

func (r *Registry) load() error {
	if r.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &r.data)
}

func (r *Registry) save() error {
	if r.filePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.filePath, data, 0644)
}
