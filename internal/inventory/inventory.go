// Package inventory provides a file-backed implementation of the resource
// interfaces: resource types, their items, organizational units and
// financial side records are declared in a YAML document, mutated in
// memory by batch actions and written back on save. The CLI runs batches
// against it; tests use it as a realistic collaborator.
package inventory

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rshade/massbatch/internal/resource"
)

// document is the YAML root.
type document struct {
	Entities  []entitySpec   `yaml:"entities"`
	Financial *financialSpec `yaml:"financial"`
	Types     []*typeSpec    `yaml:"types"`
}

type entitySpec struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
}

type financialSpec struct {
	CanUpdate bool              `yaml:"can_update"`
	Covers    []string          `yaml:"covers"`
	Denied    []string          `yaml:"denied"` // "type/id" pairs refused authorization
	Records   []financialRecord `yaml:"records"`
}

type financialRecord struct {
	Type   string            `yaml:"type"`
	ItemID string            `yaml:"item_id"`
	Fields map[string]string `yaml:"fields"`
}

type typeSpec struct {
	Name                  string              `yaml:"name"`
	LabelText             string              `yaml:"label"`
	MaybeDeletedFlag      bool                `yaml:"maybe_deleted"`
	UseDeletedToLockFlag  bool                `yaml:"use_deleted_to_lock"`
	DetachableComponents  bool                `yaml:"detachable_components"`
	CanUpdateFlag         bool                `yaml:"can_update"`
	CanDeleteFlag         bool                `yaml:"can_delete"`
	CanPurgeFlag          bool                `yaml:"can_purge"`
	AttachDocuments       bool                `yaml:"attach_documents"`
	AttachContracts       bool                `yaml:"attach_contracts"`
	ParentAwareFlag       bool                `yaml:"parent_aware"`
	UnlockableFlag        bool                `yaml:"unlockable"`
	Forbidden             []string            `yaml:"forbidden_actions"`
	FieldSpecs            []resource.Field    `yaml:"fields"`
	ExtraActions          map[string]string   `yaml:"specific_actions"`
	LegacyActions         []string            `yaml:"legacy_actions"`
	InvalidValues         map[string][]string `yaml:"invalid_values"`
	DetachedComponentsLog []string            `yaml:"detached_components"`
	Items                 []*itemSpec         `yaml:"items"`
}

type itemSpec struct {
	ID              string            `yaml:"id"`
	Entity          string            `yaml:"entity"`
	EntityRecursive bool              `yaml:"entity_recursive"`
	Deleted         bool              `yaml:"deleted"`
	Dynamic         bool              `yaml:"dynamic"`
	Locked          bool              `yaml:"locked"`
	Parent          string            `yaml:"parent"`
	Denied          []string          `yaml:"denied"` // permission names denied on this item
	Fields          map[string]string `yaml:"fields"`
	Components      []string          `yaml:"components"`
	Documents       []string          `yaml:"documents"`
	Contracts       []string          `yaml:"contracts"`
}

// Store holds a loaded inventory. It implements resource.Resolver; its
// Financials and EntityTree accessors cover the remaining collaborator
// interfaces. Thread-safe.
type Store struct {
	path string

	mu  sync.Mutex
	doc document
}

// Load reads an inventory document from path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	return Parse(data, path)
}

// Parse builds a store from raw YAML. path may be empty for an in-memory
// store that cannot be saved.
func Parse(data []byte, path string) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}
	return &Store{path: path, doc: doc}, nil
}

// Save writes the current state back to the file the store was loaded
// from.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return fmt.Errorf("inventory has no backing file")
	}
	data, err := yaml.Marshal(&s.doc)
	if err != nil {
		return fmt.Errorf("marshaling inventory: %w", err)
	}
	if writeErr := os.WriteFile(s.path, data, 0600); writeErr != nil {
		return fmt.Errorf("writing inventory: %w", writeErr)
	}
	return nil
}

// Resolve implements resource.Resolver.
func (s *Store) Resolve(typeName string) (resource.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spec := range s.doc.Types {
		if spec.Name == typeName {
			return &typeHandle{store: s, spec: spec}, true
		}
	}
	return nil, false
}

// TypeNames returns the declared type names in document order.
func (s *Store) TypeNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.doc.Types))
	for _, spec := range s.doc.Types {
		names = append(names, spec.Name)
	}
	return names
}

// Financials returns the financial side-record store, or nil when the
// document declares none.
func (s *Store) Financials() resource.Financials {
	if s.doc.Financial == nil {
		return nil
	}
	return &financials{store: s}
}

// EntityTree returns the organizational-unit hierarchy declared by the
// document.
func (s *Store) EntityTree() resource.EntityTree {
	return &entityTree{store: s}
}

func (s *Store) findItem(spec *typeSpec, id string) *itemSpec {
	for _, item := range spec.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (s *Store) removeItem(spec *typeSpec, id string) {
	for i, item := range spec.Items {
		if item.ID == id {
			spec.Items = append(spec.Items[:i], spec.Items[i+1:]...)
			return
		}
	}
}

// entityTree implements resource.EntityTree over the declared units.
type entityTree struct {
	store *Store
}

// SonsOf returns the unit and every unit below it.
func (t *entityTree) SonsOf(entity string) []string {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	sons := []string{entity}
	// Breadth-first over parent pointers; the hierarchy is small.
	frontier := []string{entity}
	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, spec := range t.store.doc.Entities {
			for _, parent := range frontier {
				if spec.Parent == parent && spec.Name != parent {
					sons = append(sons, spec.Name)
					next = append(next, spec.Name)
				}
			}
		}
		frontier = next
	}
	return sons
}

// financials implements resource.Financials over the document's side
// records.
type financials struct {
	store *Store
}

func (f *financials) spec() *financialSpec { return f.store.doc.Financial }

// CanUpdate implements resource.Financials.
func (f *financials) CanUpdate() bool {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.spec().CanUpdate
}

// Covers implements resource.Financials.
func (f *financials) Covers(typeName string) bool {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	for _, covered := range f.spec().Covers {
		if covered == typeName {
			return true
		}
	}
	return false
}

// Authorize implements resource.Financials.
func (f *financials) Authorize(typeName, id string) bool {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	if !f.spec().CanUpdate {
		return false
	}
	key := typeName + "/" + id
	for _, denied := range f.spec().Denied {
		if denied == key {
			return false
		}
	}
	return true
}

// Apply implements resource.Financials.
func (f *financials) Apply(typeName, id, field, value string) bool {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	record := f.locate(typeName, id)
	if record == nil {
		record = f.create(typeName, id)
	}
	if record.Fields == nil {
		record.Fields = make(map[string]string)
	}
	record.Fields[field] = value
	return true
}

// Enable implements resource.Financials.
func (f *financials) Enable(typeName, id string) bool {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	if f.locate(typeName, id) == nil {
		f.create(typeName, id)
	}
	return true
}

func (f *financials) locate(typeName, id string) *financialRecord {
	for i := range f.spec().Records {
		record := &f.spec().Records[i]
		if record.Type == typeName && record.ItemID == id {
			return record
		}
	}
	return nil
}

func (f *financials) create(typeName, id string) *financialRecord {
	f.spec().Records = append(f.spec().Records, financialRecord{
		Type:   typeName,
		ItemID: id,
		Fields: make(map[string]string),
	})
	return &f.spec().Records[len(f.spec().Records)-1]
}
