package engine

import (
	"encoding/json"
)

// Selection maps resource-type names to sets of item identifiers. Types
// and identifiers keep insertion order; identifiers are unique per type.
// A type's entry disappears entirely once its last identifier is removed.
type Selection struct {
	types []string
	ids   map[string][]string
}

// NewSelection returns an empty selection.
func NewSelection() Selection {
	return Selection{ids: make(map[string][]string)}
}

// Add inserts an identifier under a type, ignoring duplicates.
func (s *Selection) Add(typeName, id string) {
	if s.ids == nil {
		s.ids = make(map[string][]string)
	}
	existing, ok := s.ids[typeName]
	if !ok {
		s.types = append(s.types, typeName)
		s.ids[typeName] = []string{id}
		return
	}
	for _, have := range existing {
		if have == id {
			return
		}
	}
	s.ids[typeName] = append(existing, id)
}

// Types returns the type names in insertion order.
func (s Selection) Types() []string {
	out := make([]string, len(s.types))
	copy(out, s.types)
	return out
}

// Has reports whether the type has any identifiers.
func (s Selection) Has(typeName string) bool {
	return len(s.ids[typeName]) > 0
}

// IDs returns the identifiers of a type in insertion order.
func (s Selection) IDs(typeName string) []string {
	ids := s.ids[typeName]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Count returns how many identifiers a type holds.
func (s Selection) Count(typeName string) int {
	return len(s.ids[typeName])
}

// Len returns the total number of identifiers across all types.
func (s Selection) Len() int {
	total := 0
	for _, ids := range s.ids {
		total += len(ids)
	}
	return total
}

// IsEmpty reports whether the selection holds no identifiers.
func (s Selection) IsEmpty() bool {
	return s.Len() == 0
}

// Remove deletes identifiers from a type, dropping the type's entry when it
// becomes empty.
func (s *Selection) Remove(typeName string, ids ...string) {
	existing, ok := s.ids[typeName]
	if !ok {
		return
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := existing[:0]
	for _, id := range existing {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}

	if len(kept) == 0 {
		delete(s.ids, typeName)
		for i, name := range s.types {
			if name == typeName {
				s.types = append(s.types[:i], s.types[i+1:]...)
				break
			}
		}
		return
	}
	s.ids[typeName] = kept
}

// RemoveType drops a whole type from the selection.
func (s *Selection) RemoveType(typeName string) {
	s.Remove(typeName, s.ids[typeName]...)
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := NewSelection()
	for _, typeName := range s.types {
		for _, id := range s.ids[typeName] {
			out.Add(typeName, id)
		}
	}
	return out
}

// PerTypeCounts returns the identifier count of every type.
func (s Selection) PerTypeCounts() map[string]int {
	counts := make(map[string]int, len(s.types))
	for _, typeName := range s.types {
		counts[typeName] = len(s.ids[typeName])
	}
	return counts
}

// selectionEntry is the serialized form of one type's identifiers; a list
// preserves insertion order where a map would not.
type selectionEntry struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

// MarshalJSON implements json.Marshaler.
func (s Selection) MarshalJSON() ([]byte, error) {
	entries := make([]selectionEntry, 0, len(s.types))
	for _, typeName := range s.types {
		entries = append(entries, selectionEntry{Type: typeName, IDs: s.IDs(typeName)})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var entries []selectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*s = NewSelection()
	for _, e := range entries {
		for _, id := range e.IDs {
			s.Add(e.Type, id)
		}
	}
	return nil
}
