package engine

import (
	"sort"
	"sync"
)

// TransferList is the process-wide set of items queued for transfer
// review, keyed by resource type and deduplicated. Thread-safe.
type TransferList struct {
	mu    sync.Mutex
	items map[string]map[string]struct{}
}

// NewTransferList creates an empty transfer list.
func NewTransferList() *TransferList {
	return &TransferList{items: make(map[string]map[string]struct{})}
}

// Add queues an item. Adding the same item twice is a no-op.
func (t *TransferList) Add(typeName, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.items[typeName]
	if !ok {
		set = make(map[string]struct{})
		t.items[typeName] = set
	}
	set[id] = struct{}{}
}

// Pending returns the queued identifiers per type, sorted for stable
// output.
func (t *TransferList) Pending() map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string][]string, len(t.items))
	for typeName, set := range t.items {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[typeName] = ids
	}
	return out
}

// Clear empties the list, typically after the transfer review completed.
func (t *TransferList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]map[string]struct{})
}
