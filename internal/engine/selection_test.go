package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionAdd(t *testing.T) {
	s := NewSelection()
	s.Add("device", "2")
	s.Add("device", "1")
	s.Add("printer", "7")
	s.Add("device", "2") // duplicate ignored

	assert.Equal(t, []string{"device", "printer"}, s.Types())
	assert.Equal(t, []string{"2", "1"}, s.IDs("device"))
	assert.Equal(t, 2, s.Count("device"))
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("device"))
	assert.False(t, s.Has("monitor"))
	assert.False(t, s.IsEmpty())
}

func TestSelectionRemove(t *testing.T) {
	t.Run("partial removal keeps the type", func(t *testing.T) {
		s := NewSelection()
		s.Add("device", "1")
		s.Add("device", "2")

		s.Remove("device", "1")
		assert.Equal(t, []string{"2"}, s.IDs("device"))
		assert.Equal(t, []string{"device"}, s.Types())
	})

	t.Run("emptied type disappears", func(t *testing.T) {
		s := NewSelection()
		s.Add("device", "1")
		s.Add("printer", "7")

		s.Remove("device", "1")
		assert.Equal(t, []string{"printer"}, s.Types())
		assert.False(t, s.Has("device"))
	})

	t.Run("remove whole type", func(t *testing.T) {
		s := NewSelection()
		s.Add("device", "1")
		s.Add("device", "2")

		s.RemoveType("device")
		assert.True(t, s.IsEmpty())
	})

	t.Run("removing from an absent type is a no-op", func(t *testing.T) {
		s := NewSelection()
		s.Remove("device", "1")
		assert.True(t, s.IsEmpty())
	})
}

func TestSelectionClone(t *testing.T) {
	s := NewSelection()
	s.Add("device", "1")

	clone := s.Clone()
	clone.Add("device", "2")
	clone.Add("printer", "7")

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 3, clone.Len())
}

func TestSelectionPerTypeCounts(t *testing.T) {
	s := NewSelection()
	s.Add("device", "1")
	s.Add("device", "2")
	s.Add("printer", "7")

	assert.Equal(t, map[string]int{"device": 2, "printer": 1}, s.PerTypeCounts())
}

func TestSelectionJSON(t *testing.T) {
	s := NewSelection()
	s.Add("device", "2")
	s.Add("device", "1")
	s.Add("printer", "7")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var restored Selection
	require.NoError(t, json.Unmarshal(data, &restored))

	// Order survives the round trip; maps would not guarantee that.
	assert.Equal(t, []string{"device", "printer"}, restored.Types())
	assert.Equal(t, []string{"2", "1"}, restored.IDs("device"))
	assert.Equal(t, []string{"7"}, restored.IDs("printer"))
}
