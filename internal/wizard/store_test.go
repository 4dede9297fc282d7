package wizard

import (
	"encoding/json"
	"testing"

	"github.com/Amawers/idmsystem-sub000/internal"

	"github.com/stretchr/testify/require"
)

func TestStore_MergePreservesOtherFields(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Merge("identifying", Section{
		"name":    TextValue("Lola Remedios"),
		"address": TextValue("Purok 4"),
	})

	store.Merge("identifying", Section{
		"address": TextValue("Purok 5"),
	})

	record := store.Section("identifying")
	require.Equal(t, TextValue("Lola Remedios"), record["name"])
	require.Equal(t, TextValue("Purok 5"), record["address"])
}

func TestStore_MergeIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewStore()
	values := Section{
		"name":     TextValue("Juan"),
		"birthday": TextValue("1950-07-01"),
	}

	store.Merge("identifying", values)
	before := store.Export()

	store.Merge("identifying", values)
	require.Equal(t, before, store.Export())
}

func TestStore_MissingSectionReadsEmpty(t *testing.T) {
	t.Parallel()

	store := NewStore()
	record := store.Section("never-written")
	require.NotNil(t, record)
	require.Empty(t, record)
}

func TestStore_SectionReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Set("family", "members", ListValue([]SubRecord{{"name": "Ana"}}))

	record := store.Section("family")
	record["members"].List[0]["name"] = "mutated"

	require.Equal(t, "Ana", store.Section("family")["members"].List[0]["name"])
}

func TestStore_ListOperations(t *testing.T) {
	t.Parallel()

	t.Run("Should append starting from empty", func(t *testing.T) {
		t.Parallel()

		store := NewStore()
		store.AppendItem("family", "members", SubRecord{"name": "Ana"})
		store.AppendItem("family", "members", SubRecord{"name": "Ben"})

		list := store.Section("family")["members"].List
		require.Len(t, list, 2)
		require.Equal(t, "Ana", list[0]["name"])
		require.Equal(t, "Ben", list[1]["name"])
	})

	t.Run("Should replace by position", func(t *testing.T) {
		t.Parallel()

		store := NewStore()
		store.AppendItem("family", "members", SubRecord{"name": "Ana"})
		store.AppendItem("family", "members", SubRecord{"name": "Ben"})

		err := store.ReplaceItem("family", "members", 1, SubRecord{"name": "Carla"})
		require.NoError(t, err)

		list := store.Section("family")["members"].List
		require.Equal(t, "Ana", list[0]["name"])
		require.Equal(t, "Carla", list[1]["name"])
	})

	t.Run("Should shift later entries down on remove", func(t *testing.T) {
		t.Parallel()

		store := NewStore()
		store.AppendItem("family", "members", SubRecord{"name": "Ana"})
		store.AppendItem("family", "members", SubRecord{"name": "Ben"})
		store.AppendItem("family", "members", SubRecord{"name": "Carla"})

		err := store.RemoveItem("family", "members", 0)
		require.NoError(t, err)

		list := store.Section("family")["members"].List
		require.Len(t, list, 2)
		require.Equal(t, "Ben", list[0]["name"])
		require.Equal(t, "Carla", list[1]["name"])
	})

	t.Run("Should reject out of range positions", func(t *testing.T) {
		t.Parallel()

		store := NewStore()
		store.AppendItem("family", "members", SubRecord{"name": "Ana"})

		err := store.ReplaceItem("family", "members", 1, SubRecord{"name": "Ben"})
		require.ErrorIs(t, err, internal.ErrListIndexOutOfRange)

		err = store.RemoveItem("family", "members", -1)
		require.ErrorIs(t, err, internal.ErrListIndexOutOfRange)
	})
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Set("identifying", "name", TextValue("Juan"))
	store.Reset()

	require.Empty(t, store.Export())
	require.Empty(t, store.Section("identifying"))
}

func TestValue_JSONShapes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		value    Value
		expected string
	}{
		{
			name:     "Should marshal text as bare string",
			value:    TextValue("hello"),
			expected: `"hello"`,
		},
		{
			name:     "Should marshal flag as bare boolean",
			value:    FlagValue(true),
			expected: `true`,
		},
		{
			name:     "Should marshal nil list as empty array",
			value:    ListValue(nil),
			expected: `[]`,
		},
		{
			name:     "Should marshal list entries as objects",
			value:    ListValue([]SubRecord{{"name": "Ana"}}),
			expected: `[{"name":"Ana"}]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b, err := json.Marshal(tc.value)
			require.NoError(t, err)
			require.JSONEq(t, tc.expected, string(b))

			var back Value
			require.NoError(t, json.Unmarshal(b, &back))
		})
	}
}

func TestValue_UnmarshalRejectsNumbers(t *testing.T) {
	t.Parallel()

	var v Value
	err := json.Unmarshal([]byte(`42`), &v)
	require.Error(t, err)
}
