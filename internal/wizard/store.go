package wizard

import (
	"encoding/json"
	"fmt"

	"github.com/Amawers/idmsystem-sub000/internal"
)

// SubRecord is one row of a repeatable list field (e.g. one family member).
// Sub-records carry no stable identifier; they are addressed by position.
type SubRecord map[string]string

// Value is one stored field value: scalar text, a checkbox flag, or an
// ordered list of sub-records.
type Value struct {
	Kind FieldKind
	Text string
	Flag bool
	List []SubRecord
}

// TextValue wraps a scalar string.
func TextValue(s string) Value {
	return Value{Kind: FieldText, Text: s}
}

// FlagValue wraps a checkbox state.
func FlagValue(b bool) Value {
	return Value{Kind: FieldFlag, Flag: b}
}

// ListValue wraps an ordered sub-record list.
func ListValue(items []SubRecord) Value {
	return Value{Kind: FieldList, List: items}
}

// MarshalJSON emits the bare scalar, boolean, or array so section records
// serialize the way form clients expect.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case FieldFlag:
		return json.Marshal(v.Flag)
	case FieldList:
		list := v.List
		if list == nil {
			list = []SubRecord{}
		}
		return json.Marshal(list)
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON sniffs the JSON shape: string, bool, or array of flat
// string maps.
func (v *Value) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*v = TextValue(text)
		return nil
	}

	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		*v = FlagValue(flag)
		return nil
	}

	var list []SubRecord
	if err := json.Unmarshal(data, &list); err == nil {
		*v = ListValue(list)
		return nil
	}

	return fmt.Errorf("field value must be a string, boolean, or array of records: %s", string(data))
}

// Section is one section's record: field name to value.
type Section map[string]Value

// Store holds all in-progress wizard data for a single editing session,
// keyed by section. It is not safe to share across concurrent sessions;
// the session manager owns one store per session.
type Store struct {
	sections map[string]Section
}

func NewStore() *Store {
	return &Store{sections: make(map[string]Section)}
}

// Set writes a single field, preserving all other fields of the section.
func (s *Store) Set(section, field string, value Value) {
	record, ok := s.sections[section]
	if !ok {
		record = make(Section)
		s.sections[section] = record
	}
	record[field] = value
}

// Merge bulk-merges the given values into a section. Keys absent from the
// incoming record are preserved; present keys overwrite. Merging the same
// values twice is a no-op.
func (s *Store) Merge(section string, values Section) {
	for field, value := range values {
		s.Set(section, field, value)
	}
}

// Section returns a copy of the section record. A section never written
// reads as an empty record.
func (s *Store) Section(key string) Section {
	record, ok := s.sections[key]
	if !ok {
		return Section{}
	}
	return copySection(record)
}

// Export returns a deep copy of the full store contents for payload building.
func (s *Store) Export() map[string]Section {
	out := make(map[string]Section, len(s.sections))
	for key, record := range s.sections {
		out[key] = copySection(record)
	}
	return out
}

// Reset clears the store back to empty. Called after a successful
// submission or an explicit cancel.
func (s *Store) Reset() {
	s.sections = make(map[string]Section)
}

// AppendItem appends a sub-record to a list field and writes the whole list
// back. A missing list field starts empty.
func (s *Store) AppendItem(section, field string, item SubRecord) {
	list := s.listField(section, field)
	s.Set(section, field, ListValue(append(list, copySubRecord(item))))
}

// ReplaceItem replaces the sub-record at the given position.
func (s *Store) ReplaceItem(section, field string, index int, item SubRecord) error {
	list := s.listField(section, field)
	if index < 0 || index >= len(list) {
		return internal.ErrListIndexOutOfRange
	}

	list[index] = copySubRecord(item)
	s.Set(section, field, ListValue(list))
	return nil
}

// RemoveItem removes the sub-record at the given position, shifting later
// entries down.
func (s *Store) RemoveItem(section, field string, index int) error {
	list := s.listField(section, field)
	if index < 0 || index >= len(list) {
		return internal.ErrListIndexOutOfRange
	}

	s.Set(section, field, ListValue(append(list[:index], list[index+1:]...)))
	return nil
}

// listField reads a list field as a mutable copy, treating absence as empty.
func (s *Store) listField(section, field string) []SubRecord {
	record, ok := s.sections[section]
	if !ok {
		return nil
	}

	value, ok := record[field]
	if !ok || value.Kind != FieldList {
		return nil
	}

	list := make([]SubRecord, len(value.List))
	for i, item := range value.List {
		list[i] = copySubRecord(item)
	}
	return list
}

func copySection(record Section) Section {
	out := make(Section, len(record))
	for field, value := range record {
		if value.Kind == FieldList {
			list := make([]SubRecord, len(value.List))
			for i, item := range value.List {
				list[i] = copySubRecord(item)
			}
			value.List = list
		}
		out[field] = value
	}
	return out
}

func copySubRecord(item SubRecord) SubRecord {
	out := make(SubRecord, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
