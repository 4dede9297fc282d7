// Package payload flattens accumulated wizard sections into the single flat
// record persisted for a case, and rebuilds sections from such a record when
// a case is reopened for editing.
package payload

import (
	"fmt"

	"github.com/Amawers/idmsystem-sub000/internal/wizard"
)

// NormalizeDate reduces a date or timestamp string to its UTC calendar date
// in YYYY-MM-DD form. The second return is false when the input does not
// parse as any accepted layout.
func NormalizeDate(value string) (string, bool) {
	t, ok := wizard.ParseDateString(value)
	if !ok {
		return "", false
	}
	return t.UTC().Format("2006-01-02"), true
}

// Build flattens section records into the program's column universe. Every
// declared column appears in the result:
//   - text and select columns carry the stored string, or nil when the field
//     was never written
//   - flag columns carry the stored boolean, or nil when never written
//   - date columns carry the normalized YYYY-MM-DD string, or nil when never
//     written or unparseable
//   - list columns always carry a non-nil slice, empty when never written
func Build(def wizard.ProgramDef, sections map[string]wizard.Section) map[string]any {
	out := make(map[string]any)
	for _, cf := range def.ColumnFields() {
		record := sections[cf.Section]
		value, present := record[cf.Field.Name]

		switch cf.Field.Kind {
		case wizard.FieldList:
			list := []wizard.SubRecord{}
			if present {
				list = append(list, value.List...)
			}
			out[cf.Field.Column] = list
		case wizard.FieldFlag:
			if !present {
				out[cf.Field.Column] = nil
				continue
			}
			out[cf.Field.Column] = value.Flag
		case wizard.FieldDate:
			if !present || value.Text == "" {
				out[cf.Field.Column] = nil
				continue
			}
			normalized, ok := NormalizeDate(value.Text)
			if !ok {
				out[cf.Field.Column] = nil
				continue
			}
			out[cf.Field.Column] = normalized
		default:
			if !present {
				out[cf.Field.Column] = nil
				continue
			}
			out[cf.Field.Column] = value.Text
		}
	}
	return out
}

// Hydrate rebuilds section records from a flat case payload so an existing
// case can be edited through the wizard again. Columns that are nil or
// missing from the payload leave the field unwritten; list columns rebuild
// their sub-records. Values arrive as decoded JSON, so lists appear as
// []any of map[string]any.
func Hydrate(def wizard.ProgramDef, flat map[string]any) (map[string]wizard.Section, error) {
	sections := make(map[string]wizard.Section)
	set := func(section, field string, value wizard.Value) {
		record, ok := sections[section]
		if !ok {
			record = make(wizard.Section)
			sections[section] = record
		}
		record[field] = value
	}

	for _, cf := range def.ColumnFields() {
		raw, ok := flat[cf.Field.Column]
		if !ok || raw == nil {
			continue
		}

		switch cf.Field.Kind {
		case wizard.FieldList:
			list, err := decodeList(raw)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", cf.Field.Column, err)
			}
			set(cf.Section, cf.Field.Name, wizard.ListValue(list))
		case wizard.FieldFlag:
			flag, ok := raw.(bool)
			if !ok {
				return nil, fmt.Errorf("column %s: expected boolean, got %T", cf.Field.Column, raw)
			}
			set(cf.Section, cf.Field.Name, wizard.FlagValue(flag))
		default:
			text, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("column %s: expected string, got %T", cf.Field.Column, raw)
			}
			set(cf.Section, cf.Field.Name, wizard.TextValue(text))
		}
	}
	return sections, nil
}

func decodeList(raw any) ([]wizard.SubRecord, error) {
	switch v := raw.(type) {
	case []wizard.SubRecord:
		list := make([]wizard.SubRecord, len(v))
		copy(list, v)
		return list, nil
	case []any:
		list := make([]wizard.SubRecord, 0, len(v))
		for _, entry := range v {
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object list entry, got %T", entry)
			}
			item := make(wizard.SubRecord, len(m))
			for k, val := range m {
				s, ok := val.(string)
				if !ok {
					return nil, fmt.Errorf("expected string value for %s, got %T", k, val)
				}
				item[k] = s
			}
			list = append(list, item)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("expected array, got %T", raw)
	}
}
