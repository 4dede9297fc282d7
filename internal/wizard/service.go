package wizard

import (
	"context"
	"encoding/json"

	"github.com/Amawers/idmsystem-sub000/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Service exposes the wizard session operations: live single-field writes,
// validated step submits, and the repeatable sub-list contract. All store
// mutations go through the owning session's lock.
type Service struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	sessions  *Manager
	sanitizer *bluemonday.Policy
}

func NewService(logger *zap.Logger, sessions *Manager) *Service {
	return &Service{
		logger:    logger,
		tracer:    otel.Tracer("wizard/service"),
		sessions:  sessions,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Start creates an empty wizard session for the given program.
func (s *Service) Start(ctx context.Context, programKey string) (*Session, error) {
	_, span := s.tracer.Start(ctx, "Start")
	defer span.End()

	program, err := LookupProgram(programKey)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	session := s.sessions.Create(program)
	s.logger.Info("Started wizard session",
		zap.String("sessionID", session.ID.String()),
		zap.String("program", program.Key))

	return session, nil
}

// StartFromSections creates a session pre-populated wholesale, used when
// editing an existing case. Only declared fields are seeded; anything else
// in the stored payload is skipped.
func (s *Service) StartFromSections(ctx context.Context, programKey string, sections map[string]Section) (*Session, error) {
	traceCtx, span := s.tracer.Start(ctx, "StartFromSections")
	defer span.End()

	session, err := s.Start(traceCtx, programKey)
	if err != nil {
		return nil, err
	}

	session.Do(func(store *Store) {
		for key, record := range sections {
			sectionDef, ok := session.Program.Section(key)
			if !ok {
				continue
			}

			seed := make(Section, len(record))
			for field, value := range record {
				if _, ok := sectionDef.Field(field); ok {
					seed[field] = value
				}
			}
			store.Merge(key, seed)
		}
	})

	return session, nil
}

// Session resolves a live session by ID.
func (s *Service) Session(ctx context.Context, id uuid.UUID) (*Session, error) {
	_, span := s.tracer.Start(ctx, "Session")
	defer span.End()

	session, err := s.sessions.Get(id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return session, nil
}

// GetSection reads one section's current record. A section never written
// reads as an empty record.
func (s *Service) GetSection(ctx context.Context, id uuid.UUID, key string) (Section, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetSection")
	defer span.End()

	session, err := s.Session(traceCtx, id)
	if err != nil {
		return nil, err
	}

	if _, ok := session.Program.Section(key); !ok {
		span.RecordError(internal.ErrSectionNotFound)
		return nil, internal.ErrSectionNotFound
	}

	var record Section
	session.Do(func(store *Store) {
		record = store.Section(key)
	})
	return record, nil
}

// SetField performs a live single-field write: the changed field is stored
// immediately, all other fields of the section are preserved. No schema
// validation runs here; that is the step submit's job.
func (s *Service) SetField(ctx context.Context, id uuid.UUID, key, field string, raw json.RawMessage) error {
	traceCtx, span := s.tracer.Start(ctx, "SetField")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	session, err := s.Session(traceCtx, id)
	if err != nil {
		return err
	}

	sectionDef, ok := session.Program.Section(key)
	if !ok {
		span.RecordError(internal.ErrSectionNotFound)
		return internal.ErrSectionNotFound
	}

	fieldDef, ok := sectionDef.Field(field)
	if !ok {
		err := internal.ErrUnknownField{Section: key, Field: field}
		span.RecordError(err)
		return err
	}

	value, err := s.decodeValue(fieldDef, raw)
	if err != nil {
		span.RecordError(err)
		return err
	}

	session.Do(func(store *Store) {
		store.Set(key, field, value)
	})

	logger.Debug("Live field write",
		zap.String("sessionID", id.String()),
		zap.String("section", key),
		zap.String("field", field))
	return nil
}

// SubmitSection runs step validation over the effective record (the stored
// section merged with the submitted values) and, on success, bulk-merges the
// submitted values into the store. On failure the store is left untouched
// and field-level errors are returned so the wizard does not advance.
// Re-submitting identical values is a no-op merge.
func (s *Service) SubmitSection(ctx context.Context, id uuid.UUID, key string, values map[string]json.RawMessage) (Section, error) {
	traceCtx, span := s.tracer.Start(ctx, "SubmitSection")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	session, err := s.Session(traceCtx, id)
	if err != nil {
		return nil, err
	}

	sectionDef, ok := session.Program.Section(key)
	if !ok {
		span.RecordError(internal.ErrSectionNotFound)
		return nil, internal.ErrSectionNotFound
	}

	var fieldErrors []internal.FieldError

	incoming := make(Section, len(values))
	for field, raw := range values {
		fieldDef, ok := sectionDef.Field(field)
		if !ok {
			fieldErrors = append(fieldErrors, internal.FieldError{
				Field:   field,
				Message: "field is not declared by this section",
			})
			continue
		}

		value, err := s.decodeValue(fieldDef, raw)
		if err != nil {
			fieldErrors = append(fieldErrors, internal.FieldError{
				Field:   field,
				Message: err.Error(),
			})
			continue
		}
		incoming[field] = value
	}

	var existing Section
	session.Do(func(store *Store) {
		existing = store.Section(key)
	})

	effective := copySection(existing)
	for field, value := range incoming {
		effective[field] = value
	}

	fieldErrors = append(fieldErrors, validateSection(sectionDef, effective)...)
	if len(fieldErrors) > 0 {
		err := internal.ErrSectionInvalid{Section: key, FieldErrors: fieldErrors}
		logger.Info("Section submit rejected",
			zap.String("sessionID", id.String()),
			zap.String("section", key),
			zap.Int("fieldErrors", len(fieldErrors)))
		span.RecordError(err)
		return nil, err
	}

	applyOtherSubstitution(sectionDef, incoming, effective)

	var record Section
	session.Do(func(store *Store) {
		store.Merge(key, incoming)
		record = store.Section(key)
	})

	return record, nil
}

// AppendItem appends a sub-record to the section's list field.
func (s *Service) AppendItem(ctx context.Context, id uuid.UUID, key string, item SubRecord) (Section, error) {
	return s.mutateList(ctx, "AppendItem", id, key, func(store *Store, field string) error {
		store.AppendItem(key, field, item)
		return nil
	})
}

// ReplaceItem replaces the sub-record at the given position in the section's
// list field.
func (s *Service) ReplaceItem(ctx context.Context, id uuid.UUID, key string, index int, item SubRecord) (Section, error) {
	return s.mutateList(ctx, "ReplaceItem", id, key, func(store *Store, field string) error {
		return store.ReplaceItem(key, field, index, item)
	})
}

// RemoveItem removes the sub-record at the given position in the section's
// list field.
func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID, key string, index int) (Section, error) {
	return s.mutateList(ctx, "RemoveItem", id, key, func(store *Store, field string) error {
		return store.RemoveItem(key, field, index)
	})
}

func (s *Service) mutateList(ctx context.Context, op string, id uuid.UUID, key string, mutate func(store *Store, field string) error) (Section, error) {
	traceCtx, span := s.tracer.Start(ctx, op)
	defer span.End()

	session, err := s.Session(traceCtx, id)
	if err != nil {
		return nil, err
	}

	sectionDef, ok := session.Program.Section(key)
	if !ok {
		span.RecordError(internal.ErrSectionNotFound)
		return nil, internal.ErrSectionNotFound
	}

	field, ok := listFieldOf(sectionDef)
	if !ok {
		span.RecordError(internal.ErrNotAListField)
		return nil, internal.ErrNotAListField
	}

	var record Section
	var mutateErr error
	session.Do(func(store *Store) {
		mutateErr = mutate(store, field)
		if mutateErr == nil {
			record = store.Section(key)
		}
	})
	if mutateErr != nil {
		span.RecordError(mutateErr)
		return nil, mutateErr
	}

	return record, nil
}

// Export returns the full store contents and the owning program definition
// for payload building.
func (s *Service) Export(ctx context.Context, id uuid.UUID) (map[string]Section, ProgramDef, error) {
	traceCtx, span := s.tracer.Start(ctx, "Export")
	defer span.End()

	session, err := s.Session(traceCtx, id)
	if err != nil {
		return nil, ProgramDef{}, err
	}

	var export map[string]Section
	session.Do(func(store *Store) {
		export = store.Export()
	})
	return export, session.Program, nil
}

// Discard resets and drops a session. Used after a successful submission
// and on explicit cancel.
func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	traceCtx, span := s.tracer.Start(ctx, "Discard")
	defer span.End()

	session, err := s.Session(traceCtx, id)
	if err != nil {
		return err
	}

	session.Do(func(store *Store) {
		store.Reset()
	})
	s.sessions.Discard(id)

	s.logger.Info("Discarded wizard session", zap.String("sessionID", id.String()))
	return nil
}

// decodeValue decodes a raw JSON field value against its declared kind,
// stripping any HTML from free text before it reaches the store.
func (s *Service) decodeValue(def FieldDef, raw json.RawMessage) (Value, error) {
	switch def.Kind {
	case FieldFlag:
		var flag bool
		if err := json.Unmarshal(raw, &flag); err != nil {
			return Value{}, internal.ErrFieldTypeMismatch
		}
		return FlagValue(flag), nil

	case FieldList:
		var list []SubRecord
		if err := json.Unmarshal(raw, &list); err != nil {
			return Value{}, internal.ErrFieldTypeMismatch
		}
		for _, item := range list {
			for k, v := range item {
				item[k] = s.sanitizer.Sanitize(v)
			}
		}
		return ListValue(list), nil

	default:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return Value{}, internal.ErrFieldTypeMismatch
		}
		return TextValue(s.sanitizer.Sanitize(text)), nil
	}
}

// validateSection enforces the section schema against the effective record:
// required fields present, dates parseable, list minimums met.
func validateSection(def SectionDef, effective Section) []internal.FieldError {
	var fieldErrors []internal.FieldError

	for _, fieldDef := range def.Fields {
		value, present := effective[fieldDef.Name]

		switch fieldDef.Kind {
		case FieldList:
			length := 0
			if present {
				length = len(value.List)
			}
			if length < fieldDef.MinItems {
				fieldErrors = append(fieldErrors, internal.FieldError{
					Field:   fieldDef.Name,
					Message: "at least one entry is required",
				})
			}

		case FieldDate:
			if present && value.Text != "" {
				if _, ok := ParseDateString(value.Text); !ok {
					fieldErrors = append(fieldErrors, internal.FieldError{
						Field:   fieldDef.Name,
						Message: "must be a valid date (YYYY-MM-DD)",
					})
				}
			}
			if fieldDef.Required && (!present || value.Text == "") {
				fieldErrors = append(fieldErrors, internal.FieldError{
					Field:   fieldDef.Name,
					Message: "this field is required",
				})
			}

		case FieldFlag:
			// Checkbox absence reads as unchecked; never an error.

		default:
			if fieldDef.Required && (!present || value.Text == "") {
				fieldErrors = append(fieldErrors, internal.FieldError{
					Field:   fieldDef.Name,
					Message: "this field is required",
				})
			}
		}
	}

	return fieldErrors
}

// applyOtherSubstitution rewrites select fields whose effective value is the
// "other" sentinel to their companion free-text value, falling back to the
// literal sentinel when the companion is blank.
func applyOtherSubstitution(def SectionDef, incoming, effective Section) {
	for _, fieldDef := range def.Fields {
		if fieldDef.OtherField == "" {
			continue
		}

		value, ok := effective[fieldDef.Name]
		if !ok || value.Text != OtherSentinel {
			continue
		}

		recorded := OtherSentinel
		if override, ok := effective[fieldDef.OtherField]; ok && override.Text != "" {
			recorded = override.Text
		}
		incoming[fieldDef.Name] = TextValue(recorded)
	}
}

// listFieldOf returns the section's list field name. Repeatable-row sections
// declare exactly one.
func listFieldOf(def SectionDef) (string, bool) {
	for _, f := range def.Fields {
		if f.Kind == FieldList {
			return f.Name, true
		}
	}
	return "", false
}
