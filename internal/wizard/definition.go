package wizard

import (
	"sort"

	"github.com/Amawers/idmsystem-sub000/internal"
)

type FieldKind string

const (
	FieldText   FieldKind = "TEXT"
	FieldSelect FieldKind = "SELECT"
	FieldFlag   FieldKind = "FLAG"
	FieldDate   FieldKind = "DATE"
	FieldList   FieldKind = "LIST"
)

// OtherSentinel is the select value that redirects the recorded value to the
// companion free-text field.
const OtherSentinel = "other"

// FieldDef declares one field of a wizard section. The declared set is the
// full universe of field names a section accepts; writes naming anything else
// are rejected so a typo cannot silently create a stray key.
type FieldDef struct {
	Name     string
	Column   string // destination column name; empty for input-only fields
	Kind     FieldKind
	Required bool

	// OtherField names the companion free-text field whose value replaces
	// this field's recorded value when the selection equals OtherSentinel.
	OtherField string

	// MinItems applies to list fields: a section submit is rejected until the
	// list holds at least this many entries.
	MinItems int
}

// SectionDef declares one step of an intake wizard.
type SectionDef struct {
	Key    string
	Title  string
	Fields []FieldDef
}

// Field returns the declaration for the named field.
func (s SectionDef) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// ProgramDef declares one intake program: its wizard sections and the
// destination columns of its final payload.
type ProgramDef struct {
	Key   string
	Title string

	// NameColumn and BirthDateColumn identify the headline columns used by
	// case listings and roster exports.
	NameColumn      string
	BirthDateColumn string

	Sections []SectionDef
}

// Section returns the declaration for the named section.
func (p ProgramDef) Section(key string) (SectionDef, bool) {
	for _, s := range p.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return SectionDef{}, false
}

// ColumnField pairs an output column with the section it is collected in.
type ColumnField struct {
	Section string
	Field   FieldDef
}

// ColumnFields returns every field that maps to an output column, in
// declaration order. This is the column universe of the final payload.
func (p ProgramDef) ColumnFields() []ColumnField {
	var columns []ColumnField
	for _, s := range p.Sections {
		for _, f := range s.Fields {
			if f.Column == "" {
				continue
			}
			columns = append(columns, ColumnField{Section: s.Key, Field: f})
		}
	}
	return columns
}

var programs = map[string]ProgramDef{}

func init() {
	for _, p := range []ProgramDef{ciclProgram, seniorCitizenProgram, familyAssistanceProgram} {
		programs[p.Key] = p
	}
}

// LookupProgram resolves a program key to its definition.
func LookupProgram(key string) (ProgramDef, error) {
	p, ok := programs[key]
	if !ok {
		return ProgramDef{}, internal.ErrProgramNotFound
	}
	return p, nil
}

// Programs lists every registered program in key order.
func Programs() []ProgramDef {
	keys := make([]string, 0, len(programs))
	for k := range programs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]ProgramDef, 0, len(keys))
	for _, k := range keys {
		list = append(list, programs[k])
	}
	return list
}

var ciclProgram = ProgramDef{
	Key:             "cicl",
	Title:           "Children in Conflict with the Law / Children at Risk",
	NameColumn:      "child_name",
	BirthDateColumn: "date_of_birth",
	Sections: []SectionDef{
		{
			Key:   "identifying",
			Title: "Identifying Data",
			Fields: []FieldDef{
				{Name: "name", Column: "child_name", Kind: FieldText, Required: true},
				{Name: "birthday", Column: "date_of_birth", Kind: FieldDate},
				{Name: "sex", Column: "sex", Kind: FieldSelect},
				{Name: "address", Column: "address", Kind: FieldText},
				{Name: "guardianName", Column: "guardian_name", Kind: FieldText},
				{Name: "guardianContact", Column: "guardian_contact", Kind: FieldText},
			},
		},
		{
			Key:   "caseDetails",
			Title: "Case Details",
			Fields: []FieldDef{
				{Name: "offenseType", Column: "offense_type", Kind: FieldSelect, Required: true, OtherField: "offenseTypeOther"},
				{Name: "offenseTypeOther", Kind: FieldText},
				{Name: "dateOfIncident", Column: "date_of_incident", Kind: FieldDate},
				{Name: "referralSource", Column: "referral_source", Kind: FieldText},
				{Name: "status", Column: "case_status", Kind: FieldSelect},
			},
		},
		{
			Key:   "family",
			Title: "Family Composition",
			Fields: []FieldDef{
				{Name: "members", Column: "family_members", Kind: FieldList, MinItems: 1},
			},
		},
		{
			Key:   "education",
			Title: "Educational Background",
			Fields: []FieldDef{
				{Name: "attendingSchool", Column: "attending_school", Kind: FieldFlag},
				{Name: "gradeLevel", Column: "grade_level", Kind: FieldText},
				{Name: "schoolName", Column: "school_name", Kind: FieldText},
			},
		},
		{
			Key:   "interventions",
			Title: "Interventions Provided",
			Fields: []FieldDef{
				{Name: "interventions", Column: "interventions", Kind: FieldList},
			},
		},
	},
}

var seniorCitizenProgram = ProgramDef{
	Key:             "senior_citizen",
	Title:           "Senior Citizen Intake",
	NameColumn:      "senior_name",
	BirthDateColumn: "date_of_birth",
	Sections: []SectionDef{
		{
			Key:   "identifying",
			Title: "Identifying Data",
			Fields: []FieldDef{
				{Name: "name", Column: "senior_name", Kind: FieldText, Required: true},
				{Name: "birthday", Column: "date_of_birth", Kind: FieldDate},
				{Name: "sex", Column: "sex", Kind: FieldSelect},
				{Name: "civilStatus", Column: "civil_status", Kind: FieldSelect},
				{Name: "address", Column: "address", Kind: FieldText},
				{Name: "contactNumber", Column: "contact_number", Kind: FieldText},
				{Name: "oscaId", Column: "osca_id", Kind: FieldText},
				{Name: "livingArrangement", Column: "living_arrangement", Kind: FieldSelect, OtherField: "livingArrangementOther"},
				{Name: "livingArrangementOther", Kind: FieldText},
				{Name: "pensionSource", Column: "pension_source", Kind: FieldSelect, OtherField: "pensionSourceOther"},
				{Name: "pensionSourceOther", Kind: FieldText},
			},
		},
		{
			Key:   "family",
			Title: "Family Composition",
			Fields: []FieldDef{
				{Name: "members", Column: "family_members", Kind: FieldList, MinItems: 1},
			},
		},
		{
			Key:   "health",
			Title: "Health Condition",
			Fields: []FieldDef{
				{Name: "healthCondition", Column: "health_condition", Kind: FieldText},
				{Name: "hasMaintenanceMeds", Column: "has_maintenance_meds", Kind: FieldFlag},
				{Name: "mobility", Column: "mobility_status", Kind: FieldSelect},
			},
		},
		{
			Key:   "services",
			Title: "Services Availed",
			Fields: []FieldDef{
				{Name: "availedServices", Column: "availed_services", Kind: FieldList},
			},
		},
		{
			Key:   "assessment",
			Title: "Assessment",
			Fields: []FieldDef{
				{Name: "remarks", Column: "assessment_remarks", Kind: FieldText},
				{Name: "assessedBy", Column: "assessed_by", Kind: FieldText},
				{Name: "assessmentDate", Column: "assessment_date", Kind: FieldDate},
			},
		},
	},
}

var familyAssistanceProgram = ProgramDef{
	Key:             "family_assistance",
	Title:           "Family Assistance Intake",
	NameColumn:      "head_of_family_name",
	BirthDateColumn: "date_of_birth",
	Sections: []SectionDef{
		{
			Key:   "identifying",
			Title: "Identifying Data",
			Fields: []FieldDef{
				{Name: "name", Column: "head_of_family_name", Kind: FieldText, Required: true},
				{Name: "birthday", Column: "date_of_birth", Kind: FieldDate},
				{Name: "address", Column: "address", Kind: FieldText},
				{Name: "contactNumber", Column: "contact_number", Kind: FieldText},
			},
		},
		{
			Key:   "assistance",
			Title: "Assistance Requested",
			Fields: []FieldDef{
				{Name: "assistanceType", Column: "assistance_type", Kind: FieldSelect, Required: true, OtherField: "assistanceTypeOther"},
				{Name: "assistanceTypeOther", Kind: FieldText},
				{Name: "reason", Column: "assistance_reason", Kind: FieldText},
				{Name: "dateRequested", Column: "date_requested", Kind: FieldDate},
				{Name: "amountRequested", Column: "amount_requested", Kind: FieldText},
			},
		},
		{
			Key:   "family",
			Title: "Family Composition",
			Fields: []FieldDef{
				{Name: "members", Column: "family_members", Kind: FieldList, MinItems: 1},
			},
		},
		{
			Key:   "partners",
			Title: "Referred Partner Organizations",
			Fields: []FieldDef{
				{Name: "referredPartners", Column: "referred_partners", Kind: FieldList},
			},
		},
	},
}
