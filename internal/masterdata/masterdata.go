// Package masterdata loads the versioned static tables the pipeline depends on:
// the staff roster, the sales activity labels, lexical cue words and the CRM
// field codes.
package masterdata

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

// Activity families used by the activity_type heuristic.
const (
	FamilyVisit  = "visit"
	FamilyRemote = "remote"
)

var (
	// ErrMissingVersion is returned when a master data document has no version.
	ErrMissingVersion = errors.New("masterdata: version is required")
	// ErrNoActivities is returned when the activity catalog is empty.
	ErrNoActivities = errors.New("masterdata: at least one activity label is required")
)

// Data is one version of the master data document.
type Data struct {
	Version        string       `yaml:"version"`
	Organization   Organization `yaml:"organization"`
	OutputLanguage string       `yaml:"output_language"`
	Activities     []Activity   `yaml:"activities"`
	Cues           Cues         `yaml:"cues"`
	Staff          []Staff      `yaml:"staff"`
	CRMFields      FieldCodes   `yaml:"crm_fields"`
	ClientLookup   ClientLookup `yaml:"client_lookup"`
}

type Organization struct {
	Name string `yaml:"name"`
}

// Activity is one selectable sales activity label. Stage orders labels by
// conversation depth within a family.
type Activity struct {
	Label       string `yaml:"label"`
	Family      string `yaml:"family"`
	Stage       int    `yaml:"stage"`
	Description string `yaml:"description"`
}

type Cues struct {
	Visit  []string `yaml:"visit"`
	Remote []string `yaml:"remote"`
}

type Staff struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// FieldCodes maps record attributes to Kintone field codes.
type FieldCodes struct {
	ClientID         string `yaml:"client_id"`
	ActivityType     string `yaml:"activity_type"`
	ActionDate       string `yaml:"action_date"`
	Operator         string `yaml:"operator"`
	MeetingSummary   string `yaml:"meeting_summary"`
	CurrentIssues    string `yaml:"current_issues"`
	CompetitorInfo   string `yaml:"competitor_info"`
	NextAction       string `yaml:"next_action"`
	NextActionDate   string `yaml:"next_action_date"`
	NextActivityType string `yaml:"next_activity_type"`
	Attachments      string `yaml:"attachments"`
}

type ClientLookup struct {
	IDField   string `yaml:"id_field"`
	NameField string `yaml:"name_field"`
	Limit     int    `yaml:"limit"`
}

// Default returns the embedded master data.
func Default() (*Data, error) {
	return Parse(defaultDocument)
}

// Load reads master data from path on the OS filesystem, or the embedded
// default when path is empty.
func Load(path string) (*Data, error) {
	return LoadFS(afero.NewOsFs(), path)
}

// LoadFS reads master data from fs.
func LoadFS(fs afero.Fs, path string) (*Data, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("masterdata: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML master data document.
func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("masterdata: decode: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.ClientLookup.Limit <= 0 {
		d.ClientLookup.Limit = 20
	}
	if strings.TrimSpace(d.OutputLanguage) == "" {
		d.OutputLanguage = "Japanese"
	}
	return &d, nil
}

// Validate checks structural invariants of the document.
func (d *Data) Validate() error {
	if strings.TrimSpace(d.Version) == "" {
		return ErrMissingVersion
	}
	if len(d.Activities) == 0 {
		return ErrNoActivities
	}
	seen := make(map[string]struct{}, len(d.Activities))
	for _, a := range d.Activities {
		if strings.TrimSpace(a.Label) == "" {
			return errors.New("masterdata: activity label is empty")
		}
		if a.Family != FamilyVisit && a.Family != FamilyRemote {
			return fmt.Errorf("masterdata: activity %q has unknown family %q", a.Label, a.Family)
		}
		if _, dup := seen[a.Label]; dup {
			return fmt.Errorf("masterdata: duplicate activity label %q", a.Label)
		}
		seen[a.Label] = struct{}{}
	}
	names := make(map[string]struct{}, len(d.Staff))
	for _, s := range d.Staff {
		key := nameKey(s.Name)
		if key == "" || strings.TrimSpace(s.Code) == "" {
			return fmt.Errorf("masterdata: staff entry %q needs both name and code", s.Name)
		}
		if _, dup := names[key]; dup {
			return fmt.Errorf("masterdata: duplicate staff name %q", s.Name)
		}
		names[key] = struct{}{}
	}
	if d.CRMFields.MeetingSummary == "" || d.CRMFields.ActivityType == "" || d.CRMFields.Operator == "" {
		return errors.New("masterdata: crm_fields must define at least activity_type, meeting_summary and operator")
	}
	return nil
}

// ActivityLabels returns every label in catalog order.
func (d *Data) ActivityLabels() []string {
	out := make([]string, 0, len(d.Activities))
	for _, a := range d.Activities {
		out = append(out, a.Label)
	}
	return out
}

// IsActivityLabel reports whether label is part of the catalog.
func (d *Data) IsActivityLabel(label string) bool {
	for _, a := range d.Activities {
		if a.Label == label {
			return true
		}
	}
	return false
}

// StaffNames returns roster names in declaration order.
func (d *Data) StaffNames() []string {
	out := make([]string, 0, len(d.Staff))
	for _, s := range d.Staff {
		out = append(out, s.Name)
	}
	return out
}

// Roster builds the name-to-code lookup table.
func (d *Data) Roster() Roster {
	r := Roster{codes: make(map[string]string, len(d.Staff))}
	for _, s := range d.Staff {
		r.codes[nameKey(s.Name)] = strings.TrimSpace(s.Code)
	}
	return r
}

// Roster resolves operator names to CRM user codes. Whitespace differences
// (including ideographic spaces) are ignored when matching.
type Roster struct {
	codes map[string]string
}

// NewRoster builds a roster from a plain name-to-code map.
func NewRoster(entries map[string]string) Roster {
	r := Roster{codes: make(map[string]string, len(entries))}
	for name, code := range entries {
		r.codes[nameKey(name)] = code
	}
	return r
}

// Resolve returns the code for name and whether it was found.
func (r Roster) Resolve(name string) (string, bool) {
	key := nameKey(name)
	if key == "" {
		return "", false
	}
	code, ok := r.codes[key]
	return code, ok
}

func nameKey(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}
