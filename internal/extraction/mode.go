package extraction

// Mode selects the field schema and instruction template for one request.
type Mode string

const (
	ModeActivityReport Mode = "activity_report"
	ModeQnA            Mode = "qna"
)

// SchemaKind is the top-level shape the parser coerces a reply into.
type SchemaKind int

const (
	// SchemaObject is a flat object of string fields.
	SchemaObject SchemaKind = iota
	// SchemaPairs is a list of question/answer pairs.
	SchemaPairs
)

type Schema struct {
	Kind   SchemaKind
	Fields []string
}

// ModeSpec is a catalog entry: how to instruct the service and how to read
// its answer.
type ModeSpec struct {
	Mode         Mode
	Instructions func(InstructionParams) (string, error)
	Schema       Schema
}

var catalog = map[Mode]ModeSpec{
	ModeActivityReport: {
		Mode:         ModeActivityReport,
		Instructions: reportInstructions,
		Schema:       Schema{Kind: SchemaObject, Fields: reportFields},
	},
	ModeQnA: {
		Mode:         ModeQnA,
		Instructions: qnaInstructions,
		Schema:       Schema{Kind: SchemaPairs, Fields: []string{"question", "answer"}},
	},
}

// LookupMode returns the catalog entry for id. Matching is exact.
func LookupMode(id string) (ModeSpec, error) {
	spec, ok := catalog[Mode(id)]
	if !ok {
		return ModeSpec{}, &UnknownModeError{Mode: id}
	}
	return spec, nil
}

// Modes lists the supported modes.
func Modes() []Mode {
	return []Mode{ModeActivityReport, ModeQnA}
}
