package extraction

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/wolfman30/visit-report-ai/internal/masterdata"
)

// InstructionParams carries everything an instruction template may reference.
type InstructionParams struct {
	Today          string
	Organization   string
	Activities     []masterdata.Activity
	VisitCues      []string
	RemoteCues     []string
	OutputLanguage string
	HasAudio       bool
	HasText        bool
}

// ParamsFromMasterData fills the static parts of the params from d.
func ParamsFromMasterData(d *masterdata.Data, today string) InstructionParams {
	return InstructionParams{
		Today:          today,
		Organization:   d.Organization.Name,
		Activities:     d.Activities,
		VisitCues:      d.Cues.Visit,
		RemoteCues:     d.Cues.Remote,
		OutputLanguage: d.OutputLanguage,
	}
}

// Weekday is the English day name of Today.
func (p InstructionParams) Weekday() string {
	t, err := time.Parse(ISODate, p.Today)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}

// VisitActivities returns the visit family ordered by stage.
func (p InstructionParams) VisitActivities() []masterdata.Activity {
	return p.family(masterdata.FamilyVisit)
}

// RemoteActivities returns the remote family ordered by stage.
func (p InstructionParams) RemoteActivities() []masterdata.Activity {
	return p.family(masterdata.FamilyRemote)
}

func (p InstructionParams) family(name string) []masterdata.Activity {
	var out []masterdata.Activity
	for _, a := range p.Activities {
		if a.Family == name {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}

// JapaneseOutput reports whether the plain written register applies.
func (p InstructionParams) JapaneseOutput() bool {
	lang := strings.ToLower(strings.TrimSpace(p.OutputLanguage))
	return lang == "" || lang == "japanese" || lang == "ja" || lang == "日本語"
}

// BuildInstructions renders the instruction text for mode. It performs no I/O
// and returns the same text for the same inputs.
func BuildInstructions(mode Mode, params InstructionParams) (string, error) {
	spec, err := LookupMode(string(mode))
	if err != nil {
		return "", err
	}
	return spec.Instructions(params)
}

var templateFuncs = template.FuncMap{
	"fence": func() string { return fenceMarker },
	"join":  strings.Join,
	"quote": func(items []string) string {
		quoted := make([]string, len(items))
		for i, s := range items {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		return strings.Join(quoted, ", ")
	},
}

var (
	reportTemplate = template.Must(template.New("activity_report").
			Option("missingkey=error").Funcs(templateFuncs).Parse(reportInstructionText))
	qnaTemplate = template.Must(template.New("qna").
			Option("missingkey=error").Funcs(templateFuncs).Parse(qnaInstructionText))
)

func reportInstructions(p InstructionParams) (string, error) {
	if _, err := time.Parse(ISODate, p.Today); err != nil {
		return "", ErrInvalidToday
	}
	if len(p.Activities) == 0 {
		return "", masterdata.ErrNoActivities
	}
	return render(reportTemplate, p)
}

func qnaInstructions(p InstructionParams) (string, error) {
	return render(qnaTemplate, p)
}

func render(t *template.Template, p InstructionParams) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("extraction: render %s instructions: %w", t.Name(), err)
	}
	return buf.String(), nil
}

const reportInstructionText = `You are an assistant that turns sales visit recordings and memos into CRM activity records for {{.Organization}}.
The sales representative works for {{.Organization}}. Statements about {{.Organization}} itself are never competitor information.

Today is {{.Today}} ({{.Weekday}}).
{{- if .HasAudio}}
An audio recording of the conversation is attached.
{{- end}}
{{- if .HasText}}
A written memo from the representative follows the instructions.
{{- end}}

Write every value in {{.OutputLanguage}}.
{{- if .JapaneseOutput}} Use the plain written style (da/dearu), not the polite desu/masu style.{{end}}
Do not copy sentences between fields. Each field covers its own topic.

Fields:
- activity_type: exactly one label from the activity catalog below.
- action_date: the date the activity took place as YYYY-MM-DD. Use {{.Today}} when nothing indicates otherwise.
- meeting_summary: a concise summary of what was discussed and agreed.
- current_issues: problems or concerns the customer raised. Leave empty when none were mentioned.
- competitor_info: facts about named competitors of {{.Organization}} only: their products, prices and activity at this customer. General market or industry commentary does not belong here. Leave empty when no competitor was mentioned.
- next_action: one concrete action phrased as an instruction, at most 50 characters. Not a goal such as "build trust".
- next_action_date: the date of the next action as YYYY-MM-DD. Leave empty when no date was mentioned.
- next_activity_type: the label from the activity catalog that best fits the next action. Leave empty when unclear.

For current_issues, competitor_info, next_action_date and next_activity_type an empty string "" is the only way to express absence.
Never write placeholder words such as "none", "N/A", "-", "なし" or "特になし".

Relative dates resolve against today ({{.Today}}): "tomorrow" is the day after today, "next Monday" is the first Monday after today,
and a bare day of the month is the next occurrence of that day on or after today.

Activity catalog:
Visit family (in person), ordered by conversation depth:
{{- range .VisitActivities}}
- {{.Label}}{{if .Description}}: {{.Description}}{{end}}
{{- end}}
Remote family (phone, email, online), ordered by conversation depth:
{{- range .RemoteActivities}}
- {{.Label}}{{if .Description}}: {{.Description}}{{end}}
{{- end}}

Choosing activity_type:
{{- if .HasAudio}}
1. A recording is attached, so the activity is most likely a visit. Prefer the visit family unless the conversation is clearly a phone call or online meeting.
{{- else}}
1. There is no recording. Look for cue words. Visit cues: {{quote .VisitCues}}. Remote cues: {{quote .RemoteCues}}.
   Pick the family whose cues appear. When neither appears, prefer the visit family.
{{- end}}
2. Within the family, pick the label whose stage matches how far the conversation went.
   For example, presenting a quotation means the quotation stage, and signing or closing means the closing stage.

Return only a JSON object in this form:
{{fence}}json
{
  "activity_type": "",
  "action_date": "{{.Today}}",
  "meeting_summary": "",
  "current_issues": "",
  "competitor_info": "",
  "next_action": "",
  "next_action_date": "",
  "next_activity_type": ""
}
{{fence}}
`

const qnaInstructionText = `You extract question and answer pairs from a sales conversation.
{{- if .HasAudio}}
An audio recording of the conversation is attached.
{{- end}}
{{- if .HasText}}
A written memo follows the instructions.
{{- end}}

Rules:
- Keep the pairs in the order they occur in the conversation.
- Skip greetings, small talk and other exchanges that carry no business content.
- Replace personal and company names with generic descriptions such as "the customer" or "a competitor".
- Write every question and answer in {{.OutputLanguage}}.
- When the conversation has no usable pairs, return an empty array [].

Return only a JSON array in this form:
{{fence}}json
[
  {"question": "", "answer": ""}
]
{{fence}}
`
