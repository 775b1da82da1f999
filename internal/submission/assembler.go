package submission

import (
	"strings"

	"github.com/wolfman30/visit-report-ai/internal/extraction"
)

// ClientContext identifies the CRM customer the visit belongs to.
// DisplayName is shown to the operator and never sent to the CRM.
type ClientContext struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// Roster resolves an operator's display name to a CRM user code.
type Roster interface {
	Resolve(name string) (string, bool)
}

// UploadResult is the outcome of uploading one attachment.
type UploadResult struct {
	Name    string
	FileKey string
	Err     error
}

// Record is the sanitized submission payload. Build it with Assemble and do
// not modify it afterwards.
type Record struct {
	ActivityType     string `json:"activity_type"`
	ActionDate       string `json:"action_date"`
	MeetingSummary   string `json:"meeting_summary"`
	CurrentIssues    string `json:"current_issues"`
	CompetitorInfo   string `json:"competitor_info"`
	NextAction       string `json:"next_action"`
	NextActionDate   string `json:"next_action_date"`
	NextActivityType string `json:"next_activity_type"`

	ClientID          string `json:"client_id"`
	ClientDisplayName string `json:"client_display_name"`

	OperatorName string `json:"operator_name"`
	OperatorCode string `json:"operator_code"`

	AttachmentKeys []string         `json:"attachment_keys"`
	Misses         []ResolutionMiss `json:"misses,omitempty"`
}

// Assemble builds the submission record. It never fails: an operator missing
// from the roster leaves OperatorCode empty and is reported in Misses, and
// failed uploads are skipped.
func Assemble(extracted extraction.ActivityRecord, client *ClientContext, operatorName string, roster Roster, uploads []UploadResult) Record {
	rec := Record{
		ActivityType:     Sanitize(extracted.ActivityType),
		ActionDate:       Sanitize(extracted.ActionDate),
		MeetingSummary:   Sanitize(extracted.MeetingSummary),
		CurrentIssues:    Sanitize(extracted.CurrentIssues),
		CompetitorInfo:   Sanitize(extracted.CompetitorInfo),
		NextAction:       Sanitize(extracted.NextAction),
		NextActionDate:   Sanitize(extracted.NextActionDate),
		NextActivityType: Sanitize(extracted.NextActivityType),
		OperatorName:     Sanitize(operatorName),
		AttachmentKeys:   []string{},
	}

	if client != nil {
		rec.ClientID = Sanitize(client.ID)
		rec.ClientDisplayName = Sanitize(client.DisplayName)
	}

	if rec.OperatorName != "" && roster != nil {
		if code, ok := roster.Resolve(rec.OperatorName); ok {
			rec.OperatorCode = strings.TrimSpace(code)
		} else {
			rec.Misses = append(rec.Misses, ResolutionMiss{Name: rec.OperatorName})
		}
	}

	for _, u := range uploads {
		if u.Err != nil {
			continue
		}
		if key := strings.TrimSpace(u.FileKey); key != "" {
			rec.AttachmentKeys = append(rec.AttachmentKeys, key)
		}
	}
	return rec
}
