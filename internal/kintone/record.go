package kintone

import (
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/submission"
)

// Field is one record field in Kintone's REST envelope.
type Field struct {
	Value any `json:"value"`
}

// Record maps field codes to values.
type Record map[string]Field

type userCode struct {
	Code string `json:"code"`
}

type fileRef struct {
	FileKey string `json:"fileKey"`
}

// BuildRecord maps a submission record to field codes. Scalars become
// {"value": ...}, the operator a user selection ([] when unresolved), and
// attachments a file list that is left out entirely when empty. Fields with
// no configured code are skipped.
func BuildRecord(rec submission.Record, fields masterdata.FieldCodes) Record {
	out := Record{}
	scalar := func(code, value string) {
		if code != "" {
			out[code] = Field{Value: value}
		}
	}
	scalar(fields.ClientID, rec.ClientID)
	scalar(fields.ActivityType, rec.ActivityType)
	scalar(fields.ActionDate, rec.ActionDate)
	scalar(fields.MeetingSummary, rec.MeetingSummary)
	scalar(fields.CurrentIssues, rec.CurrentIssues)
	scalar(fields.CompetitorInfo, rec.CompetitorInfo)
	scalar(fields.NextAction, rec.NextAction)
	scalar(fields.NextActionDate, rec.NextActionDate)
	scalar(fields.NextActivityType, rec.NextActivityType)

	if fields.Operator != "" {
		users := []userCode{}
		if rec.OperatorCode != "" {
			users = append(users, userCode{Code: rec.OperatorCode})
		}
		out[fields.Operator] = Field{Value: users}
	}

	if fields.Attachments != "" && len(rec.AttachmentKeys) > 0 {
		files := make([]fileRef, 0, len(rec.AttachmentKeys))
		for _, k := range rec.AttachmentKeys {
			files = append(files, fileRef{FileKey: k})
		}
		out[fields.Attachments] = Field{Value: files}
	}
	return out
}
