package extraction

// Activity record field keys, as emitted by the extraction service.
const (
	FieldActivityType     = "activity_type"
	FieldActionDate       = "action_date"
	FieldMeetingSummary   = "meeting_summary"
	FieldCurrentIssues    = "current_issues"
	FieldCompetitorInfo   = "competitor_info"
	FieldNextAction       = "next_action"
	FieldNextActionDate   = "next_action_date"
	FieldNextActivityType = "next_activity_type"
)

// reportFields lists the activity record keys in output order.
var reportFields = []string{
	FieldActivityType,
	FieldActionDate,
	FieldMeetingSummary,
	FieldCurrentIssues,
	FieldCompetitorInfo,
	FieldNextAction,
	FieldNextActionDate,
	FieldNextActivityType,
}

// ActivityRecord is the structured result of activity_report mode. Every
// field is a string; an empty string means the source carried no signal.
type ActivityRecord struct {
	ActivityType     string `json:"activity_type"`
	ActionDate       string `json:"action_date"`
	MeetingSummary   string `json:"meeting_summary"`
	CurrentIssues    string `json:"current_issues"`
	CompetitorInfo   string `json:"competitor_info"`
	NextAction       string `json:"next_action"`
	NextActionDate   string `json:"next_action_date"`
	NextActivityType string `json:"next_activity_type"`
}

func (r *ActivityRecord) field(key string) *string {
	switch key {
	case FieldActivityType:
		return &r.ActivityType
	case FieldActionDate:
		return &r.ActionDate
	case FieldMeetingSummary:
		return &r.MeetingSummary
	case FieldCurrentIssues:
		return &r.CurrentIssues
	case FieldCompetitorInfo:
		return &r.CompetitorInfo
	case FieldNextAction:
		return &r.NextAction
	case FieldNextActionDate:
		return &r.NextActionDate
	case FieldNextActivityType:
		return &r.NextActivityType
	}
	return nil
}

// QnaPair is one question and its answer.
type QnaPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QnaRecord holds pairs in order of occurrence in the source.
type QnaRecord []QnaPair

// Extracted is a parsed reply. Exactly one of Report or QnA is meaningful,
// depending on Mode.
type Extracted struct {
	Mode   Mode            `json:"mode"`
	Report *ActivityRecord `json:"report,omitempty"`
	QnA    QnaRecord       `json:"qna,omitempty"`
}
