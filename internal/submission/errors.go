package submission

import (
	"errors"
	"fmt"
)

var errNoAttachmentSource = errors.New("submission: no recording store configured")

// ResolutionMiss records an operator name that is not on the roster. It is
// informational: the record is still submitted without an operator code.
type ResolutionMiss struct {
	Name string `json:"name"`
}

func (m ResolutionMiss) Error() string {
	return fmt.Sprintf("submission: operator %q is not on the roster", m.Name)
}

// UpstreamError wraps a CRM or storage failure. Detail carries the verbatim
// server text when there is one, for display to the operator.
type UpstreamError struct {
	Service string
	Detail  string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("submission: %s failed: %v: %s", e.Service, e.Err, e.Detail)
	}
	return fmt.Sprintf("submission: %s failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// detailer is implemented by CRM errors that carry a server response body.
type detailer interface {
	Detail() string
}

func upstream(service string, err error) *UpstreamError {
	out := &UpstreamError{Service: service, Err: err}
	var d detailer
	if errors.As(err, &d) {
		out.Detail = d.Detail()
	}
	return out
}
