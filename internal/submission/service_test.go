package submission

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/visit-report-ai/internal/extraction"
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/observability/metrics"
	"github.com/wolfman30/visit-report-ai/internal/submissionlog"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

type fakeCRM struct {
	uploads   map[string]string
	uploadErr map[string]error
	submitted []Record
	submitErr error
}

func (f *fakeCRM) UploadFile(_ context.Context, name string, r io.Reader) (string, error) {
	if err := f.uploadErr[name]; err != nil {
		return "", err
	}
	data, _ := io.ReadAll(r)
	if f.uploads == nil {
		f.uploads = map[string]string{}
	}
	f.uploads[name] = string(data)
	return "fk-" + name, nil
}

func (f *fakeCRM) Submit(_ context.Context, rec Record) (Receipt, error) {
	f.submitted = append(f.submitted, rec)
	if f.submitErr != nil {
		return Receipt{}, f.submitErr
	}
	return Receipt{ID: "101", Revision: "1"}, nil
}

type fakeSource map[string]string

func (s fakeSource) Open(_ context.Context, id string) (io.ReadCloser, error) {
	data, ok := s[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

type fakeJournal struct {
	entries []submissionlog.Entry
	err     error
}

func (j *fakeJournal) Append(_ context.Context, e submissionlog.Entry) error {
	j.entries = append(j.entries, e)
	return j.err
}

type detailErr struct{ body string }

func (e *detailErr) Error() string  { return "kintone: API returned 400" }
func (e *detailErr) Detail() string { return e.body }

func newService(crm CRM, src AttachmentSource, journal Journal) *Service {
	roster := masterdata.NewRoster(map[string]string{"佐藤 健一": "k.sato"})
	return NewService(crm, roster, logging.Discard(),
		WithAttachments(src),
		WithJournal(journal),
		WithMetrics(metrics.NewPipelineMetrics(prometheus.NewRegistry())),
	)
}

func TestService_Submit(t *testing.T) {
	crm := &fakeCRM{}
	journal := &fakeJournal{}
	svc := newService(crm, fakeSource{"rec-1.m4a": "audio"}, journal)

	outcome, err := svc.Submit(context.Background(), Request{
		Report:       extraction.ActivityRecord{MeetingSummary: "説明した", NextActionDate: "2024-06-03"},
		Client:       &ClientContext{ID: "C-001", DisplayName: "ミナト商事"},
		OperatorName: "佐藤 健一",
		RecordingIDs: []string{"rec-1.m4a", ""},
	})
	require.NoError(t, err)
	assert.True(t, outcome.OK)
	assert.Equal(t, "101", outcome.CRMRecordID)
	assert.Empty(t, outcome.AttachmentFailures)

	require.Len(t, crm.submitted, 1)
	rec := crm.submitted[0]
	assert.Equal(t, []string{"fk-rec-1.m4a"}, rec.AttachmentKeys)
	assert.Equal(t, "k.sato", rec.OperatorCode)
	assert.Equal(t, "2024-06-03", rec.NextActionDate)
	assert.Equal(t, "audio", crm.uploads["rec-1.m4a"])

	require.Len(t, journal.entries, 1)
	assert.Equal(t, submissionlog.StatusOK, journal.entries[0].Status)
	assert.Equal(t, 1, journal.entries[0].AttachmentCount)
}

func TestService_AttachmentFailureContinues(t *testing.T) {
	crm := &fakeCRM{uploadErr: map[string]error{"rec-2.mp3": errors.New("413 too large")}}
	svc := newService(crm, fakeSource{"rec-2.mp3": "audio"}, nil)

	outcome, err := svc.Submit(context.Background(), Request{
		Report:       extraction.ActivityRecord{MeetingSummary: "x"},
		RecordingIDs: []string{"rec-2.mp3", "missing.mp3"},
	})
	require.NoError(t, err)
	assert.True(t, outcome.OK)
	assert.Len(t, outcome.AttachmentFailures, 2)
	assert.Empty(t, crm.submitted[0].AttachmentKeys)
}

func TestService_NoAttachmentSource(t *testing.T) {
	crm := &fakeCRM{}
	svc := NewService(crm, masterdata.NewRoster(nil), logging.Discard())

	outcome, err := svc.Submit(context.Background(), Request{RecordingIDs: []string{"rec.mp3"}})
	require.NoError(t, err)
	require.Len(t, outcome.AttachmentFailures, 1)
}

func TestService_CRMRejection(t *testing.T) {
	body := `{"code":"CB_VA01","message":"入力内容が正しくありません。"}`
	crm := &fakeCRM{submitErr: &detailErr{body: body}}
	journal := &fakeJournal{err: errors.New("db down")}
	svc := newService(crm, fakeSource{}, journal)

	outcome, err := svc.Submit(context.Background(), Request{
		Report:       extraction.ActivityRecord{MeetingSummary: "x"},
		OperatorName: "未登録 太郎",
	})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "kintone", upstream.Service)
	assert.Equal(t, body, upstream.Detail)

	assert.False(t, outcome.OK)
	assert.Equal(t, body, outcome.ErrorDetail)
	assert.Empty(t, outcome.Record.OperatorCode)
	require.Len(t, journal.entries, 1)
	assert.Equal(t, submissionlog.StatusFailed, journal.entries[0].Status)
	assert.Len(t, crm.submitted, 1, "submission is attempted once")
}

func TestService_TransportErrorDetail(t *testing.T) {
	crm := &fakeCRM{submitErr: errors.New("dial tcp: i/o timeout")}
	svc := newService(crm, fakeSource{}, nil)

	outcome, err := svc.Submit(context.Background(), Request{Report: extraction.ActivityRecord{MeetingSummary: "x"}})
	require.Error(t, err)
	assert.Equal(t, "dial tcp: i/o timeout", outcome.ErrorDetail)
}
