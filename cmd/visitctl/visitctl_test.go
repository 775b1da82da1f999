package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/visit-report-ai/internal/config"
	"github.com/wolfman30/visit-report-ai/internal/llm"
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/submission"
	"github.com/wolfman30/visit-report-ai/internal/submissionlog"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

type scriptedLLM struct {
	reply string
	req   llm.Request
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.req = req
	return llm.Response{Text: s.reply}, nil
}

type recordingCRM struct {
	submitted []submission.Record
	err       error
}

func (c *recordingCRM) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	return "fk-" + name, nil
}

func (c *recordingCRM) Submit(ctx context.Context, rec submission.Record) (submission.Receipt, error) {
	c.submitted = append(c.submitted, rec)
	if c.err != nil {
		return submission.Receipt{}, c.err
	}
	return submission.Receipt{ID: "501", Revision: "1"}, nil
}

type fakeHistory struct {
	entries []submissionlog.Entry
	limit   int
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]submissionlog.Entry, error) {
	f.limit = limit
	return f.entries, nil
}

func testEnv(t *testing.T) *env {
	t.Helper()
	return &env{
		cfg: &appconfig.Config{Timezone: "Asia/Tokyo", ExtractionTimeout: time.Minute, KintoneAppID: 7},
		fs:  afero.NewMemMapFs(),
		now: func() time.Time {
			return time.Date(2024, 5, 15, 10, 0, 0, 0, extractionLocation(t))
		},
		logger: logging.Discard(),
		newLLM: func(ctx context.Context, cfg *appconfig.Config) (llm.Client, func(), error) {
			return nil, func() {}, errors.New("no llm configured")
		},
		newCRM: func(cfg *appconfig.Config, master *masterdata.Data, logger *logging.Logger) (submission.CRM, error) {
			return nil, errors.New("no crm configured")
		},
		openHistory: func(ctx context.Context, cfg *appconfig.Config) (historySource, func(), error) {
			return nil, func() {}, errors.New("no database")
		},
	}
}

func extractionLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func execute(t *testing.T, e *env, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(e)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFollowUpCommand(t *testing.T) {
	e := testEnv(t)

	out, err := execute(t, e, "followup", "--base", "2024-05-16")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20\n", out, "Thursday plus three lands on Sunday and moves to Monday")

	out, err = execute(t, e, "followup", "--base", "2024年5月17日")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20\n", out)

	out, err = execute(t, e, "followup")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20\n", out, "anchors on today (Wednesday) when base is empty")
}

func TestOptionsCommand(t *testing.T) {
	e := testEnv(t)

	out, err := execute(t, e, "options")
	require.NoError(t, err)
	assert.Contains(t, out, "activities:")
	assert.Contains(t, out, "crm_fields:")

	out, err = execute(t, e, "options", "--format", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))

	_, err = execute(t, e, "options", "--format", "xml")
	assert.Error(t, err)
}

func TestExtractCommand(t *testing.T) {
	e := testEnv(t)
	client := &scriptedLLM{reply: "```json\n{\"activity_type\":\"初回訪問\",\"action_date\":\"2024/05/15\",\"meeting_summary\":\"会社紹介を実施した。\",\"current_issues\":\"\",\"competitor_info\":\"\",\"next_action\":\"見積を送付する。\",\"next_action_date\":\"\",\"next_activity_type\":\"見積提示訪問\"}\n```"}
	e.newLLM = func(ctx context.Context, cfg *appconfig.Config) (llm.Client, func(), error) {
		return client, func() {}, nil
	}
	require.NoError(t, afero.WriteFile(e.fs, "notes.txt", []byte("訪問メモ"), 0o644))
	require.NoError(t, afero.WriteFile(e.fs, "visit.m4a", []byte("audio"), 0o644))

	out, err := execute(t, e, "extract", "--text-file", "notes.txt", "--audio", "visit.m4a")
	require.NoError(t, err)

	require.Len(t, client.req.Media, 1)
	assert.Equal(t, "audio/mp4", client.req.Media[0].MIMEType)
	assert.Contains(t, client.req.Prompt, "訪問メモ")

	var result struct {
		Status string            `json:"status"`
		Report map[string]string `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "extracted", result.Status)
	assert.Equal(t, "2024-05-15", result.Report["action_date"])
	assert.Equal(t, "2024-05-20", result.Report["next_action_date"])
}

func TestExtractCommandParseFailure(t *testing.T) {
	e := testEnv(t)
	e.newLLM = func(ctx context.Context, cfg *appconfig.Config) (llm.Client, func(), error) {
		return &scriptedLLM{reply: "I could not hear the recording."}, func() {}, nil
	}

	out, err := execute(t, e, "extract", "--text", "memo")
	assert.ErrorIs(t, err, errParseFailed)
	assert.Contains(t, out, `"parse_failed"`)
}

func TestExtractCommandMissingFile(t *testing.T) {
	_, err := execute(t, testEnv(t), "extract", "--audio", "missing.mp3")
	assert.Error(t, err)
}

const recordJSON = `{
  "activity_type": "初回訪問",
  "action_date": "2024-05-15",
  "meeting_summary": "会社紹介を実施した。",
  "client_id": "C-001",
  "operator_name": "unknown person"
}`

func TestSubmitCommandDryRun(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, afero.WriteFile(e.fs, "record.json", []byte(recordJSON), 0o644))

	out, err := execute(t, e, "submit", "--file", "record.json", "--dry-run")
	require.NoError(t, err)

	var payload struct {
		App    int                       `json:"app"`
		Record map[string]map[string]any `json:"record"`
		Misses []map[string]any          `json:"misses"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, 7, payload.App)
	assert.NotEmpty(t, payload.Record)
	assert.Len(t, payload.Misses, 1)
}

func TestSubmitCommand(t *testing.T) {
	e := testEnv(t)
	crm := &recordingCRM{}
	e.newCRM = func(cfg *appconfig.Config, master *masterdata.Data, logger *logging.Logger) (submission.CRM, error) {
		return crm, nil
	}
	require.NoError(t, afero.WriteFile(e.fs, "record.json", []byte(recordJSON), 0o644))

	out, err := execute(t, e, "submit", "--file", "record.json")
	require.NoError(t, err)
	require.Len(t, crm.submitted, 1)
	assert.Equal(t, "C-001", crm.submitted[0].ClientID)
	assert.Contains(t, out, `"crm_record_id": "501"`)
}

func TestSubmitCommandRejected(t *testing.T) {
	e := testEnv(t)
	e.newCRM = func(cfg *appconfig.Config, master *masterdata.Data, logger *logging.Logger) (submission.CRM, error) {
		return &recordingCRM{err: errors.New("GAIA_IL01")}, nil
	}
	require.NoError(t, afero.WriteFile(e.fs, "record.json", []byte(recordJSON), 0o644))

	out, err := execute(t, e, "submit", "--file", "record.json")
	var upErr *submission.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Contains(t, out, `"ok": false`)
}

func TestSubmitCommandRequiresFile(t *testing.T) {
	_, err := execute(t, testEnv(t), "submit")
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	e := testEnv(t)
	src := &fakeHistory{entries: []submissionlog.Entry{
		{Status: submissionlog.StatusOK, CRMRecordID: "501", OperatorName: "山田 太郎", ClientID: "C-001", ActivityType: "初回訪問", AttachmentCount: 1, CreatedAt: time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)},
		{Status: submissionlog.StatusFailed, OperatorName: "佐藤 花子", ClientID: "C-002", CreatedAt: time.Date(2024, 5, 14, 17, 0, 0, 0, time.UTC)},
	}}
	e.openHistory = func(ctx context.Context, cfg *appconfig.Config) (historySource, func(), error) {
		return src, func() {}, nil
	}

	out, err := execute(t, e, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, src.limit)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "CREATED"))
	assert.Contains(t, lines[1], "501")
	assert.Contains(t, lines[2], " - ")

	out, err = execute(t, e, "history", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestHistoryCommandNeedsDatabase(t *testing.T) {
	_, err := execute(t, testEnv(t), "history")
	assert.Error(t, err)
}

func TestHistoryCommandEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), &fakeHistory{}, &out, &historyFlags{limit: 20}))
	assert.Equal(t, "No submissions recorded.\n", out.String())
}
