package submissionlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("INSERT INTO submission_log").
		WithArgs(id, StatusOK, "101", "1", "", "佐藤 健一", "k.sato", "C-001", "提案訪問", "2024-05-15", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStore(mock)
	err = store.Append(context.Background(), Entry{
		ID:              id,
		Status:          StatusOK,
		CRMRecordID:     "101",
		CRMRevision:     "1",
		OperatorName:    "佐藤 健一",
		OperatorCode:    "k.sato",
		ClientID:        "C-001",
		ActivityType:    "提案訪問",
		ActionDate:      "2024-05-15",
		AttachmentCount: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendGeneratesID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO submission_log").
		WithArgs(pgxmock.AnyArg(), StatusFailed, "", "", "GAIA_IL01", "", "", "", "", "", 0).
		WillReturnError(errors.New("connection reset"))

	err = NewStore(mock).Append(context.Background(), Entry{Status: StatusFailed, ErrorDetail: "GAIA_IL01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendRequiresStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Error(t, NewStore(mock).Append(context.Background(), Entry{}))
}

func TestStore_Recent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Date(2024, 5, 15, 1, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "status", "crm_record_id", "crm_revision", "error_detail",
		"operator_name", "operator_code", "client_id", "activity_type", "action_date",
		"attachment_count", "created_at",
	}).AddRow(id, StatusOK, "101", "1", "", "佐藤 健一", "k.sato", "C-001", "提案訪問", "2024-05-15", 1, created)

	mock.ExpectQuery("SELECT (.+) FROM submission_log").WithArgs(defaultRecentLimit).WillReturnRows(rows)

	got, err := NewStore(mock).Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "101", got[0].CRMRecordID)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
