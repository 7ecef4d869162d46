package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmail/sparkmail/internal/database"
	"github.com/sparkmail/sparkmail/internal/model"
)

var sendRecordColumns = []string{
	"id", "request_id", "transmission_id", "campaign_id", "status",
	"accepted", "rejected", "recipients", "stored_list", "errors", "created_at",
}

func newMockRepo(t *testing.T) (*SendRecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSendRecordRepository(&database.Postgres{DB: db}), mock
}

func strPtr(s string) *string { return &s }

func TestSendRecordRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := &model.SendRecord{
		ID:             "6f1c5a64-9f43-4d0e-8d7b-0f0e5a9c2b11",
		RequestID:      "req-1",
		TransmissionID: strPtr("tx-1"),
		Status:         model.SendStatusAccepted,
		Accepted:       2,
		Rejected:       1,
		Recipients:     3,
		CreatedAt:      time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO send_records")).
		WithArgs(rec.ID, "req-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "accepted",
			int64(2), int64(1), 3, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRecordRepository_CreateWrapsError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO send_records")).WillReturnError(boom)

	err := repo.Create(context.Background(), &model.SendRecord{ID: "x", Status: model.SendStatusFailed})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to create send record")
}

func TestSendRecordRepository_Recent(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC().Truncate(time.Second)

	rows := sqlmock.NewRows(sendRecordColumns).
		AddRow("b", "req-b", nil, nil, "failed", int64(0), int64(0), 1, "newsletter", []byte(`{"bad address","quota"}`), now).
		AddRow("a", "req-a", "tx-a", "spring", "accepted", int64(4), int64(0), 4, nil, []byte(`{}`), now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM send_records")).
		WithArgs(2).
		WillReturnRows(rows)

	records, err := repo.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "b", records[0].ID)
	assert.Nil(t, records[0].TransmissionID)
	require.NotNil(t, records[0].StoredList)
	assert.Equal(t, "newsletter", *records[0].StoredList)
	assert.Equal(t, []string{"bad address", "quota"}, records[0].Errors)

	require.NotNil(t, records[1].TransmissionID)
	assert.Equal(t, "tx-a", *records[1].TransmissionID)
	assert.Equal(t, "spring", *records[1].CampaignID)
	assert.Equal(t, uint64(4), records[1].Accepted)
	assert.Empty(t, records[1].Errors)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRecordRepository_RecentInvalidLimit(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.Recent(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
