package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sparkpost "github.com/sparkmail/sparkmail/sdk/go"

	"github.com/sparkmail/sparkmail/internal/logger"
	"github.com/sparkmail/sparkmail/internal/model"
)

type fakeSender struct {
	resp sparkpost.TransmissionResponse
	err  error
	sent []*sparkpost.Message
}

func (f *fakeSender) Send(_ context.Context, msg *sparkpost.Message) (sparkpost.TransmissionResponse, error) {
	f.sent = append(f.sent, msg)
	return f.resp, f.err
}

type fakeSendLog struct {
	mu        sync.Mutex
	records   []model.SendRecord
	createErr error
}

func (f *fakeSendLog) Create(_ context.Context, rec *model.SendRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append([]model.SendRecord{*rec}, f.records...)
	return nil
}

func (f *fakeSendLog) Recent(_ context.Context, limit int) ([]model.SendRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[:min(limit, len(f.records))], nil
}

func testLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.NewWithWriter(buf, "debug", "json")
}

func testMessage() *sparkpost.Message {
	return sparkpost.NewMessage(sparkpost.AddressOf("from@example.com")).
		SetSubject("hi").
		SetCampaignID("spring").
		AddRecipient(sparkpost.NewRecipient("a@example.com")).
		AddRecipient(sparkpost.NewRecipient("b@example.com"))
}

func TestDispatch_Accepted(t *testing.T) {
	var buf bytes.Buffer
	sender := &fakeSender{resp: &sparkpost.Success{AcceptedCount: 2, ID: "tx-1"}}
	store := &fakeSendLog{}
	svc := NewDispatchService(sender, store, testLogger(&buf))

	resp, err := svc.Dispatch(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, sender.resp, resp)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, model.SendStatusAccepted, rec.Status)
	assert.Equal(t, uint64(2), rec.Accepted)
	assert.Equal(t, "tx-1", lo.FromPtr(rec.TransmissionID))
	assert.Equal(t, "spring", lo.FromPtr(rec.CampaignID))
	assert.Equal(t, 2, rec.Recipients)
	assert.NotEmpty(t, rec.ID)
	assert.NotEmpty(t, rec.RequestID)
	assert.Empty(t, rec.Errors)

	assert.Contains(t, buf.String(), `"transmission_id":"tx-1"`)
	assert.Contains(t, buf.String(), rec.RequestID)
}

func TestDispatch_Rejected(t *testing.T) {
	sender := &fakeSender{resp: &sparkpost.Failure{Errors: []sparkpost.APIError{
		{Message: lo.ToPtr("invalid recipient"), Code: lo.ToPtr("1100")},
	}}}
	store := &fakeSendLog{}
	svc := NewDispatchService(sender, store, testLogger(&bytes.Buffer{}))

	resp, err := svc.Dispatch(context.Background(), testMessage())
	require.NoError(t, err)
	assert.IsType(t, &sparkpost.Failure{}, resp)

	rec := store.records[0]
	assert.Equal(t, model.SendStatusRejected, rec.Status)
	assert.Nil(t, rec.TransmissionID)
	assert.Equal(t, []string{"[1100] invalid recipient"}, rec.Errors)
}

func TestDispatch_TransportFailure(t *testing.T) {
	boom := &sparkpost.TransportError{Op: "send", Err: errors.New("connection refused")}
	sender := &fakeSender{err: boom}
	store := &fakeSendLog{}
	svc := NewDispatchService(sender, store, testLogger(&bytes.Buffer{}))

	resp, err := svc.Dispatch(context.Background(), testMessage())
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, boom)

	rec := store.records[0]
	assert.Equal(t, model.SendStatusFailed, rec.Status)
	require.Len(t, rec.Errors, 1)
	assert.Contains(t, rec.Errors[0], "connection refused")
}

func TestDispatch_StoreErrorDoesNotMaskResult(t *testing.T) {
	var buf bytes.Buffer
	sender := &fakeSender{resp: &sparkpost.Success{AcceptedCount: 1, ID: "tx-2"}}
	store := &fakeSendLog{createErr: errors.New("disk full")}
	svc := NewDispatchService(sender, store, testLogger(&buf))

	resp, err := svc.Dispatch(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "tx-2", resp.(*sparkpost.Success).ID)
	assert.Contains(t, buf.String(), "failed to record send")
	assert.Contains(t, buf.String(), "disk full")
}

func TestDispatch_StoredList(t *testing.T) {
	sender := &fakeSender{resp: &sparkpost.Success{AcceptedCount: 40}}
	store := &fakeSendLog{}
	svc := NewDispatchService(sender, store, testLogger(&bytes.Buffer{}))

	msg := sparkpost.NewMessage(sparkpost.AddressOf("from@example.com")).SetStoredRecipientList("newsletter")
	_, err := svc.Dispatch(context.Background(), msg)
	require.NoError(t, err)

	rec := store.records[0]
	assert.Equal(t, "newsletter", lo.FromPtr(rec.StoredList))
	assert.Zero(t, rec.Recipients)
	assert.Nil(t, rec.CampaignID)
	assert.Nil(t, rec.TransmissionID)
}

func TestDispatch_WithoutStore(t *testing.T) {
	sender := &fakeSender{resp: &sparkpost.Success{AcceptedCount: 1}}
	svc := NewDispatchService(sender, nil, testLogger(&bytes.Buffer{}))

	_, err := svc.Dispatch(context.Background(), testMessage())
	require.NoError(t, err)

	_, err = svc.History(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoSendLog)
}

func TestHistory_NewestFirstAndDefaultLimit(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeSendLog{}
	svc := NewDispatchService(sender, store, testLogger(&bytes.Buffer{}))

	for _, id := range []string{"tx-a", "tx-b", "tx-c"} {
		sender.resp = &sparkpost.Success{AcceptedCount: 1, ID: id}
		_, err := svc.Dispatch(context.Background(), testMessage())
		require.NoError(t, err)
	}

	records, err := svc.History(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "tx-c", lo.FromPtr(records[0].TransmissionID))
	assert.Equal(t, "tx-b", lo.FromPtr(records[1].TransmissionID))

	records, err = svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
