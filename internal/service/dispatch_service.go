package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	sparkpost "github.com/sparkmail/sparkmail/sdk/go"

	"github.com/sparkmail/sparkmail/internal/logger"
	"github.com/sparkmail/sparkmail/internal/model"
)

// Dispatch service errors
var (
	ErrNoSendLog = errors.New("no send log configured")
)

// DefaultHistoryLimit is used when History is called with a non-positive limit
const DefaultHistoryLimit = 20

// Sender delivers a message to the provider
type Sender interface {
	Send(ctx context.Context, msg *sparkpost.Message) (sparkpost.TransmissionResponse, error)
}

// SendLog stores dispatch outcomes
type SendLog interface {
	Create(ctx context.Context, rec *model.SendRecord) error
	Recent(ctx context.Context, limit int) ([]model.SendRecord, error)
}

// DispatchService sends messages and records what happened to them
type DispatchService struct {
	sender Sender
	store  SendLog
	log    *logger.Logger
	now    func() time.Time
}

// NewDispatchService creates a new DispatchService. store may be nil, in
// which case outcomes are only logged.
func NewDispatchService(sender Sender, store SendLog, log *logger.Logger) *DispatchService {
	return &DispatchService{
		sender: sender,
		store:  store,
		log:    log.WithComponent("dispatch_service"),
		now:    time.Now,
	}
}

// Dispatch sends msg and records the outcome. The returned response and
// error are exactly what the sender produced.
func (s *DispatchService) Dispatch(ctx context.Context, msg *sparkpost.Message) (sparkpost.TransmissionResponse, error) {
	requestID := uuid.New().String()
	log := s.log.WithRequestID(requestID)

	start := s.now()
	resp, sendErr := s.sender.Send(ctx, msg)
	elapsed := s.now().Sub(start)

	rec := newSendRecord(requestID, msg, resp, sendErr, start)

	if sendErr != nil {
		log.Error().Err(sendErr).Dur("duration", elapsed).Msg("transmission failed")
	} else {
		log.Transmission(rec.Status, lo.FromPtr(rec.TransmissionID), lo.FromPtr(rec.CampaignID), rec.Accepted, rec.Rejected, elapsed)
	}

	if s.store != nil {
		if err := s.store.Create(ctx, rec); err != nil {
			log.Error().Err(err).Str("record_id", rec.ID).Msg("failed to record send")
		}
	}

	return resp, sendErr
}

// History returns up to limit send records, newest first
func (s *DispatchService) History(ctx context.Context, limit int) ([]model.SendRecord, error) {
	if s.store == nil {
		return nil, ErrNoSendLog
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.store.Recent(ctx, limit)
}

func newSendRecord(requestID string, msg *sparkpost.Message, resp sparkpost.TransmissionResponse, sendErr error, at time.Time) *model.SendRecord {
	rec := &model.SendRecord{
		ID:        uuid.New().String(),
		RequestID: requestID,
		CreatedAt: at.UTC(),
	}

	if msg != nil {
		if id := msg.CampaignID(); id != "" {
			rec.CampaignID = lo.ToPtr(id)
		}
		switch r := msg.Recipients().(type) {
		case sparkpost.StoredList:
			rec.StoredList = lo.ToPtr(string(r))
		default:
			rec.Recipients = r.Len()
		}
	}

	if sendErr != nil {
		rec.Status = model.SendStatusFailed
		rec.Errors = []string{sendErr.Error()}
		return rec
	}

	switch r := resp.(type) {
	case *sparkpost.Success:
		rec.Status = model.SendStatusAccepted
		rec.Accepted = r.AcceptedCount
		rec.Rejected = r.RejectedCount
		if r.ID != "" {
			rec.TransmissionID = lo.ToPtr(r.ID)
		}
	case *sparkpost.Failure:
		rec.Status = model.SendStatusRejected
		rec.Errors = lo.Map(r.Errors, func(e sparkpost.APIError, _ int) string {
			return e.String()
		})
	}
	return rec
}
