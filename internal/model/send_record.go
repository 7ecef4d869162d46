package model

import "time"

// SendRecord is one dispatch attempt kept in the send log
type SendRecord struct {
	ID             string    `json:"id"`
	RequestID      string    `json:"requestId"`
	TransmissionID *string   `json:"transmissionId,omitempty"`
	CampaignID     *string   `json:"campaignId,omitempty"`
	Status         string    `json:"status"`
	Accepted       uint64    `json:"accepted"`
	Rejected       uint64    `json:"rejected"`
	Recipients     int       `json:"recipients"`
	StoredList     *string   `json:"storedList,omitempty"`
	Errors         []string  `json:"errors,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Send record status constants
const (
	SendStatusAccepted = "accepted"
	SendStatusRejected = "rejected"
	SendStatusFailed   = "failed"
)
