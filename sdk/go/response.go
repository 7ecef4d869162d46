package sparkpost

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TransmissionResponse is the decoded provider reply to a send. It is either
// *Success or *Failure:
//
//	switch r := resp.(type) {
//	case *sparkpost.Success:
//		log.Printf("accepted %d", r.AcceptedCount)
//	case *sparkpost.Failure:
//		log.Printf("rejected: %v", r)
//	}
type TransmissionResponse interface {
	isTransmissionResponse()
}

// Success is returned when the provider accepted the transmission.
type Success struct {
	AcceptedCount uint64 `json:"total_accepted_recipients"`
	RejectedCount uint64 `json:"total_rejected_recipients"`
	ID            string `json:"id"`
}

func (*Success) isTransmissionResponse() {}

// APIError is one entry of a provider error list.
type APIError struct {
	Description *string `json:"description,omitempty"`
	Code        *string `json:"code,omitempty"`
	Message     *string `json:"message,omitempty"`
}

func (e APIError) String() string {
	var parts []string
	if e.Code != nil {
		parts = append(parts, "["+*e.Code+"]")
	}
	if e.Message != nil {
		parts = append(parts, *e.Message)
	}
	if e.Description != nil {
		parts = append(parts, "("+*e.Description+")")
	}
	return strings.Join(parts, " ")
}

// Failure is the provider's considered refusal of a request: invalid
// recipients, unknown template, exhausted quota and so on. Send returns it as
// a normal result. Lookups that have no business result return it as an error.
type Failure struct {
	Errors []APIError
}

func (*Failure) isTransmissionResponse() {}

// Error implements error.
func (f *Failure) Error() string {
	msgs := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		msgs = append(msgs, e.String())
	}
	return fmt.Sprintf("sparkpost: request rejected: %s", strings.Join(msgs, "; "))
}

// DecodeResponse decodes a provider reply. A "results" object yields *Success,
// an "errors" array yields *Failure, and anything else is reported as a
// *MalformedResponseError.
func DecodeResponse(body []byte) (TransmissionResponse, error) {
	results, failure, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}

	var w successWire
	if err := json.Unmarshal(results, &w); err != nil {
		return nil, malformed(body, "results does not match the transmission result shape", err)
	}
	if w.AcceptedCount == nil || w.RejectedCount == nil || w.ID == nil {
		return nil, malformed(body, "results does not match the transmission result shape", nil)
	}
	return &Success{
		AcceptedCount: *w.AcceptedCount,
		RejectedCount: *w.RejectedCount,
		ID:            *w.ID,
	}, nil
}

// successWire requires every field of a transmission result to be present.
type successWire struct {
	AcceptedCount *uint64 `json:"total_accepted_recipients"`
	RejectedCount *uint64 `json:"total_rejected_recipients"`
	ID            *string `json:"id"`
}

// decodeEnvelope splits a reply into its raw results or its error list.
// Exactly one of results and failure is set when err is nil.
func decodeEnvelope(body []byte) (json.RawMessage, *Failure, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, malformed(body, "reply is not a JSON object", err)
	}

	if results, ok := envelope["results"]; ok {
		if isNull(results) {
			return nil, nil, malformed(body, "results is null", nil)
		}
		return results, nil, nil
	}

	if raw, ok := envelope["errors"]; ok {
		if isNull(raw) {
			return nil, nil, malformed(body, "errors is null", nil)
		}
		var errs []APIError
		if err := json.Unmarshal(raw, &errs); err != nil {
			return nil, nil, malformed(body, "errors is not a list of error objects", err)
		}
		return nil, &Failure{Errors: errs}, nil
	}

	return nil, nil, malformed(body, "reply has neither results nor errors", nil)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func malformed(body []byte, reason string, err error) *MalformedResponseError {
	return &MalformedResponseError{
		Body:   string(body),
		Reason: reason,
		Err:    err,
	}
}
