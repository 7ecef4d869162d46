package sparkpost

import (
	"encoding/base64"
	"encoding/json"
)

// Address is an email endpoint with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// NewAddress creates an Address with a display name.
func NewAddress(email, name string) Address {
	return Address{Email: email, Name: name}
}

// AddressOf creates an Address from a bare email string.
func AddressOf(email string) Address {
	return Address{Email: email}
}

// Attachment is a named, MIME-typed, base64-encoded blob. Size and encoding
// limits are enforced by the provider, not here.
type Attachment struct {
	// Name of the file, i.e. "invoice.pdf"
	Name string `json:"name"`

	// MIME type, i.e. "application/pdf"
	MIMEType string `json:"type"`

	// Base64 encoded content
	Data string `json:"data"`
}

// NewAttachment creates an Attachment from data that is already base64 encoded.
func NewAttachment(name, mimeType, data string) Attachment {
	return Attachment{Name: name, MIMEType: mimeType, Data: data}
}

// AttachmentFromBytes base64-encodes raw and wraps it in an Attachment.
func AttachmentFromBytes(name, mimeType string, raw []byte) Attachment {
	return Attachment{
		Name:     name,
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}
}

// Recipient pairs an Address with optional per-recipient substitution data.
type Recipient struct {
	Address          Address         `json:"address"`
	SubstitutionData json.RawMessage `json:"substitution_data,omitempty"`
}

// NewRecipient creates a Recipient from a bare email string.
func NewRecipient(email string) Recipient {
	return Recipient{Address: AddressOf(email)}
}

// RecipientFor creates a Recipient for addr without substitution data.
func RecipientFor(addr Address) Recipient {
	return Recipient{Address: addr}
}

// NewRecipientWithData creates a Recipient carrying substitution data. data may
// be any value encoding/json can marshal; otherwise an *EncodingError is returned.
func NewRecipientWithData(addr Address, data any) (Recipient, error) {
	raw, err := encodeValue("substitution_data", data)
	if err != nil {
		return Recipient{}, err
	}
	return Recipient{Address: addr, SubstitutionData: raw}, nil
}

// encodeValue converts an arbitrary value into its wire form. A nil value
// yields a nil RawMessage, which is omitted on the wire.
func encodeValue(field string, v any) (json.RawMessage, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if !json.Valid(val) {
			return nil, &EncodingError{Field: field, Err: errInvalidJSON}
		}
		return append(json.RawMessage(nil), val...), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Field: field, Err: err}
	}
	return data, nil
}

// ScheduledTransmission is a transmission as reported by the lookup endpoints.
type ScheduledTransmission struct {
	ID                   string           `json:"id"`
	State                string           `json:"state"`
	Description          string           `json:"description,omitempty"`
	CampaignID           string           `json:"campaign_id,omitempty"`
	Options              *Options         `json:"options,omitempty"`
	Content              ScheduledContent `json:"content"`
	Metadata             json.RawMessage  `json:"metadata,omitempty"`
	SubstitutionData     json.RawMessage  `json:"substitution_data,omitempty"`
	NumRecipients        int              `json:"num_recipients,omitempty"`
	NumGenerated         int              `json:"num_generated,omitempty"`
	NumFailedGeneration  int              `json:"num_failed_gen,omitempty"`
	NumInvalidRecipients int              `json:"num_invalid_recipients,omitempty"`
}

// ScheduledContent is the content summary of a ScheduledTransmission.
type ScheduledContent struct {
	TemplateID       string `json:"template_id,omitempty"`
	UseDraftTemplate bool   `json:"use_draft_template,omitempty"`
}
