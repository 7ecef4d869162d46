package sparkpost

import (
	"encoding/json"
	"slices"
	"time"
)

// Options controls tracking, classification and scheduling of a transmission.
// The zero value is a valid set of options; Sandbox defaults to false.
type Options struct {
	OpenTracking  bool
	ClickTracking bool
	Transactional bool
	Sandbox       bool
	InlineCSS     bool

	// StartTime schedules the transmission. It is sent in UTC with second
	// precision.
	StartTime *time.Time
}

type optionsWire struct {
	OpenTracking  bool   `json:"open_tracking"`
	ClickTracking bool   `json:"click_tracking"`
	Transactional bool   `json:"transactional"`
	Sandbox       bool   `json:"sandbox"`
	InlineCSS     bool   `json:"inline_css"`
	StartTime     string `json:"start_time,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (o Options) MarshalJSON() ([]byte, error) {
	w := optionsWire{
		OpenTracking:  o.OpenTracking,
		ClickTracking: o.ClickTracking,
		Transactional: o.Transactional,
		Sandbox:       o.Sandbox,
		InlineCSS:     o.InlineCSS,
	}
	if o.StartTime != nil {
		w.StartTime = o.StartTime.UTC().Truncate(time.Second).Format(time.RFC3339)
	}
	return json.Marshal(w)
}

func (o Options) clone() Options {
	if o.StartTime != nil {
		t := *o.StartTime
		o.StartTime = &t
	}
	return o
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Options) UnmarshalJSON(data []byte) error {
	var w optionsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Options{
		OpenTracking:  w.OpenTracking,
		ClickTracking: w.ClickTracking,
		Transactional: w.Transactional,
		Sandbox:       w.Sandbox,
		InlineCSS:     w.InlineCSS,
	}
	if w.StartTime != "" {
		t, err := time.Parse(time.RFC3339, w.StartTime)
		if err != nil {
			return err
		}
		t = t.UTC()
		o.StartTime = &t
	}
	return nil
}

// Content is the body of a transmission.
type Content struct {
	From        Address      `json:"from"`
	Subject     string       `json:"subject"`
	Tags        []string     `json:"tags,omitempty"`
	Text        *string      `json:"text,omitempty"`
	HTML        *string      `json:"html,omitempty"`
	TemplateID  *string      `json:"template_id,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Message is a single transmission request. Build it with NewMessage and the
// chainable setters, then hand it to Client.Send. Sending does not modify the
// message, so it can be sent again.
//
//	msg := sparkpost.NewMessage(sparkpost.NewAddress("news@example.com", "Example"))
//	msg.AddRecipient(sparkpost.NewRecipient("bob@example.com")).
//		SetCampaignID("spring").
//		SetSubject("Hello {{name}}").
//		SetHTML("<h1>Hello {{name}}</h1>")
type Message struct {
	options          Options
	description      *string
	campaignID       *string
	metadata         json.RawMessage
	substitutionData json.RawMessage
	recipients       Recipients
	content          Content
}

// NewMessage creates a message sent from the given address. All other fields
// take their defaults.
func NewMessage(from Address) *Message {
	return &Message{
		recipients: RecipientList{},
		content:    Content{From: from},
	}
}

// NewMessageWithOptions creates a message with the given sender and options.
func NewMessageWithOptions(from Address, opts Options) *Message {
	m := NewMessage(from)
	m.options = opts.clone()
	return m
}

// SetSubject sets the subject line.
func (m *Message) SetSubject(subject string) *Message {
	m.content.Subject = subject
	return m
}

// SetHTML sets the HTML body.
func (m *Message) SetHTML(html string) *Message {
	m.content.HTML = &html
	return m
}

// SetText sets the plain text body.
func (m *Message) SetText(text string) *Message {
	m.content.Text = &text
	return m
}

// SetTemplateID makes the content reference a stored template.
func (m *Message) SetTemplateID(templateID string) *Message {
	m.content.TemplateID = &templateID
	return m
}

// SetTags replaces the content tags.
func (m *Message) SetTags(tags ...string) *Message {
	m.content.Tags = append([]string(nil), tags...)
	return m
}

// AddTag appends a content tag.
func (m *Message) AddTag(tag string) *Message {
	m.content.Tags = append(m.content.Tags, tag)
	return m
}

// SetCampaignID sets the campaign id.
func (m *Message) SetCampaignID(campaignID string) *Message {
	m.campaignID = &campaignID
	return m
}

// SetDescription sets the transmission description.
func (m *Message) SetDescription(description string) *Message {
	m.description = &description
	return m
}

// SetOptions replaces the transmission options.
func (m *Message) SetOptions(opts Options) *Message {
	m.options = opts.clone()
	return m
}

// SetMetadata sets transmission metadata. v may be any value encoding/json
// can marshal; nil clears it. On failure the previous value is kept and an
// *EncodingError is returned.
func (m *Message) SetMetadata(v any) error {
	raw, err := encodeValue("metadata", v)
	if err != nil {
		return err
	}
	m.metadata = raw
	return nil
}

// SetSubstitutionData sets message-wide substitution data. Same rules as
// SetMetadata.
func (m *Message) SetSubstitutionData(v any) error {
	raw, err := encodeValue("substitution_data", v)
	if err != nil {
		return err
	}
	m.substitutionData = raw
	return nil
}

// AddAttachment appends an attachment.
func (m *Message) AddAttachment(a Attachment) *Message {
	m.content.Attachments = append(m.content.Attachments, a)
	return m
}

// AddRecipient adds r to the recipient set. A recipient with the same email
// replaces the earlier one and moves to the end. If the message currently
// targets a stored list, that reference is dropped.
func (m *Message) AddRecipient(r Recipient) *Message {
	if m.recipients == nil {
		m.recipients = RecipientList{}
	}
	m.recipients = m.recipients.Add(r)
	return m
}

// SetStoredRecipientList replaces the recipient set with a reference to a
// list stored in the provider account.
func (m *Message) SetStoredRecipientList(name string) *Message {
	m.recipients = StoredList(name)
	return m
}

// Options returns a copy of the transmission options.
func (m *Message) Options() Options {
	return m.options.clone()
}

// Content returns a copy of the message content. Changing it does not
// change the message.
func (m *Message) Content() Content {
	c := m.content
	c.Tags = slices.Clone(c.Tags)
	c.Attachments = slices.Clone(c.Attachments)
	c.Text = copyString(c.Text)
	c.HTML = copyString(c.HTML)
	c.TemplateID = copyString(c.TemplateID)
	return c
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Recipients returns the active recipient set.
func (m *Message) Recipients() Recipients {
	switch r := m.recipients.(type) {
	case nil:
		return RecipientList{}
	case RecipientList:
		return slices.Clone(r)
	default:
		return r
	}
}

// CampaignID returns the campaign id, or "" when unset.
func (m *Message) CampaignID() string {
	if m.campaignID == nil {
		return ""
	}
	return *m.campaignID
}

// Description returns the description, or "" when unset.
func (m *Message) Description() string {
	if m.description == nil {
		return ""
	}
	return *m.description
}

// Metadata returns the encoded metadata, nil when unset.
func (m *Message) Metadata() json.RawMessage {
	return slices.Clone(m.metadata)
}

// SubstitutionData returns the encoded substitution data, nil when unset.
func (m *Message) SubstitutionData() json.RawMessage {
	return slices.Clone(m.substitutionData)
}

type messageWire struct {
	Options          Options         `json:"options"`
	Description      *string         `json:"description,omitempty"`
	CampaignID       *string         `json:"campaign_id,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	SubstitutionData json.RawMessage `json:"substitution_data,omitempty"`
	Recipients       Recipients      `json:"recipients"`
	Content          Content         `json:"content"`
}

// MarshalJSON renders the wire request body. Unset optional fields are
// omitted.
func (m *Message) MarshalJSON() ([]byte, error) {
	var recipients Recipients = RecipientList{}
	if m.recipients != nil {
		recipients = m.recipients
	}
	return json.Marshal(messageWire{
		Options:          m.options,
		Description:      m.description,
		CampaignID:       m.campaignID,
		Metadata:         m.metadata,
		SubstitutionData: m.substitutionData,
		Recipients:       recipients,
		Content:          m.content,
	})
}

// JSON returns the wire request body.
func (m *Message) JSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, &EncodingError{Field: "message", Err: err}
	}
	return data, nil
}
