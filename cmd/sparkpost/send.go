package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	sparkpost "github.com/sparkmail/sparkmail/sdk/go"

	"github.com/sparkmail/sparkmail/internal/config"
)

// Send command errors
var (
	errMissingFrom       = errors.New("a sender is required (--from or defaults.from_email)")
	errMissingRecipients = errors.New("either --to or --list is required")
	errRecipientConflict = errors.New("--to and --list cannot be combined")
	errMissingContent    = errors.New("one of --html, --text or --template is required")
	errTemplateConflict  = errors.New("--template cannot be combined with --html or --text")
)

// sendOptions mirrors the flags of the send command
type sendOptions struct {
	From          string
	FromName      string
	To            []string
	List          string
	Subject       string
	HTML          string
	Text          string
	Template      string
	Campaign      string
	Description   string
	Tags          []string
	Attachments   []string
	Data          string
	Metadata      string
	StartTime     string
	Sandbox       bool
	OpenTracking  bool
	ClickTracking bool
	Transactional bool
	InlineCSS     bool
}

func registerSendFlags(cmd *cobra.Command, o *sendOptions) {
	f := cmd.Flags()
	f.StringVar(&o.From, "from", "", "sender email address")
	f.StringVar(&o.FromName, "from-name", "", "sender display name")
	f.StringSliceVar(&o.To, "to", nil, "recipient email address (repeatable)")
	f.StringVar(&o.List, "list", "", "stored recipient list name")
	f.StringVar(&o.Subject, "subject", "", "message subject")
	f.StringVar(&o.HTML, "html", "", "HTML body")
	f.StringVar(&o.Text, "text", "", "plain-text body")
	f.StringVar(&o.Template, "template", "", "stored template id")
	f.StringVar(&o.Campaign, "campaign", "", "campaign id")
	f.StringVar(&o.Description, "description", "", "transmission description")
	f.StringArrayVar(&o.Tags, "tag", nil, "tag (repeatable)")
	f.StringArrayVar(&o.Attachments, "attach", nil, "file to attach (repeatable)")
	f.StringVar(&o.Data, "data", "", "global substitution data as JSON")
	f.StringVar(&o.Metadata, "metadata", "", "transmission metadata as JSON")
	f.StringVar(&o.StartTime, "start-time", "", "schedule the send (RFC 3339)")
	f.BoolVar(&o.Sandbox, "sandbox", false, "send in sandbox mode")
	f.BoolVar(&o.OpenTracking, "open-tracking", false, "enable open tracking")
	f.BoolVar(&o.ClickTracking, "click-tracking", false, "enable click tracking")
	f.BoolVar(&o.Transactional, "transactional", false, "mark as transactional")
	f.BoolVar(&o.InlineCSS, "inline-css", false, "inline CSS in the HTML body")
}

// applyDefaults fills unset flags from the configured message defaults.
// changed reports whether a flag was given on the command line.
func (o *sendOptions) applyDefaults(d config.DefaultsConfig, changed func(string) bool) {
	if o.From == "" {
		o.From = d.FromEmail
	}
	if o.FromName == "" {
		o.FromName = d.FromName
	}
	if !changed("sandbox") {
		o.Sandbox = d.Sandbox
	}
}

func (o sendOptions) options() (sparkpost.Options, error) {
	opts := sparkpost.Options{
		OpenTracking:  o.OpenTracking,
		ClickTracking: o.ClickTracking,
		Transactional: o.Transactional,
		Sandbox:       o.Sandbox,
		InlineCSS:     o.InlineCSS,
	}
	if o.StartTime != "" {
		t, err := time.Parse(time.RFC3339, o.StartTime)
		if err != nil {
			return opts, fmt.Errorf("invalid --start-time: %w", err)
		}
		opts.StartTime = &t
	}
	return opts, nil
}

// buildMessage turns the send flags into a message
func buildMessage(o sendOptions) (*sparkpost.Message, error) {
	if o.From == "" {
		return nil, errMissingFrom
	}
	switch {
	case len(o.To) == 0 && o.List == "":
		return nil, errMissingRecipients
	case len(o.To) > 0 && o.List != "":
		return nil, errRecipientConflict
	case o.Template == "" && o.HTML == "" && o.Text == "":
		return nil, errMissingContent
	case o.Template != "" && (o.HTML != "" || o.Text != ""):
		return nil, errTemplateConflict
	}

	opts, err := o.options()
	if err != nil {
		return nil, err
	}

	msg := sparkpost.NewMessageWithOptions(sparkpost.NewAddress(o.From, o.FromName), opts)
	if o.Subject != "" {
		msg.SetSubject(o.Subject)
	}
	if o.HTML != "" {
		msg.SetHTML(o.HTML)
	}
	if o.Text != "" {
		msg.SetText(o.Text)
	}
	if o.Template != "" {
		msg.SetTemplateID(o.Template)
	}
	if o.Campaign != "" {
		msg.SetCampaignID(o.Campaign)
	}
	if o.Description != "" {
		msg.SetDescription(o.Description)
	}
	if len(o.Tags) > 0 {
		msg.SetTags(o.Tags...)
	}

	if o.List != "" {
		msg.SetStoredRecipientList(o.List)
	}
	for _, to := range o.To {
		msg.AddRecipient(sparkpost.NewRecipient(to))
	}

	if o.Data != "" {
		if err := msg.SetSubstitutionData(json.RawMessage(o.Data)); err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
	}
	if o.Metadata != "" {
		if err := msg.SetMetadata(json.RawMessage(o.Metadata)); err != nil {
			return nil, fmt.Errorf("invalid --metadata: %w", err)
		}
	}

	for _, path := range o.Attachments {
		a, err := readAttachment(path)
		if err != nil {
			return nil, err
		}
		msg.AddAttachment(a)
	}

	return msg, nil
}

// readAttachment loads a file and detects its MIME type from its content
func readAttachment(path string) (sparkpost.Attachment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sparkpost.Attachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}
	mt := mimetype.Detect(raw)
	return sparkpost.AttachmentFromBytes(filepath.Base(path), mt.String(), raw), nil
}
