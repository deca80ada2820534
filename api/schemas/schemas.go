package schemas

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// -- Recipients --

// Recipient is a normalized, digits-only phone identifier targeted for one message.
// Values are produced by recipients.Normalize and are never mutated afterwards.
type Recipient string

// String returns the digits of the recipient.
func (r Recipient) String() string { return string(r) }

// -- Message Job --

// MessageJob is the caption text plus the attachment set shared by every recipient in a batch.
type MessageJob struct {
	Text        string   `json:"text"`
	Attachments []string `json:"attachments"`
}

// NewMessageJob builds a job from raw user input. The text is trimmed; attachment paths
// are kept in the order given, blank entries are dropped.
func NewMessageJob(text string, attachments []string) MessageJob {
	job := MessageJob{Text: strings.TrimSpace(text)}
	for _, a := range attachments {
		if a = strings.TrimSpace(a); a != "" {
			job.Attachments = append(job.Attachments, a)
		}
	}
	return job
}

// HasText reports whether the job carries a non-empty message.
func (j MessageJob) HasText() bool { return strings.TrimSpace(j.Text) != "" }

// HasAttachments reports whether the job carries at least one file.
func (j MessageJob) HasAttachments() bool { return len(j.Attachments) > 0 }

// Validate enforces the batch-level precondition: a job must carry text, files, or both.
func (j MessageJob) Validate() error {
	if !j.HasText() && !j.HasAttachments() {
		return ErrEmptyJob
	}
	for _, a := range j.Attachments {
		if !filepath.IsAbs(a) {
			return fmt.Errorf("attachment path %q must be absolute", a)
		}
	}
	return nil
}

// -- Attachments --

// AttachmentType identifies the upload category an attachment is routed to.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentDocument AttachmentType = "document"
	AttachmentAudio    AttachmentType = "audio"
	AttachmentContact  AttachmentType = "contact"
	AttachmentSticker  AttachmentType = "sticker"
)

var attachmentExtensions = map[string]AttachmentType{
	".jpg": AttachmentImage, ".jpeg": AttachmentImage, ".png": AttachmentImage,
	".gif": AttachmentImage, ".mp4": AttachmentImage, ".mov": AttachmentImage,

	".pdf": AttachmentDocument, ".docx": AttachmentDocument, ".xlsx": AttachmentDocument,
	".txt": AttachmentDocument, ".csv": AttachmentDocument, ".zip": AttachmentDocument,

	".mp3": AttachmentAudio, ".aac": AttachmentAudio, ".wav": AttachmentAudio,
	".ogg": AttachmentAudio, ".m4a": AttachmentAudio,

	".vcf": AttachmentContact,

	".webp": AttachmentSticker,
}

// ClassifyAttachment derives the upload category from the file extension.
// Matching is case-insensitive and unknown extensions fall back to AttachmentDocument.
func ClassifyAttachment(path string) AttachmentType {
	if t, ok := attachmentExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return AttachmentDocument
}

// -- Send Results --

// Outcome is the terminal classification of one recipient's workflow.
type Outcome string

const (
	OutcomeSent             Outcome = "SENT"
	OutcomeNotDelivered     Outcome = "NOT_DELIVERED"
	OutcomeInvalidRecipient Outcome = "INVALID_RECIPIENT"
	OutcomeCancelled        Outcome = "CANCELLED"
	OutcomeFailed           Outcome = "FAILED"
)

func (o Outcome) String() string { return string(o) }

// IsValid reports whether o is one of the known outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSent, OutcomeNotDelivered, OutcomeInvalidRecipient, OutcomeCancelled, OutcomeFailed:
		return true
	}
	return false
}

// SendResult is produced exactly once per recipient per batch.
type SendResult struct {
	Recipient Recipient     `json:"recipient"`
	Outcome   Outcome       `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports whether the recipient counts towards the success counter.
func (r SendResult) Succeeded() bool { return r.Outcome == OutcomeSent }

// Cancelled reports whether the workflow was interrupted by cancellation.
func (r SendResult) Cancelled() bool { return r.Outcome == OutcomeCancelled }

// -- Batch Accounting --

// BatchProgress holds the running counters of a batch. Index is 1-based and
// refers to the recipient most recently started.
type BatchProgress struct {
	Index     int `json:"index"`
	Total     int `json:"total"`
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Record folds a finished result into the counters.
func (p *BatchProgress) Record(res SendResult) {
	p.Attempted++
	switch {
	case res.Succeeded():
		p.Succeeded++
	case res.Cancelled():
		p.Cancelled++
	default:
		p.Failed++
	}
}

// BatchSummary is the terminal report handed back to the caller.
type BatchSummary struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Cancelled int    `json:"cancelled"`
}

// Summary snapshots the counters.
func (p BatchProgress) Summary(runID string) BatchSummary {
	return BatchSummary{
		RunID:     runID,
		Total:     p.Total,
		Attempted: p.Attempted,
		Succeeded: p.Succeeded,
		Failed:    p.Failed,
		Cancelled: p.Cancelled,
	}
}
