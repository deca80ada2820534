package schemas

import "errors"

// Error taxonomy shared by the session engine. Only ErrLoginTimeout and ErrCancelled
// ever escape a batch; everything else is folded into a SendResult.
var (
	// ErrLoginTimeout aborts the batch before any recipient is attempted.
	ErrLoginTimeout = errors.New("login timeout: authenticated marker never appeared, scan the QR code to continue")
	// ErrCancelled marks cooperative cancellation. Errors carrying it also wrap the context error.
	ErrCancelled = errors.New("operation cancelled")

	ErrInvalidRecipient       = errors.New("invalid recipient or conversation not ready")
	ErrComposerNotFound       = errors.New("composer not found")
	ErrComposerNotPopulated   = errors.New("composer could not be populated")
	ErrSendTargetNotFound     = errors.New("send target not found")
	ErrAttachmentUploadFailed = errors.New("attachment upload failed")
	ErrSendUnconfirmed        = errors.New("send not confirmed")

	// ErrEmptyJob is returned by MessageJob.Validate.
	ErrEmptyJob = errors.New("nothing to send: provide a message or at least one attachment")
	// ErrNoRecipients is returned when the normalized recipient list is empty.
	ErrNoRecipients = errors.New("no valid recipients")
)
