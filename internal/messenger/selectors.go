package messenger

import (
	"fmt"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/locator"
)

// -- Target catalogue --
//
// Strategies are listed from the most specific selector of the current web client to the
// most generic one that has survived past redesigns.

// Composer is the message input of an open conversation.
var Composer = locator.Target{
	Name: "composer",
	Strategies: []locator.Strategy{
		{Name: "lexical-editor", Selector: `footer div[contenteditable='true'][data-lexical-editor='true']`},
		{Name: "compose-box-testid", Selector: `footer [data-testid='conversation-compose-box-input']`},
		{Name: "footer-editable", Selector: `footer div[contenteditable='true']`},
	},
}

// InvalidBanner is the notice shown when the deep link names a number without an account.
var InvalidBanner = locator.Target{
	Name: "invalid-number-banner",
	Strategies: []locator.Strategy{
		textStrategy("invalid-url", "phone number shared via url is invalid"),
		textStrategy("not-a-user", "not a whatsapp user"),
		textStrategy("does-not-exist", "does not exist on whatsapp"),
	},
}

// AttachButton opens the attachment sub-menu.
var AttachButton = locator.Target{
	Name: "attach-button",
	Strategies: []locator.Strategy{
		{Name: "title-attach", Selector: `button[title='Attach']`},
		{Name: "aria-attach", Selector: `div[aria-label='Attach']`},
		{Name: "plus-icon", Selector: `footer span[data-icon='plus-rounded']`},
	},
}

// UploadInputs are the hidden file inputs behind the sub-menu entries. The right one is
// chosen by the icon and label inside its menu row.
var UploadInputs = locator.Target{
	Name: "upload-input",
	Strategies: []locator.Strategy{
		{Name: "menu-row-input", Selector: `li input[type='file']`},
		{Name: "any-file-input", Selector: `input[type='file']`},
	},
}

// uploadAncestor is the menu row around each upload input.
const uploadAncestor = "li"

// MediaEditor is the preview overlay that appears once a file is staged.
var MediaEditor = locator.Target{
	Name: "media-editor",
	Strategies: []locator.Strategy{
		{Name: "preview-container", Selector: `div[data-testid='media-preview-container']`},
		{Name: "media-editor", Selector: `div[data-testid='media-editor']`},
		{Name: "modal-dialog", Selector: `div[role='dialog'][data-animate-modal-body='true']`},
	},
}

// Caption is the text box of the media editor. The last visible one belongs to the topmost dialog.
var Caption = locator.Target{
	Name: "caption",
	Strategies: []locator.Strategy{
		{Name: "dialog-editable", Selector: `div[role='dialog'] div[contenteditable='true']`, Pick: locator.PickLast, RequireVisible: true},
		{Name: "preview-editable", Selector: `div[data-testid='media-preview-container'] div[contenteditable='true']`, Pick: locator.PickLast, RequireVisible: true},
		{Name: "editor-editable", Selector: `div[data-testid='media-editor'] div[contenteditable='true']`, Pick: locator.PickLast, RequireVisible: true},
	},
}

// SendButton submits the staged media. The last visible, enabled match is the one on top.
var SendButton = locator.Target{
	Name: "send-button",
	Strategies: []locator.Strategy{
		sendStrategy("aria-button", `button[aria-label='Send']`),
		sendStrategy("aria-role-button", `div[aria-label='Send'][role='button']`),
		sendStrategy("media-send-testid", `button[data-testid='media-send']`),
		sendStrategy("send-icon", `span[data-icon='send']`),
		sendStrategy("wds-send-icon", `span[data-icon='wds-ic-send-filled']`),
		sendStrategy("wds-send-svg", `svg[title='wds-ic-send-filled']`),
	},
}

// uploadHints are the markers inside a menu row that identify its attachment type.
var uploadHints = map[schemas.AttachmentType][]string{
	schemas.AttachmentDocument: {"document-filled-refreshed", "Document"},
	schemas.AttachmentImage:    {"media-filled-refreshed", "Photos", "videos"},
	schemas.AttachmentAudio:    {"ic-headphones-filled", "Audio"},
	schemas.AttachmentContact:  {"person-filled-refreshed", "Contact"},
	schemas.AttachmentSticker:  {"sticker-create-filled-refreshed", "Sticker"},
}

// UploadHints returns the menu-row markers for t.
func UploadHints(t schemas.AttachmentType) []string {
	return uploadHints[t]
}

func sendStrategy(name, selector string) locator.Strategy {
	return locator.Strategy{
		Name:           name,
		Selector:       selector,
		Pick:           locator.PickLast,
		RequireVisible: true,
		RequireEnabled: true,
	}
}

// textStrategy matches any div whose text contains phrase, ignoring case.
func textStrategy(name, phrase string) locator.Strategy {
	return locator.Strategy{
		Name: name,
		Selector: fmt.Sprintf(
			`//div[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '%s')]`,
			phrase),
		By: browser.BySearch,
	}
}
