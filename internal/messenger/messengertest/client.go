// Package messengertest provides a scripted stand-in for the web client, built on
// mocks.FakePage, for tests that exercise the messenger workflow end to end.
package messengertest

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/courier-cli/api/schemas"
	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/messenger"
	"github.com/xkilldash9x/courier-cli/internal/mocks"
	"github.com/xkilldash9x/courier-cli/internal/session"
)

// Sent is one message the fake client accepted.
type Sent struct {
	Recipient string
	Text      string
	File      string
	Caption   string
}

// menuRows are the attach sub-menu entries, keyed by the type they upload.
var menuRows = map[schemas.AttachmentType]string{
	schemas.AttachmentDocument: `<span data-icon="document-filled-refreshed"></span><span>Document</span>`,
	schemas.AttachmentImage:    `<span data-icon="media-filled-refreshed"></span><span>Photos &amp; videos</span>`,
	schemas.AttachmentAudio:    `<span data-icon="ic-headphones-filled"></span><span>Audio</span>`,
	schemas.AttachmentContact:  `<span data-icon="person-filled-refreshed"></span><span>Contact</span>`,
	schemas.AttachmentSticker:  `<span data-icon="sticker-create-filled-refreshed"></span><span>New sticker</span>`,
}

// Client models the parts of the web client the workflow touches: conversations, the
// composer, the attach menu, the media editor and the outgoing bubble count.
type Client struct {
	Page *mocks.FakePage

	// Valid lists the recipients that have an account. Others get the invalid banner.
	Valid map[string]bool

	// Behaviour knobs.
	RejectStructuredEdit bool
	SwallowEnter         bool
	ClearWithoutSending  bool
	NoMediaEditor        bool
	NoSendButton         bool
	MissingMenuRows      map[schemas.AttachmentType]bool
	Silent               bool
	// LoggedOut keeps the home page on the QR screen.
	LoggedOut bool

	mu       sync.Mutex
	current  string
	outgoing int
	composer *mocks.FakeNode
	caption  *mocks.FakeNode
	staged   string
	selected bool
	sent     []Sent
	uploaded map[string]schemas.AttachmentType
}

// New returns a client where every number in valid has an account.
func New(valid ...string) *Client {
	c := &Client{
		Page:            mocks.NewFakePage(),
		Valid:           make(map[string]bool),
		MissingMenuRows: make(map[schemas.AttachmentType]bool),
		uploaded:        make(map[string]schemas.AttachmentType),
	}
	for _, v := range valid {
		c.Valid[v] = true
	}
	c.Page.OnNavigate = c.onNavigate
	c.Page.OnKeys = c.onKeys
	c.Page.OnEvaluate = c.onEvaluate
	return c
}

var _ messenger.Navigator = (*Client)(nil)

// NavigateToRecipient opens the conversation of r through the same deep link the session
// manager uses.
func (c *Client) NavigateToRecipient(ctx context.Context, r schemas.Recipient) error {
	return c.Page.Navigate(ctx, session.ChatURL("https://web.whatsapp.com/", r))
}

// onNavigate renders a conversation for deep links and the chat list for anything else.
func (c *Client) onNavigate(p *mocks.FakePage, raw string) {
	if u, err := url.Parse(raw); err == nil {
		if phone := u.Query().Get("phone"); phone != "" {
			c.open(phone)
			return
		}
	}
	p.Reset()
	if !c.LoggedOut {
		p.Add(session.LoggedIn.Strategies[len(session.LoggedIn.Strategies)-1].Selector, &mocks.FakeNode{})
	}
}

// Sent returns every accepted message in order.
func (c *Client) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// UploadedAs reports which menu row the file was staged through.
func (c *Client) UploadedAs(file string) schemas.AttachmentType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploaded[file]
}

// ComposerText returns what the composer currently holds.
func (c *Client) ComposerText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.composer == nil {
		return ""
	}
	return c.composer.Text
}

func (c *Client) open(r string) {
	p := c.Page
	p.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = r
	c.composer = nil
	c.caption = nil
	c.outgoing = 0
	for _, s := range c.sent {
		if s.Recipient == r {
			c.outgoing++
		}
	}

	if c.Silent {
		return
	}
	if !c.Valid[r] {
		p.Add(messenger.InvalidBanner.Strategies[0].Selector, &mocks.FakeNode{
			Text: "Phone number shared via url is invalid.",
		})
		return
	}
	c.composer = p.Add(messenger.Composer.Strategies[2].Selector, &mocks.FakeNode{
		RejectText: c.RejectStructuredEdit,
	})
	p.Add(messenger.AttachButton.Strategies[0].Selector, &mocks.FakeNode{OnClick: c.openMenu})
}

func (c *Client) openMenu(p *mocks.FakePage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.Remove(messenger.UploadInputs.Strategies[0].Selector)
	for _, kind := range []schemas.AttachmentType{
		schemas.AttachmentDocument,
		schemas.AttachmentImage,
		schemas.AttachmentAudio,
		schemas.AttachmentContact,
		schemas.AttachmentSticker,
	} {
		if c.MissingMenuRows[kind] {
			continue
		}
		kind := kind
		p.Add(messenger.UploadInputs.Strategies[0].Selector, &mocks.FakeNode{
			Hidden:    true,
			Ancestors: map[string]string{"li": menuRows[kind]},
			OnFiles: func(p *mocks.FakePage, paths []string) {
				c.stage(p, kind, paths)
			},
		})
	}
}

func (c *Client) stage(p *mocks.FakePage, kind schemas.AttachmentType, paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(paths) == 0 {
		return
	}
	c.staged = paths[0]
	c.uploaded[paths[0]] = kind
	p.Remove(messenger.UploadInputs.Strategies[0].Selector)

	if !c.NoMediaEditor {
		p.Add(messenger.MediaEditor.Strategies[0].Selector, &mocks.FakeNode{})
		c.caption = p.Add(messenger.Caption.Strategies[0].Selector, &mocks.FakeNode{})
	}
	if !c.NoSendButton {
		p.Add(messenger.SendButton.Strategies[0].Selector, &mocks.FakeNode{
			OnClick: func(p *mocks.FakePage) { c.sendMedia(p) },
		})
	}
}

func (c *Client) sendMedia(p *mocks.FakePage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staged == "" {
		return
	}
	s := Sent{Recipient: c.current, File: c.staged}
	if c.caption != nil {
		s.Caption = c.caption.Text
	}
	c.sent = append(c.sent, s)
	c.outgoing++
	c.staged = ""
	c.caption = nil
	p.Remove(messenger.MediaEditor.Strategies[0].Selector)
	p.Remove(messenger.Caption.Strategies[0].Selector)
	p.Remove(messenger.SendButton.Strategies[0].Selector)
}

// onKeys edits the composer the way a contenteditable would for the keys the typist uses.
func (c *Client) onKeys(p *mocks.FakePage, press mocks.KeyPress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.composer == nil {
		return
	}
	switch {
	case press.Keys == "a" && press.Mods == browser.ModCtrl:
		c.selected = true
	case press.Keys == kb.Backspace:
		if c.selected {
			c.composer.Text = ""
			c.selected = false
		} else if n := len(c.composer.Text); n > 0 {
			c.composer.Text = c.composer.Text[:n-1]
		}
	case press.Keys == kb.Enter && press.Mods == browser.ModShift:
		c.composer.Text += "\n"
	case press.Keys == kb.Enter:
		c.submit()
	default:
		c.selected = false
		c.composer.Text += press.Keys
	}
}

func (c *Client) submit() {
	if c.SwallowEnter || strings.TrimSpace(c.composer.Text) == "" {
		return
	}
	if !c.ClearWithoutSending {
		c.sent = append(c.sent, Sent{Recipient: c.current, Text: c.composer.Text})
		c.outgoing++
	}
	c.composer.Text = ""
}

func (c *Client) onEvaluate(p *mocks.FakePage, script string) (any, error) {
	switch script {
	case messenger.OutgoingCountScript:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.outgoing, nil
	case messenger.ShadowSendScript:
		c.mu.Lock()
		staged := c.staged != ""
		c.mu.Unlock()
		if !staged {
			return false, nil
		}
		c.sendMedia(p)
		return true, nil
	}
	return nil, nil
}
