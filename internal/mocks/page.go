// File: internal/mocks/page.go
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/courier-cli/internal/browser"
)

// ErrDetached is returned for operations on a node marked Dead.
var ErrDetached = errors.New("node is detached from the document")

// FakeNode is one scripted node of a FakePage.
type FakeNode struct {
	ID       cdp.NodeID
	Hidden   bool
	Disabled bool
	Dead     bool
	Text     string
	// Ancestors maps an ancestor CSS selector to that ancestor's innerHTML.
	Ancestors map[string]string
	// RejectText makes ReplaceText a silent no-op, like an editor ignoring insertText.
	RejectText bool

	OnClick func(p *FakePage)
	OnFiles func(p *FakePage, paths []string)
}

// KeyPress records one SendKeys call.
type KeyPress struct {
	Keys string
	Mods browser.Modifier
}

// FakePage is a hand-scripted browser.Driver. Nodes are registered under the exact selector
// strings the code under test queries; hooks let a test react to clicks, keys, uploads and
// navigation by reshaping the page.
type FakePage struct {
	mu         sync.Mutex
	nextID     cdp.NodeID
	nodes      map[cdp.NodeID]*FakeNode
	bySelector map[string][]cdp.NodeID

	OnNavigate func(p *FakePage, url string)
	OnKeys     func(p *FakePage, press KeyPress)
	OnEvaluate func(p *FakePage, script string) (any, error)

	ScreenshotErr error
	NavigateErr   error

	Navigations []string
	Keys        []KeyPress
	Clicks      []string
	JSClicks    []string
	Uploads     [][]string
	Scripts     []string
	Screenshots int
	Closes      int
}

var _ browser.Driver = (*FakePage)(nil)

// NewFakePage returns an empty page.
func NewFakePage() *FakePage {
	return &FakePage{
		nodes:      make(map[cdp.NodeID]*FakeNode),
		bySelector: make(map[string][]cdp.NodeID),
	}
}

// Add registers n as a match for selector and returns it.
func (p *FakePage) Add(selector string, n *FakeNode) *FakeNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n.ID == 0 {
		p.nextID++
		n.ID = p.nextID
	}
	p.nodes[n.ID] = n
	p.bySelector[selector] = append(p.bySelector[selector], n.ID)
	return n
}

// Remove drops every match of selector.
func (p *FakePage) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.bySelector, selector)
}

// Reset empties the document, as a navigation would.
func (p *FakePage) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes = make(map[cdp.NodeID]*FakeNode)
	p.bySelector = make(map[string][]cdp.NodeID)
}

// Node returns the first node registered under selector, or nil.
func (p *FakePage) Node(selector string) *FakeNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.bySelector[selector]
	if len(ids) == 0 {
		return nil
	}
	return p.nodes[ids[0]]
}

func (p *FakePage) lookup(el browser.Element) (*FakeNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[el.NodeID]
	if !ok || n.Dead {
		return nil, fmt.Errorf("node %d: %w", el.NodeID, ErrDetached)
	}
	return n, nil
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	hook, err := p.OnNavigate, p.NavigateErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *FakePage) Query(ctx context.Context, selector string, by browser.By) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var els []browser.Element
	for _, id := range p.bySelector[selector] {
		els = append(els, browser.Element{NodeID: id, Selector: selector})
	}
	return els, nil
}

func (p *FakePage) Visible(ctx context.Context, el browser.Element) (bool, error) {
	n, err := p.lookup(el)
	if err != nil {
		return false, err
	}
	return !n.Hidden, nil
}

func (p *FakePage) Enabled(ctx context.Context, el browser.Element) (bool, error) {
	n, err := p.lookup(el)
	if err != nil {
		return false, err
	}
	return !n.Disabled, nil
}

func (p *FakePage) Text(ctx context.Context, el browser.Element) (string, error) {
	n, err := p.lookup(el)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return n.Text, nil
}

func (p *FakePage) AncestorHTML(ctx context.Context, el browser.Element, ancestor string) (string, error) {
	n, err := p.lookup(el)
	if err != nil {
		return "", err
	}
	return n.Ancestors[ancestor], nil
}

func (p *FakePage) Click(ctx context.Context, el browser.Element) error {
	n, err := p.lookup(el)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.Clicks = append(p.Clicks, el.Selector)
	p.mu.Unlock()
	if n.OnClick != nil {
		n.OnClick(p)
	}
	return nil
}

func (p *FakePage) JSClick(ctx context.Context, el browser.Element) error {
	n, err := p.lookup(el)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.JSClicks = append(p.JSClicks, el.Selector)
	p.mu.Unlock()
	if n.OnClick != nil {
		n.OnClick(p)
	}
	return nil
}

func (p *FakePage) Focus(ctx context.Context, el browser.Element) error {
	_, err := p.lookup(el)
	return err
}

func (p *FakePage) ReplaceText(ctx context.Context, el browser.Element, text string) error {
	n, err := p.lookup(el)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !n.RejectText {
		n.Text = text
	}
	return nil
}

func (p *FakePage) SetFiles(ctx context.Context, el browser.Element, paths []string) error {
	n, err := p.lookup(el)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.Uploads = append(p.Uploads, append([]string(nil), paths...))
	p.mu.Unlock()
	if n.OnFiles != nil {
		n.OnFiles(p, paths)
	}
	return nil
}

func (p *FakePage) SendKeys(ctx context.Context, keys string, mods browser.Modifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	press := KeyPress{Keys: keys, Mods: mods}
	p.mu.Lock()
	p.Keys = append(p.Keys, press)
	hook := p.OnKeys
	p.mu.Unlock()
	if hook != nil {
		hook(p, press)
	}
	return nil
}

func (p *FakePage) Evaluate(ctx context.Context, script string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.Scripts = append(p.Scripts, script)
	hook := p.OnEvaluate
	p.mu.Unlock()
	if hook == nil {
		return nil
	}
	v, err := hook(p, script)
	if err != nil || res == nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, res)
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Screenshots++
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return []byte("\x89PNG fake"), nil
}

func (p *FakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closes++
	return nil
}
