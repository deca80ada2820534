// internal/browser/driver.go
package browser

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
)

// By selects the query language of a selector.
type By int

const (
	// ByQuery interprets the selector as CSS.
	ByQuery By = iota
	// BySearch interprets the selector as XPath.
	BySearch
)

func (b By) String() string {
	if b == BySearch {
		return "xpath"
	}
	return "css"
}

// Modifier is a bitmask of keyboard modifiers held while a key is pressed.
type Modifier int

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModMeta

	ModNone Modifier = 0
)

// Element is a handle to a DOM node found by Query. Handles go stale when the page
// re-renders; every operation on a stale handle returns an error.
type Element struct {
	NodeID   cdp.NodeID
	Selector string
}

// Driver is the direct manipulation channel into the page. Every method is bounded by ctx
// and none of them wait for elements to appear; waiting is the caller's job.
type Driver interface {
	Navigate(ctx context.Context, url string) error

	// Query returns every node currently matching selector. No match is an empty slice, not an error.
	Query(ctx context.Context, selector string, by By) ([]Element, error)

	// Visible reports whether the node is rendered with a non-empty box.
	Visible(ctx context.Context, el Element) (bool, error)
	// Enabled reports whether the node is not disabled (attribute or aria-disabled).
	Enabled(ctx context.Context, el Element) (bool, error)
	// Text returns the node's innerText.
	Text(ctx context.Context, el Element) (string, error)
	// AncestorHTML returns the innerHTML of the closest ancestor matching the CSS selector,
	// or an empty string when there is none.
	AncestorHTML(ctx context.Context, el Element, ancestor string) (string, error)

	Click(ctx context.Context, el Element) error
	// JSClick dispatches element.click() from script, bypassing hit testing.
	JSClick(ctx context.Context, el Element) error
	Focus(ctx context.Context, el Element) error
	// ReplaceText focuses a contenteditable node, clears it and inserts text as one edit.
	ReplaceText(ctx context.Context, el Element, text string) error
	SetFiles(ctx context.Context, el Element, paths []string) error

	// SendKeys types keys into the focused node with mods held.
	SendKeys(ctx context.Context, keys string, mods Modifier) error

	// Evaluate runs script in the page and decodes its JSON result into res (which may be nil).
	Evaluate(ctx context.Context, script string, res any) error

	Screenshot(ctx context.Context) ([]byte, error)
	Close(ctx context.Context) error
}
