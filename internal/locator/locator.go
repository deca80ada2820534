// Package locator resolves logical UI targets into live page elements. The web client
// ships UI changes without notice, so every target is described as an ordered list of
// selector strategies and the first one that produces a live element wins.
package locator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/wait"
)

// Pick chooses among several live candidates of one strategy.
type Pick int

const (
	PickFirst Pick = iota
	// PickLast prefers the most recently rendered node, e.g. the send button of a modal
	// stacked above the conversation footer.
	PickLast
)

// Strategy is one way of finding a target.
type Strategy struct {
	Name           string
	Selector       string
	By             browser.By
	Pick           Pick
	RequireVisible bool
	RequireEnabled bool
}

// Target is a named UI element with its strategies in priority order.
type Target struct {
	Name       string
	Strategies []Strategy
}

// Match is a resolved element together with the strategy that found it.
type Match struct {
	Element  browser.Element
	Strategy Strategy
}

// Resolver runs strategy lists against a Driver. It never blocks beyond one snapshot of
// the page per strategy; waiting for an element is done by polling Present.
type Resolver struct {
	driver browser.Driver
	logger *zap.Logger
}

// New creates a Resolver.
func New(driver browser.Driver, logger *zap.Logger) *Resolver {
	return &Resolver{driver: driver, logger: logger.Named("locator")}
}

// Resolve tries the strategies of t strictly in order. NotFound is reported as false.
func (r *Resolver) Resolve(ctx context.Context, t Target) (Match, bool) {
	for _, s := range t.Strategies {
		if ctx.Err() != nil {
			return Match{}, false
		}
		live := r.liveCandidates(ctx, s)
		if len(live) == 0 {
			continue
		}
		el := live[0]
		if s.Pick == PickLast {
			el = live[len(live)-1]
		}
		r.logger.Debug("Target resolved",
			zap.String("target", t.Name),
			zap.String("strategy", s.Name),
			zap.Int("candidates", len(live)))
		return Match{Element: el, Strategy: s}, true
	}
	return Match{}, false
}

// Exists reports whether any strategy of t currently resolves.
func (r *Resolver) Exists(ctx context.Context, t Target) bool {
	_, ok := r.Resolve(ctx, t)
	return ok
}

// Present adapts Exists into a wait.Condition.
func (r *Resolver) Present(t Target) wait.Condition {
	return func(ctx context.Context) bool { return r.Exists(ctx, t) }
}

// ResolveByHints picks, among the candidates of t, the first whose closest ancestor
// matching the CSS selector ancestor contains any of hints (case-insensitive). Strategies
// are tried in order and candidates in document order.
func (r *Resolver) ResolveByHints(ctx context.Context, t Target, ancestor string, hints []string) (Match, bool) {
	lowered := make([]string, 0, len(hints))
	for _, h := range hints {
		if h = strings.TrimSpace(h); h != "" {
			lowered = append(lowered, strings.ToLower(h))
		}
	}
	if len(lowered) == 0 {
		return Match{}, false
	}

	for _, s := range t.Strategies {
		if ctx.Err() != nil {
			return Match{}, false
		}
		for _, el := range r.liveCandidates(ctx, s) {
			html, err := r.driver.AncestorHTML(ctx, el, ancestor)
			if err != nil {
				r.logger.Debug("Skipping dead candidate", zap.String("target", t.Name), zap.Error(err))
				continue
			}
			html = strings.ToLower(html)
			for _, h := range lowered {
				if strings.Contains(html, h) {
					r.logger.Debug("Target resolved by hint",
						zap.String("target", t.Name),
						zap.String("strategy", s.Name),
						zap.String("hint", h))
					return Match{Element: el, Strategy: s}, true
				}
			}
		}
	}
	return Match{}, false
}

// liveCandidates snapshots the nodes of s and drops those that fail the liveness probe or
// the strategy's visibility and enabled requirements.
func (r *Resolver) liveCandidates(ctx context.Context, s Strategy) []browser.Element {
	els, err := r.driver.Query(ctx, s.Selector, s.By)
	if err != nil {
		r.logger.Debug("Strategy query failed", zap.String("strategy", s.Name), zap.Error(err))
		return nil
	}

	live := els[:0:0]
	for _, el := range els {
		visible, err := r.driver.Visible(ctx, el)
		if err != nil {
			continue
		}
		if s.RequireVisible && !visible {
			continue
		}
		if s.RequireEnabled {
			enabled, err := r.driver.Enabled(ctx, el)
			if err != nil || !enabled {
				continue
			}
		}
		live = append(live, el)
	}
	return live
}
