package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/mocks"
)

func target(strategies ...Strategy) Target {
	return Target{Name: "test-target", Strategies: strategies}
}

func css(name, sel string) Strategy {
	return Strategy{Name: name, Selector: sel, By: browser.ByQuery}
}

func TestResolve_FirstMatchingStrategyWins(t *testing.T) {
	page := mocks.NewFakePage()
	s3 := page.Add("#s3", &mocks.FakeNode{})
	page.Add("#s1", &mocks.FakeNode{})
	r := New(page, zaptest.NewLogger(t))

	// S2 has no candidates; S1 and S3 both match. S1 comes first and must win.
	m, ok := r.Resolve(context.Background(), target(css("S1", "#s1"), css("S2", "#s2"), css("S3", "#s3")))
	require.True(t, ok)
	assert.Equal(t, "S1", m.Strategy.Name)
	assert.NotEqual(t, s3.ID, m.Element.NodeID)

	// Reordering the list changes the winner.
	m, ok = r.Resolve(context.Background(), target(css("S3", "#s3"), css("S1", "#s1")))
	require.True(t, ok)
	assert.Equal(t, "S3", m.Strategy.Name)
	assert.Equal(t, s3.ID, m.Element.NodeID)
}

func TestResolve_NotFound(t *testing.T) {
	page := mocks.NewFakePage()
	r := New(page, zaptest.NewLogger(t))

	_, ok := r.Resolve(context.Background(), target(css("S1", "#missing")))
	assert.False(t, ok)
	assert.False(t, r.Exists(context.Background(), target()))
}

func TestResolve_PickAndRequirements(t *testing.T) {
	page := mocks.NewFakePage()
	first := page.Add("button.send", &mocks.FakeNode{})
	hidden := page.Add("button.send", &mocks.FakeNode{Hidden: true})
	disabled := page.Add("button.send", &mocks.FakeNode{Disabled: true})
	last := page.Add("button.send", &mocks.FakeNode{})
	r := New(page, zaptest.NewLogger(t))
	ctx := context.Background()

	s := css("send", "button.send")
	m, ok := r.Resolve(ctx, target(s))
	require.True(t, ok)
	assert.Equal(t, first.ID, m.Element.NodeID)

	s.Pick = PickLast
	m, ok = r.Resolve(ctx, target(s))
	require.True(t, ok)
	assert.Equal(t, last.ID, m.Element.NodeID)

	last.Hidden = true
	s.RequireVisible = true
	m, ok = r.Resolve(ctx, target(s))
	require.True(t, ok)
	assert.Equal(t, disabled.ID, m.Element.NodeID, "disabled but visible still qualifies without RequireEnabled")

	s.RequireEnabled = true
	m, ok = r.Resolve(ctx, target(s))
	require.True(t, ok)
	assert.Equal(t, first.ID, m.Element.NodeID)
	assert.NotEqual(t, hidden.ID, m.Element.NodeID)
}

func TestResolve_SkipsDeadNodes(t *testing.T) {
	page := mocks.NewFakePage()
	page.Add("#a", &mocks.FakeNode{Dead: true})
	live := page.Add("#b", &mocks.FakeNode{})
	r := New(page, zaptest.NewLogger(t))

	m, ok := r.Resolve(context.Background(), target(css("A", "#a"), css("B", "#b")))
	require.True(t, ok)
	assert.Equal(t, "B", m.Strategy.Name)
	assert.Equal(t, live.ID, m.Element.NodeID)
}

func TestResolve_QueryErrorFallsThrough(t *testing.T) {
	drv := new(mocks.MockDriver)
	el := browser.Element{NodeID: 7, Selector: "#ok"}
	drv.On("Query", mock.Anything, "#broken", browser.ByQuery).Return(nil, errors.New("cdp: invalid selector"))
	drv.On("Query", mock.Anything, "#ok", browser.ByQuery).Return([]browser.Element{el}, nil)
	drv.On("Visible", mock.Anything, el).Return(true, nil)

	r := New(drv, zaptest.NewLogger(t))
	m, ok := r.Resolve(context.Background(), target(css("broken", "#broken"), css("ok", "#ok")))

	require.True(t, ok)
	assert.Equal(t, el, m.Element)
	drv.AssertExpectations(t)
}

func TestResolve_CancelledContext(t *testing.T) {
	page := mocks.NewFakePage()
	page.Add("#a", &mocks.FakeNode{})
	r := New(page, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := r.Resolve(ctx, target(css("A", "#a")))
	assert.False(t, ok)
}

func TestResolveByHints(t *testing.T) {
	page := mocks.NewFakePage()
	const sel = "li input[type='file']"
	page.Add(sel, &mocks.FakeNode{Ancestors: map[string]string{"li": `<span data-icon="document-filled-refreshed"></span>Document`}})
	media := page.Add(sel, &mocks.FakeNode{Ancestors: map[string]string{"li": `<span data-icon="media-filled-refreshed"></span>Photos &amp; videos`}})
	page.Add(sel, &mocks.FakeNode{Dead: true})
	r := New(page, zaptest.NewLogger(t))
	ctx := context.Background()
	tgt := target(css("file inputs", sel))

	m, ok := r.ResolveByHints(ctx, tgt, "li", []string{"MEDIA-FILLED-REFRESHED", "Photos"})
	require.True(t, ok)
	assert.Equal(t, media.ID, m.Element.NodeID)

	_, ok = r.ResolveByHints(ctx, tgt, "li", []string{"sticker-create-filled-refreshed"})
	assert.False(t, ok)

	_, ok = r.ResolveByHints(ctx, tgt, "li", []string{"", "  "})
	assert.False(t, ok, "blank hints never match")
}

func TestPresentCondition(t *testing.T) {
	page := mocks.NewFakePage()
	r := New(page, zaptest.NewLogger(t))
	cond := r.Present(target(css("A", "#a")))

	assert.False(t, cond(context.Background()))
	page.Add("#a", &mocks.FakeNode{})
	assert.True(t, cond(context.Background()))
}
