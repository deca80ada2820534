// internal/browser/session_test.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

func TestCDPModifiers(t *testing.T) {
	assert.Equal(t, input.Modifier(0), cdpModifiers(ModNone))
	assert.Equal(t, input.ModifierShift, cdpModifiers(ModShift))
	assert.Equal(t, input.ModifierCtrl|input.ModifierShift, cdpModifiers(ModCtrl|ModShift))
	assert.Equal(t, input.ModifierAlt|input.ModifierMeta, cdpModifiers(ModAlt|ModMeta))
}

func TestJSONEncode(t *testing.T) {
	assert.Equal(t, `"line \"one\"\nline two"`, jsonEncode("line \"one\"\nline two"))
	assert.Equal(t, `"li[data-x='1']"`, jsonEncode("li[data-x='1']"))
}

func TestByString(t *testing.T) {
	assert.Equal(t, "css", ByQuery.String())
	assert.Equal(t, "xpath", BySearch.String())
}

const fixturePage = `<!doctype html>
<html><body>
  <ul>
    <li><span data-icon="document-filled-refreshed"></span><input id="doc" type="file"></li>
    <li><span data-icon="media-filled-refreshed"></span><input id="media" type="file"></li>
  </ul>
  <button id="hidden" style="display:none">Send</button>
  <button id="send" aria-label="Send" disabled>Send</button>
  <footer><div id="composer" contenteditable="true"></div></footer>
</body></html>`

// newTestSession launches a real browser. It only runs when COURIER_BROWSER_TESTS is set
// because CI images do not ship Chromium.
func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	if testing.Short() || os.Getenv("COURIER_BROWSER_TESTS") == "" {
		t.Skip("set COURIER_BROWSER_TESTS=1 to run browser integration tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fixturePage)
	}))
	t.Cleanup(srv.Close)

	cfg := config.NewDefaultConfig().Browser()
	cfg.Headless = true
	cfg.UserDataDir = t.TempDir()

	s, err := Launch(context.Background(), cfg, Timeouts{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s, srv.URL
}

func TestSessionAgainstFixture(t *testing.T) {
	s, url := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, url))

	t.Run("query snapshot", func(t *testing.T) {
		none, err := s.Query(ctx, "div.does-not-exist", ByQuery)
		require.NoError(t, err)
		assert.Empty(t, none)

		inputs, err := s.Query(ctx, "li input[type='file']", ByQuery)
		require.NoError(t, err)
		assert.Len(t, inputs, 2)

		xp, err := s.Query(ctx, "//button[@aria-label='Send']", BySearch)
		require.NoError(t, err)
		assert.Len(t, xp, 1)
	})

	t.Run("visibility and enabled", func(t *testing.T) {
		hidden, err := s.Query(ctx, "#hidden", ByQuery)
		require.NoError(t, err)
		require.Len(t, hidden, 1)
		vis, err := s.Visible(ctx, hidden[0])
		require.NoError(t, err)
		assert.False(t, vis)

		send, err := s.Query(ctx, "#send", ByQuery)
		require.NoError(t, err)
		enabled, err := s.Enabled(ctx, send[0])
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("ancestor html", func(t *testing.T) {
		inputs, err := s.Query(ctx, "#media", ByQuery)
		require.NoError(t, err)
		html, err := s.AncestorHTML(ctx, inputs[0], "li")
		require.NoError(t, err)
		assert.Contains(t, html, "media-filled-refreshed")
	})

	t.Run("replace text", func(t *testing.T) {
		composer, err := s.Query(ctx, "footer div[contenteditable='true']", ByQuery)
		require.NoError(t, err)
		require.NoError(t, s.ReplaceText(ctx, composer[0], "hello"))
		require.NoError(t, s.ReplaceText(ctx, composer[0], "world"))
		text, err := s.Text(ctx, composer[0])
		require.NoError(t, err)
		assert.Equal(t, "world", text)
	})

	t.Run("evaluate and screenshot", func(t *testing.T) {
		var n int
		require.NoError(t, s.Evaluate(ctx, `document.querySelectorAll('li').length`, &n))
		assert.Equal(t, 2, n)

		png, err := s.Screenshot(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, png)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		assert.NoError(t, s.Close(closeCtx))
		assert.NoError(t, s.Close(closeCtx))
	})
}
