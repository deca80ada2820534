// Package humanoid types text the way a person at a keyboard would. It backs the keystroke
// fallback of the composer, where the structured edit did not take.
package humanoid

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/wait"
)

// minKeyHold is the floor for a sampled key hold.
const minKeyHold = 20 * time.Millisecond

// Keyboard is the slice of browser.Driver the typist needs.
type Keyboard interface {
	SendKeys(ctx context.Context, keys string, mods browser.Modifier) error
}

// Typist sends keystrokes to the focused element. With pacing disabled each line goes out
// as one key burst; with pacing enabled every rune is followed by a sampled hold time and
// every space by a word pause.
type Typist struct {
	cfg      config.HumanoidConfig
	keyboard Keyboard

	mu  sync.Mutex
	rng *rand.Rand

	sleep func(ctx context.Context, d time.Duration) error
}

// NewTypist creates a Typist. A zero seed uses the clock.
func NewTypist(cfg config.HumanoidConfig, keyboard Keyboard, seed int64) *Typist {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Typist{
		cfg:      cfg,
		keyboard: keyboard,
		rng:      rand.New(rand.NewSource(seed)),
		sleep:    wait.Sleep,
	}
}

// Clear selects everything in the focused field and deletes it.
func (t *Typist) Clear(ctx context.Context) error {
	if err := t.keyboard.SendKeys(ctx, "a", browser.ModCtrl); err != nil {
		return fmt.Errorf("humanoid: select all: %w", err)
	}
	if err := t.keyboard.SendKeys(ctx, kb.Backspace, browser.ModNone); err != nil {
		return fmt.Errorf("humanoid: delete selection: %w", err)
	}
	return nil
}

// TypeLines types text line by line. Lines are joined with Shift+Enter so the editor inserts
// a soft newline instead of submitting. Nothing is sent after the last line.
func (t *Typist) TypeLines(ctx context.Context, text string) error {
	lines := SplitLines(text)
	for i, line := range lines {
		if i > 0 {
			if err := t.keyboard.SendKeys(ctx, kb.Enter, browser.ModShift); err != nil {
				return fmt.Errorf("humanoid: soft newline: %w", err)
			}
		}
		if err := t.typeLine(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (t *Typist) typeLine(ctx context.Context, line string) error {
	if line == "" {
		return nil
	}
	if !t.cfg.Enabled {
		if err := t.keyboard.SendKeys(ctx, line, browser.ModNone); err != nil {
			return fmt.Errorf("humanoid: type line: %w", err)
		}
		return nil
	}

	for _, r := range line {
		if err := t.keyboard.SendKeys(ctx, string(r), browser.ModNone); err != nil {
			return fmt.Errorf("humanoid: type %q: %w", r, err)
		}
		pause := t.KeyHold()
		if r == ' ' {
			pause += time.Duration(t.cfg.WordPauseMs * float64(time.Millisecond))
		}
		if err := t.sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// KeyHold samples a key hold time from N(mean, stddev), floored at minKeyHold.
func (t *Typist) KeyHold() time.Duration {
	t.mu.Lock()
	n := t.rng.NormFloat64()
	t.mu.Unlock()

	d := time.Duration((n*t.cfg.KeyHoldStdDevMs + t.cfg.KeyHoldMeanMs) * float64(time.Millisecond))
	if d < minKeyHold {
		return minKeyHold
	}
	return d
}

// SplitLines normalizes CRLF and lone CR to LF and splits on LF.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
