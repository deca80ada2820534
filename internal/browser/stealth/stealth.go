// internal/browser/stealth/stealth.go
package stealth

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

// Persona is the desktop identity the web client sees. A headless Chromium otherwise
// announces itself as HeadlessChrome and is served a reduced page.
type Persona struct {
	UserAgent string   `json:"userAgent"`
	Platform  string   `json:"platform"`
	Languages []string `json:"languages"`
	Locale    string   `json:"locale,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
}

// FromConfig maps the persona section of the browser configuration.
func FromConfig(cfg config.PersonaConfig) Persona {
	return Persona{
		UserAgent: cfg.UserAgent,
		Platform:  cfg.Platform,
		Languages: cfg.Languages,
		Locale:    cfg.Locale,
		Timezone:  cfg.Timezone,
	}
}

// evasionScript runs before any page script on every new document.
const evasionScript = `(() => {
  const persona = %s;
  const define = (obj, prop, value) => {
    try { Object.defineProperty(obj, prop, { get: () => value, configurable: true }); } catch (e) {}
  };
  define(Navigator.prototype, 'webdriver', undefined);
  if (persona.platform) define(Navigator.prototype, 'platform', persona.platform);
  if (persona.languages && persona.languages.length) {
    define(Navigator.prototype, 'languages', Object.freeze(persona.languages.slice()));
    define(Navigator.prototype, 'language', persona.languages[0]);
  }
  if (!window.chrome) { window.chrome = { runtime: {} }; }
})();`

// Apply orchestrates the persona overrides as one sequential task list.
func Apply(persona Persona, logger *zap.Logger) chromedp.Action {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := logger.Named("stealth")
	return chromedp.Tasks{
		network.Enable(),
		setExtraHTTPHeaders(persona, l),
		setUserAgent(persona, l),
		setEnvironmentOverrides(persona, l),
		injectEvasionScript(persona, l),
		chromedp.ActionFunc(func(ctx context.Context) error {
			l.Debug("Persona applied", zap.String("user_agent", persona.UserAgent))
			return nil
		}),
	}
}

// EvasionScript renders the init script for persona.
func EvasionScript(persona Persona) (string, error) {
	personaJSON, err := json.Marshal(persona)
	if err != nil {
		return "", fmt.Errorf("stealth: failed to marshal persona: %w", err)
	}
	return fmt.Sprintf(evasionScript, personaJSON), nil
}

func injectEvasionScript(persona Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		script, err := EvasionScript(persona)
		if err != nil {
			return err
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
			logger.Error("Failed to register evasion script", zap.Error(err))
			return fmt.Errorf("stealth: failed to add script on new document: %w", err)
		}
		return nil
	})
}

func setUserAgent(persona Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if persona.UserAgent == "" {
			return nil
		}
		override := emulation.SetUserAgentOverride(persona.UserAgent).
			WithPlatform(persona.Platform).
			WithAcceptLanguage(strings.Join(persona.Languages, ","))
		if err := override.Do(ctx); err != nil {
			logger.Error("Failed to set user agent override", zap.Error(err))
			return fmt.Errorf("stealth: failed to set user agent override: %w", err)
		}
		return nil
	})
}

// AcceptLanguage formats languages with descending q-values, floored at 0.7.
func AcceptLanguage(languages []string) string {
	if len(languages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(languages[0])
	for i := 1; i < len(languages); i++ {
		q := 1.0 - float64(i)*0.1
		if q < 0.7 {
			q = 0.7
		}
		fmt.Fprintf(&b, ",%s;q=%.1f", languages[i], q)
	}
	return b.String()
}

func setExtraHTTPHeaders(persona Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		lang := AcceptLanguage(persona.Languages)
		if lang == "" {
			return nil
		}
		headers := network.Headers{"Accept-Language": lang}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			logger.Error("Failed to set extra HTTP headers", zap.Error(err))
			return fmt.Errorf("stealth: failed to set extra http headers: %w", err)
		}
		return nil
	})
}

func setEnvironmentOverrides(persona Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if persona.Timezone != "" {
			if err := emulation.SetTimezoneOverride(persona.Timezone).Do(ctx); err != nil {
				logger.Error("Failed to set timezone override", zap.Error(err))
				return fmt.Errorf("stealth: failed to set timezone: %w", err)
			}
		}
		if persona.Locale != "" {
			locale := strings.ReplaceAll(persona.Locale, "_", "-")
			if err := emulation.SetLocaleOverride().WithLocale(locale).Do(ctx); err != nil {
				logger.Error("Failed to set locale override", zap.Error(err))
				return fmt.Errorf("stealth: failed to set locale: %w", err)
			}
		}
		return nil
	})
}
