// internal/browser/options.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

// LaunchFlags computes the Chromium command-line switches for cfg, keyed by switch name
// without the leading dashes. A false value removes a switch that chromedp enables by default.
func LaunchFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		// chromedp turns these on by default; both give the automation away.
		"enable-automation": false,
		"headless":          false,

		"disable-blink-features": "AutomationControlled",
		"disable-notifications":  true,
		"disable-extensions":     true,
		"no-sandbox":             true,
		"disable-dev-shm-usage":  true,
	}

	if cfg.DisableGPU {
		flags["disable-gpu"] = true
	}

	if cfg.Headless {
		flags["headless"] = "new"
		if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
			flags["window-size"] = fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)
		}
	} else {
		flags["start-maximized"] = true
	}

	if cfg.UserDataDir != "" {
		flags["user-data-dir"] = cfg.UserDataDir
	}
	if ua := cfg.Persona.UserAgent; ua != "" {
		flags["user-agent"] = ua
	}

	// Custom arguments from config.yaml win over everything above.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimLeft(parts[0], "-")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}
	return flags
}

// AllocatorOptions assembles the exec allocator options for a persistent-profile session.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range LaunchFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
