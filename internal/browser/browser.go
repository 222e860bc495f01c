package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatscrape/pkg/auth"
	"chatscrape/pkg/config"
	"chatscrape/pkg/logger"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const defaultNavigateTimeout = 30 * time.Second

// Browser is a launched or attached Chrome instance
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig
	logger   logger.Logger
}

// New attaches to cfg.ControlURL when set and launches a local Chrome otherwise
func New(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*Browser, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	b := &Browser{cfg: cfg, logger: log}

	wsURL := cfg.ControlURL
	if wsURL != "" {
		log.InfoWithFields("Attaching to browser", map[string]interface{}{"control_url": wsURL})
	} else {
		l := launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		if cfg.UserDataDir != "" {
			l = l.UserDataDir(cfg.UserDataDir)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		wsURL = u
		b.launcher = l
		log.InfoWithFields("Launched browser", map[string]interface{}{
			"headless": cfg.Headless,
			"stealth":  cfg.Stealth,
		})
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		b.kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.browser = rb

	return b, nil
}

// Attached reports whether the browser belongs to someone else
func (b *Browser) Attached() bool {
	return b.launcher == nil
}

// Open returns a page showing pageURL. With ReuseTab an already open tab
// whose URL starts with pageURL is used as is; otherwise a new tab is
// created, the profile applied and the URL loaded.
func (b *Browser) Open(ctx context.Context, pageURL string, profile *auth.Profile) (*Page, error) {
	if b.cfg.ReuseTab {
		if page := b.findTab(pageURL); page != nil {
			b.logger.InfoWithFields("Reusing open tab", map[string]interface{}{"url": pageURL})
			return newPage(page, b.logger), nil
		}
	}

	var (
		page *rod.Page
		err  error
	)
	if b.cfg.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tab: %w", err)
	}

	if profile != nil {
		if err := applyProfile(page, profile, pageURL); err != nil {
			page.Close()
			return nil, err
		}
	}

	timeout := b.cfg.NavigateTimeout
	if timeout <= 0 {
		timeout = defaultNavigateTimeout
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.logger.WarnWithFields("Page load did not finish", map[string]interface{}{
			"url":   pageURL,
			"error": err.Error(),
		})
	}

	return newPage(page, b.logger), nil
}

// Cookies returns the browser's cookies for pageURL's site
func (b *Browser) Cookies(pageURL string) ([]auth.Cookie, error) {
	cookies, err := b.browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return fromNetworkCookies(cookies, hostOf(pageURL)), nil
}

// UserAgent returns the browser's user agent string
func (b *Browser) UserAgent() string {
	v, err := proto.BrowserGetVersion{}.Call(b.browser)
	if err != nil {
		return ""
	}
	return v.UserAgent
}

// Close shuts down a launched browser. An attached browser is left running.
func (b *Browser) Close() error {
	if b.Attached() {
		return nil
	}
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	b.kill()
	return err
}

func (b *Browser) kill() {
	if b.launcher != nil {
		b.launcher.Kill()
	}
}

func (b *Browser) findTab(pageURL string) *rod.Page {
	pages, err := b.browser.Pages()
	if err != nil {
		return nil
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if matchesTab(info.URL, pageURL) {
			return p
		}
	}
	return nil
}

func matchesTab(tabURL, pageURL string) bool {
	return pageURL != "" && strings.HasPrefix(strings.TrimSuffix(tabURL, "/"), strings.TrimSuffix(pageURL, "/"))
}
