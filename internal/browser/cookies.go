package browser

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"chatscrape/pkg/auth"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// applyProfile installs the profile's user agent and cookies before navigation
func applyProfile(page *rod.Page, profile *auth.Profile, pageURL string) error {
	if profile.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: profile.UserAgent}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	if len(profile.Cookies) == 0 {
		return nil
	}
	if err := page.SetCookies(toCookieParams(profile.Cookies, hostOf(pageURL))); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

// toCookieParams converts stored cookies, scoping domainless ones to host
func toCookieParams(cookies []auth.Cookie, host string) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = host
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   domain,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Expires.IsZero() {
			p.Expires = proto.TimeSinceEpoch(c.Expires.Unix())
		}
		params = append(params, p)
	}
	return params
}

// fromNetworkCookies keeps the cookies that apply to host
func fromNetworkCookies(cookies []*proto.NetworkCookie, host string) []auth.Cookie {
	var out []auth.Cookie
	for _, c := range cookies {
		if host != "" && !domainMatches(c.Domain, host) {
			continue
		}
		cookie := auth.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0).UTC()
		}
		out = append(out, cookie)
	}
	return out
}

// domainMatches reports whether a cookie domain covers host, including the
// registrable parent (".messenger.com" covers "www.messenger.com")
func domainMatches(cookieDomain, host string) bool {
	d := strings.TrimPrefix(strings.ToLower(cookieDomain), ".")
	h := strings.ToLower(host)
	if d == h || strings.HasSuffix(h, "."+d) {
		return true
	}
	parts := strings.Split(h, ".")
	if len(parts) > 2 {
		parent := strings.Join(parts[len(parts)-2:], ".")
		return d == parent || strings.HasSuffix(d, "."+parent)
	}
	return false
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
