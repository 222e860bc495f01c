package browser

import (
	"testing"
	"time"

	"chatscrape/pkg/auth"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot(t *testing.T) {
	raw := `{"html":"<html><head><title>x</title></head><body data-cs-rect=\"0,0,1280,800\"><div data-cs-rect=\"10,20,300,40\">hi</div></body></html>","width":1280,"height":800,"title":"Alice | Messenger","url":"https://www.messenger.com/t/1"}`

	snap, err := decodeSnapshot(raw)
	require.NoError(t, err)

	assert.Equal(t, "Alice | Messenger", snap.Title)
	assert.Equal(t, "https://www.messenger.com/t/1", snap.URL)
	assert.Equal(t, float64(1280), snap.Viewport().W)
	assert.Equal(t, "hi", snap.Body().Find("div").Text())
}

func TestDecodeSnapshotErrors(t *testing.T) {
	_, err := decodeSnapshot("not json")
	assert.Error(t, err)

	_, err = decodeSnapshot(`{"html":""}`)
	assert.Error(t, err)
}

func TestMatchesTab(t *testing.T) {
	assert.True(t, matchesTab("https://www.messenger.com/t/42/", "https://www.messenger.com/t/42"))
	assert.True(t, matchesTab("https://www.messenger.com/t/42?x=1", "https://www.messenger.com/t/42"))
	assert.False(t, matchesTab("https://www.messenger.com/t/7", "https://www.messenger.com/t/42"))
	assert.False(t, matchesTab("about:blank", ""))
}

func TestToCookieParams(t *testing.T) {
	expires := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	params := toCookieParams([]auth.Cookie{
		{Name: "xs", Value: "token", Domain: ".messenger.com", Path: "/", Secure: true, HTTPOnly: true, Expires: expires},
		{Name: "c_user", Value: "42"},
	}, "www.messenger.com")

	require.Len(t, params, 2)
	assert.Equal(t, ".messenger.com", params[0].Domain)
	assert.True(t, params[0].HTTPOnly)
	assert.Equal(t, proto.TimeSinceEpoch(expires.Unix()), params[0].Expires)
	assert.Equal(t, "www.messenger.com", params[1].Domain, "domainless cookies are scoped to the page host")
	assert.Equal(t, "/", params[1].Path)
	assert.Zero(t, params[1].Expires)
}

func TestFromNetworkCookies(t *testing.T) {
	cookies := []*proto.NetworkCookie{
		{Name: "xs", Value: "token", Domain: ".messenger.com", Path: "/", Expires: 1798761600, Secure: true},
		{Name: "datr", Value: "d", Domain: "www.messenger.com", Path: "/"},
		{Name: "other", Value: "o", Domain: ".example.org", Path: "/"},
	}

	out := fromNetworkCookies(cookies, "www.messenger.com")

	require.Len(t, out, 2)
	assert.Equal(t, "xs", out[0].Name)
	assert.Equal(t, int64(1798761600), out[0].Expires.Unix())
	assert.True(t, out[1].Expires.IsZero())

	assert.Len(t, fromNetworkCookies(cookies, ""), 3, "no host keeps everything")
}

func TestDomainMatches(t *testing.T) {
	tests := []struct {
		domain, host string
		want         bool
	}{
		{".messenger.com", "www.messenger.com", true},
		{"messenger.com", "messenger.com", true},
		{"www.messenger.com", "www.messenger.com", true},
		{"static.messenger.com", "www.messenger.com", true},
		{".facebook.com", "www.messenger.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domainMatches(tt.domain, tt.host), "%s vs %s", tt.domain, tt.host)
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "www.messenger.com", hostOf("https://www.messenger.com/t/1"))
	assert.Equal(t, "", hostOf("::"))
}
