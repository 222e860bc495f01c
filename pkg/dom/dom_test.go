package dom

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<html><head><title>Alice | Messenger</title>
<meta name="cs-viewport" content="1000x700"></head>
<body>
<div id="row" data-cs-rect="10,20,300,40">
  <span>Alice</span>
  <div dir="auto">Hello <b>there</b>,&nbsp;friend<br>second   line</div>
  <script>var x = 1;</script>
</div>
<div id="hidden" data-cs-rect="0,0,0,0">ghost</div>
<div id="nogeo">x</div>
</body></html>`

func TestParseReadsViewportAndTitle(t *testing.T) {
	snap, err := ParseString(sample, 1280, 800)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, snap.ViewportWidth)
	assert.Equal(t, 700.0, snap.ViewportHeight)
	assert.Equal(t, "Alice | Messenger", snap.Title)
	assert.Equal(t, Rect{W: 1000, H: 700}, snap.Viewport())
}

func TestRectOf(t *testing.T) {
	snap, err := ParseString(sample, 1280, 800)
	require.NoError(t, err)

	r, ok := RectOf(snap.Doc.Find("#row"))
	require.True(t, ok)
	assert.Equal(t, Rect{X: 10, Y: 20, W: 300, H: 40}, r)
	assert.Equal(t, 310.0, r.Right())
	assert.Equal(t, 160.0, r.CenterX())

	r, ok = RectOf(snap.Doc.Find("#hidden"))
	require.True(t, ok)
	assert.True(t, r.Empty())

	_, ok = RectOf(snap.Doc.Find("#nogeo"))
	assert.False(t, ok)

	_, ok = ParseRect("1,2,three,4")
	assert.False(t, ok)
}

func TestLinesBreakAtBlocksAndKeepInlineText(t *testing.T) {
	snap, err := ParseString(sample, 1280, 800)
	require.NoError(t, err)

	row := snap.Doc.Find("#row")
	lines := Lines(row)

	assert.Equal(t, []string{"Alice", "Hello there, friend", "second line"}, LineTexts(lines))
	assert.Equal(t, "span", lines[0].Owner.Data)
	assert.Equal(t, "div", lines[1].Owner.Data)
	assert.NotSame(t, row.Get(0), lines[1].Owner)
	assert.Equal(t, "Alice Hello there, friend second line", Text(row))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\t\n b\u200b c  "))
	assert.Equal(t, "", Normalize(" \n "))
}

func TestOrderFollowsDocument(t *testing.T) {
	snap, err := ParseString(sample, 1280, 800)
	require.NoError(t, err)

	row := snap.Doc.Find("#row").Get(0)
	hidden := snap.Doc.Find("#hidden").Get(0)
	assert.Less(t, snap.Order(row), snap.Order(hidden))
	assert.Equal(t, -1, snap.Order(nil))
}

func TestStaticPageAdvancesAndClamps(t *testing.T) {
	page := NewStaticPage("<p>one</p>", "<p>two</p>")
	ctx := context.Background()

	snap, err := page.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", Text(snap.Doc.Find("p")))
	assert.Equal(t, float64(DefaultViewportWidth), snap.ViewportWidth)

	target := ScrollTarget{Rect: Rect{W: 10, H: 10}, Valid: true}
	require.NoError(t, page.ScrollToOldest(ctx, target))
	require.NoError(t, page.ScrollToOldest(ctx, ScrollTarget{}))

	snap, err = page.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", Text(snap.Doc.Find("p")))
	assert.Equal(t, 2, page.Scrolls())
	assert.Equal(t, 1, page.Frame())
	assert.Equal(t, target, page.Targets()[0])
}

func TestStaticPageHonoursContext(t *testing.T) {
	page := NewStaticPage("<p>x</p>")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := page.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, page.ScrollToOldest(ctx, ScrollTarget{}), context.Canceled)
}

func TestLoadStaticPage(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.html")
	require.NoError(t, os.WriteFile(a, []byte("<p>saved</p>"), 0644))

	page, err := LoadStaticPage(a)
	require.NoError(t, err)
	snap, err := page.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "saved", Text(snap.Doc.Find("p")))
	assert.Equal(t, "file://"+a, snap.URL)

	_, err = LoadStaticPage()
	assert.Error(t, err)
	_, err = LoadStaticPage(filepath.Join(dir, "missing.html"))
	assert.Error(t, err)
}
