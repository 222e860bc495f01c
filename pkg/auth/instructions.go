package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide explains how to copy a logged-in session's
// cookie header out of a desktop browser
func ShowCookieExtractionGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SESSION COOKIE GUIDE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "chatscrape drives a browser that must already be logged in to the")
	fmt.Fprintln(w, "messaging site. Either attach to a running browser with")
	fmt.Fprintln(w, "`chatscrape session save <name> --control-url ...`, or paste the")
	fmt.Fprintln(w, "site's cookie header here:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Open the messaging site in your browser and log in.")
	fmt.Fprintln(w, "  2. Open Developer Tools (F12, or Cmd+Option+I on macOS).")
	fmt.Fprintln(w, "  3. Network tab, reload the page, select any request to the site.")
	fmt.Fprintln(w, "  4. Under Request Headers copy the whole value of the 'Cookie:' line.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The value looks like: c_user=1234; xs=abcd%3A...; datr=...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "These cookies grant full access to the account. They are stored in")
	fmt.Fprintln(w, "the system keyring or an encrypted file and never printed back.")
	fmt.Fprintln(w, rule)
}

// ShowQuickExtractGuide prints the one-line version
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "F12 -> Network -> reload -> any request to the site -> Request Headers -> Cookie")
	fmt.Fprintln(w, "Type 'help' for detailed instructions")
}
