// Package browser drives a real Chrome over the DevTools protocol. It
// launches or attaches to a browser, opens the conversation tab with a
// saved session profile, and implements the driver's Page interface by
// evaluating a snapshot script and a scroll script in the tab.
package browser
