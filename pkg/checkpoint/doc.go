// Package checkpoint journals extraction sessions so they can be resumed.
//
// A checkpoint holds every item emitted so far together with the last
// sequence number, iteration count and status. The driver records it after
// every productive iteration and once more at the end. Resuming seeds a new
// session with the stored items so nothing is emitted twice.
//
// Checkpoints are stored per conversation key in platform-specific data
// directories unless a directory is configured:
//   - Linux: ~/.local/share/chatscrape/checkpoints/
//   - macOS: ~/Library/Application Support/chatscrape/checkpoints/
//   - Windows: %APPDATA%/chatscrape/checkpoints/
//
// Files are written atomically through a temporary file and rename.
package checkpoint
