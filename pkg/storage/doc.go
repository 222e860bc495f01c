// Package storage writes finished conversations to disk.
//
// A transcript is exported as plain text (the same lines the sinks receive)
// and optionally as JSON carrying every item with its metadata. Files are
// named <name>-<YYYYMMDD-HHMMSS>.<format> and written through a temporary
// file that is renamed into place, so a crash never leaves a partial
// transcript behind.
//
// Usage:
//
//	manager, err := storage.NewManager("transcripts")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	paths, err := manager.Export(&storage.Transcript{Name: "alice", Items: items},
//	    storage.ExportOptions{Order: storage.OrderChronological, Formats: []string{"txt", "json"}})
package storage
