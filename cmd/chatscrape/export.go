package main

import (
	"fmt"
	"time"

	"chatscrape/pkg/checkpoint"
	"chatscrape/pkg/config"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/storage"
	"chatscrape/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	exportOutput  string
	exportOrder   string
	exportFormats []string
	exportDelete  bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [conversation]",
	Short: "Write a transcript from a leftover checkpoint",
	Long: `Write a transcript from the checkpoint of a stopped or failed session.

Without an argument the saved checkpoints are listed. The argument is the
conversation name given to extract, or the key shown in the list.`,
	Example: `  chatscrape export
  chatscrape export alice --order chronological --format txt,json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "transcript directory")
	exportCmd.Flags().StringVar(&exportOrder, "order", "", "transcript order (discovery, chronological)")
	exportCmd.Flags().StringSliceVar(&exportFormats, "format", nil, "transcript formats (txt, json)")
	exportCmd.Flags().BoolVar(&exportDelete, "delete", false, "remove the checkpoint once the transcript is written")
}

func runExport(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("output") {
		flags["output"] = exportOutput
	}
	if cmd.Flags().Changed("order") {
		flags["order"] = exportOrder
	}
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	if len(exportFormats) > 0 {
		cfg.Output.Formats = exportFormats
	}
	log := logger.GetLogger()

	if len(args) == 0 {
		return listCheckpoints(cfg, log)
	}

	key := checkpoint.Key(args[0], "")
	journal, err := newJournal(cfg, key, log)
	if err != nil {
		return err
	}
	cp, err := journal.Load()
	if err != nil {
		return err
	}
	if cp == nil {
		return fmt.Errorf("no checkpoint for %q, run 'chatscrape export' to list them", args[0])
	}
	if len(cp.Items) == 0 {
		ui.PrintWarning("Checkpoint holds no items", key)
		return nil
	}

	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		return err
	}
	paths, err := store.Export(&storage.Transcript{
		Name:        args[0],
		URL:         cp.URL,
		Counterpart: cp.Counterpart,
		SessionID:   cp.SessionID,
		Status:      cp.Status,
		Items:       cp.Items,
	}, storage.ExportOptions{
		Order:             cfg.Output.Order,
		Formats:           cfg.Output.Formats,
		IncludeDates:      cfg.Extraction.IncludeDates,
		IncludeTimestamps: cfg.Extraction.IncludeTimestamps,
	})
	if err != nil {
		return err
	}

	for _, p := range paths {
		ui.PrintInfo("Transcript", p)
	}
	if exportDelete {
		return journal.Delete()
	}
	return nil
}

func listCheckpoints(cfg *config.Config, log logger.Logger) error {
	keys, err := checkpoint.List(cfg.Checkpoint.Directory)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		ui.PrintWarning("No checkpoints")
		return nil
	}

	fmt.Fprintf(ui.Out, "%-28s %-10s %-7s %-11s %s\n", "CONVERSATION", "STATUS", "ITEMS", "ITERATIONS", "UPDATED")
	for _, key := range keys {
		journal, err := newJournal(cfg, key, logger.NewNopLogger())
		if err != nil {
			return err
		}
		info, err := journal.GetCheckpointInfo()
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("Unreadable checkpoint")
			continue
		}
		if info == nil {
			continue
		}
		updated, _ := info["updated_at"].(time.Time)
		fmt.Fprintf(ui.Out, "%-28s %-10v %-7v %-11v %s\n",
			key, info["status"], info["items"], info["iterations"], updated.Format("2006-01-02 15:04"))
	}
	return nil
}

// newJournal opens the checkpoint for key in the configured directory
func newJournal(cfg *config.Config, key string, log logger.Logger) (*checkpoint.Manager, error) {
	var (
		manager *checkpoint.Manager
		err     error
	)
	if cfg.Checkpoint.Directory != "" {
		manager, err = checkpoint.NewManagerInDir(cfg.Checkpoint.Directory, key)
	} else {
		manager, err = checkpoint.NewManager(key)
	}
	if err != nil {
		return nil, err
	}
	manager.SetLogger(log)
	return manager, nil
}
