package main

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"chatscrape/internal/browser"
	"chatscrape/pkg/auth"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	sessionSiteURL    string
	sessionControlURL string
	sessionUserAgent  string
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved browser sessions",
	Long: `Manage saved session profiles for the messaging site.

A profile holds the site's cookies and the browser's user agent, so a
freshly launched browser can open conversations without logging in.
Profiles are stored in:
  - The system keychain (when available)
  - An encrypted file with PBKDF2 key derivation
  - CHATSCRAPE_COOKIES (read-only)

Never share your profiles or cookie values!`,
}

// saveCmd represents the session save command
var saveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the cookies of a running, logged-in browser",
	Example: `  chrome --remote-debugging-port=9222
  chatscrape session save work --url https://www.messenger.com --control-url ws://127.0.0.1:9222/devtools/browser/abc`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionSave,
}

// importCmd represents the session import command
var importCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Store a pasted cookie header as a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionImport,
}

// sessionListCmd represents the session list command
var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE:  runSessionList,
}

// deleteCmd represents the session delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(saveCmd)
	sessionCmd.AddCommand(importCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(deleteCmd)

	saveCmd.Flags().StringVar(&sessionSiteURL, "url", "", "page of the messaging site whose cookies are saved")
	saveCmd.Flags().StringVar(&sessionControlURL, "control-url", "", "DevTools websocket URL of the running browser")
	_ = saveCmd.MarkFlagRequired("url")
	_ = saveCmd.MarkFlagRequired("control-url")

	importCmd.Flags().StringVar(&sessionSiteURL, "url", "", "page of the messaging site the cookies belong to")
	importCmd.Flags().StringVar(&sessionUserAgent, "user-agent", "", "user agent of the browser the cookies came from")
	_ = importCmd.MarkFlagRequired("url")
}

func runSessionSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]interface{}{"control-url": sessionControlURL})
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize profile store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b, err := browser.New(ctx, cfg.Browser, log)
	if err != nil {
		return err
	}
	defer b.Close()

	cookies, err := b.Cookies(sessionSiteURL)
	if err != nil {
		return err
	}
	if len(cookies) == 0 {
		return fmt.Errorf("the browser holds no cookies for %s, log in first", sessionSiteURL)
	}

	profile := &auth.Profile{
		Name:         args[0],
		Site:         siteHost(sessionSiteURL),
		Cookies:      cookies,
		UserAgent:    b.UserAgent(),
		LastModified: time.Now(),
	}
	if err := manager.Store(profile); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Profile saved: %s (%d cookies)", profile.Name, len(cookies)))
	fmt.Fprintf(ui.Out, "\nUse it with:\n  chatscrape extract <conversation-url> --profile %s\n", profile.Name)
	return nil
}

func runSessionImport(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize profile store: %w", err)
	}

	name := args[0]
	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(ui.Out, "Profile '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	auth.ShowQuickExtractGuide(ui.Out)

	domain := siteHost(sessionSiteURL)
	var cookies []auth.Cookie
	for cookies == nil {
		fmt.Fprint(ui.Out, "\nCookie header (hidden): ")
		header, err := readSecret(reader)
		if err != nil {
			return fmt.Errorf("failed to read cookie header: %w", err)
		}

		if strings.EqualFold(strings.TrimSpace(header), "help") {
			auth.ShowCookieExtractionGuide(ui.Out)
			continue
		}

		cookies, err = auth.ParseCookieHeader(header, domain)
		if err != nil {
			ui.PrintError("That does not look like a cookie header", err)
			fmt.Fprint(ui.Out, "Try again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				return err
			}
		}
	}

	profile := &auth.Profile{
		Name:         name,
		Site:         domain,
		Cookies:      cookies,
		UserAgent:    sessionUserAgent,
		LastModified: time.Now(),
	}
	if err := manager.Store(profile); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Profile saved: %s (%d cookies for %s)", name, len(cookies), domain))
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize profile store: %w", err)
	}

	profiles, err := manager.List()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		ui.PrintWarning("No saved profiles")
		fmt.Fprintln(ui.Out, "Create one with 'chatscrape session import <name> --url <site>'")
		return nil
	}

	fmt.Fprintf(ui.Out, "%-20s %-28s %-8s %s\n", "NAME", "SITE", "COOKIES", "MODIFIED")
	for _, p := range profiles {
		safe := auth.SanitizeProfile(p)
		modified := "-"
		if !safe.LastModified.IsZero() {
			modified = safe.LastModified.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(ui.Out, "%-20s %-28s %-8d %s\n", safe.Name, safe.Site, len(safe.Cookies), modified)
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize profile store: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Profile removed: " + args[0])
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Out)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// siteHost returns the host of a site URL, or the input when it has none
func siteHost(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Hostname()
	}
	return strings.TrimSpace(raw)
}
