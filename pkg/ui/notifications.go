package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"chatscrape/pkg/config"
	"chatscrape/pkg/driver"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	quote := func(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode(%s)) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode(%s)) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("chatscrape").Show($toast)
	`, quote(title), quote(message))
	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier sends a desktop notification when a session ends. It implements
// driver.Reporter and ignores progress.
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
	name   string
}

// NewNotifier picks the sender for the current platform
func NewNotifier(cfg config.NotificationConfig, name string) *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}
	return NewNotifierWithSender(cfg, name, sender)
}

// NewNotifierWithSender uses an explicit sender, nil disables delivery
func NewNotifierWithSender(cfg config.NotificationConfig, name string, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, cfg: cfg, name: name}
}

// Progress is ignored
func (n *Notifier) Progress(driver.Progress) {}

// Completed notifies on success or failure as configured
func (n *Notifier) Completed(c driver.Completion) {
	if !n.cfg.Enabled || n.sender == nil {
		return
	}

	switch c.Reason {
	case driver.StateCompleted:
		if n.cfg.OnComplete {
			n.send("Extraction complete", fmt.Sprintf("%d items from %s", c.TotalItems, n.name))
		}
	case driver.StateFailed:
		if n.cfg.OnError {
			msg := fmt.Sprintf("%s failed after %d items", n.name, c.TotalItems)
			if c.Err != nil {
				msg += ": " + c.Err.Error()
			}
			n.send("Extraction failed", msg)
		}
	}
}

// Notifications are best effort
func (n *Notifier) send(title, message string) {
	_ = n.sender.Send(title, message)
}
