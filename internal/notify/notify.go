// Package notify delivers best-effort completion notifications: a local
// desktop popup and an optional JSON webhook. Delivery failure never aborts
// the command that triggered it.
package notify

import (
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const title = "xlocal"

// Notifier fans a command outcome out to the configured channels.
type Notifier struct {
	Desktop    bool
	WebhookURL string
	Log        *slog.Logger

	client *resty.Client
}

func New(desktop bool, webhookURL string, log *slog.Logger) *Notifier {
	return &Notifier{
		Desktop:    desktop,
		WebhookURL: webhookURL,
		Log:        log,
		client:     resty.New().SetTimeout(10 * time.Second),
	}
}

type webhookPayload struct {
	Source   string `json:"source"`
	Endpoint string `json:"endpoint"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail"`
	Status   string `json:"status"`
}

// Send pushes the outcome to every enabled channel, swallowing per-channel
// failures after logging them.
func (n *Notifier) Send(ok bool, endpoint, detail string) {
	if n == nil {
		return
	}
	status := "OK"
	if !ok {
		status = "FAIL"
	}
	message := endpoint + ": " + status + " - " + detail

	if n.Desktop {
		if err := sendDesktop(title, message); err != nil && n.Log != nil {
			n.Log.Debug("desktop notification failed", slog.String("err", err.Error()))
		}
	}
	if n.WebhookURL != "" {
		_, err := n.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(webhookPayload{
				Source:   "xlocal",
				Endpoint: endpoint,
				OK:       ok,
				Detail:   detail,
				Status:   status,
			}).
			Post(n.WebhookURL)
		if err != nil && n.Log != nil {
			n.Log.Debug("webhook notification failed", slog.String("err", err.Error()))
		}
	}
}

func sendDesktop(title, message string) error {
	switch runtime.GOOS {
	case "darwin":
		script := `display notification "` + escapeQuotes(message) + `" with title "` + escapeQuotes(title) + `"`
		return exec.Command("osascript", "-e", script).Run()
	case "linux":
		return exec.Command("notify-send", title, message).Run()
	case "windows":
		ps := "[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] > $null;" +
			"$xml = New-Object Windows.Data.Xml.Dom.XmlDocument;" +
			`$xml.LoadXml("<toast><visual><binding template=\"ToastGeneric\"><text>` + title +
			`</text><text>` + message + `</text></binding></visual></toast>");` +
			"$toast = [Windows.UI.Notifications.ToastNotification]::new($xml);" +
			`$notifier = [Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("xlocal");` +
			"$notifier.Show($toast);"
		return exec.Command("powershell", "-Command", ps).Run()
	}
	return nil
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
