package communication

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/slack-go/slack"

	"visitrack.net/visitrack/model"
)

type Slack struct {
	client  *slack.Client
	options SlackOption
}

type SlackOption struct {
	InfoChannelID  string
	ErrorChannelID string
}

func ConnectSlack(options SlackOption) *Slack {
	token := os.Getenv("SLACK_BOT_TOKEN")
	return NewSlack(token, options)
}

func NewSlack(token string, options SlackOption) *Slack {
	client := slack.New(token)
	return &Slack{client: client, options: options}
}

func (s *Slack) postMessage(channelID, message string) error {
	_, _, err := s.client.PostMessage(
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(message string) error {
	return s.postMessage(s.options.InfoChannelID, message)
}

func (s *Slack) Error(message string) error {
	return s.postMessage(s.options.ErrorChannelID, message)
}

// LogNotifier implements core.VisitorNotifier by logging the would-be SMS.
// Actual delivery to visitors belongs to an external collaborator.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyAlarm(person model.AlarmPerson, message string) {
	n.log.Info("sms notification",
		"visitorId", person.VisitorID,
		"name", person.Name,
		"phone", person.Phone,
		"message", message,
	)
}
