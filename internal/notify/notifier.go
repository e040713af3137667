package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/config"
)

// ErrSendFailed wraps delivery failures from either channel.
var ErrSendFailed = errors.New("notification delivery failed")

type Message struct {
	Subject string
	Body    string

	// Attachment is optional; channels that cannot carry one ignore it.
	Attachment     []byte
	AttachmentName string
}

// Notifier delivers a message to a single recipient. The concrete channel is
// chosen once at startup from configuration and injected; nothing looks the
// channel up per call.
type Notifier interface {
	Channel() config.NotifyChannel
	Send(ctx context.Context, to string, msg Message) error
}

// New selects the notifier for the configured channel.
func New(cfg config.NotifyConfig, log *zap.Logger) (Notifier, error) {
	switch cfg.Channel {
	case config.ChannelEmail:
		return NewEmailNotifier(cfg, log), nil
	case config.ChannelSMS:
		return NewSMSNotifier(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown notify channel %q", cfg.Channel)
	}
}
