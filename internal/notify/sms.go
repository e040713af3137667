package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/config"
)

type SMSNotifier struct {
	gatewayURL string
	sender     string
	client     *http.Client
	log        *zap.Logger
}

var _ Notifier = (*SMSNotifier)(nil)

func NewSMSNotifier(cfg config.NotifyConfig, log *zap.Logger) *SMSNotifier {
	return &SMSNotifier{
		gatewayURL: cfg.SMSGatewayURL,
		sender:     cfg.SMSSender,
		client:     &http.Client{Timeout: cfg.SendTimeout},
		log:        log,
	}
}

func (n *SMSNotifier) Channel() config.NotifyChannel {
	return config.ChannelSMS
}

type smsPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// Send posts the message body to the SMS gateway. Attachments cannot travel
// over SMS and are dropped.
func (n *SMSNotifier) Send(ctx context.Context, to string, msg Message) error {
	payload, err := json.Marshal(smsPayload{
		From: n.sender,
		To:   to,
		Body: msg.Body,
	})
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Error("sms delivery failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.log.Error("sms gateway rejected message",
			zap.String("to", to),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: gateway returned status %d", ErrSendFailed, resp.StatusCode)
	}

	n.log.Info("sms sent", zap.String("to", to))
	return nil
}
