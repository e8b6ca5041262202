package pushnotification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/internal/pushsubscription"
)

type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

type sendFunc func(data []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

type Sender struct {
	pushEnv *config.PushEnv
	repo    pushsubscription.Repository
	send    sendFunc
}

func NewSender(pushEnv *config.PushEnv, repo pushsubscription.Repository) *Sender {
	return &Sender{
		pushEnv: pushEnv,
		repo:    repo,
		send:    webpush.SendNotification,
	}
}

func (s *Sender) Enabled() bool {
	return s.pushEnv.VAPIDPrivateKey != "" && s.pushEnv.VAPIDPublicKey != ""
}

// SendToUser delivers payload to every endpoint userID registered. Expired
// endpoints are removed.
func (s *Sender) SendToUser(ctx context.Context, userID string, payload *NotificationPayload) {
	if !s.Enabled() {
		slog.DebugContext(ctx, "push notification: VAPID keys not configured, skipping")
		return
	}

	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to list subscriptions", "user_id", userID, "error", err)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to marshal payload", "error", err)
		return
	}

	for _, sub := range subs {
		s.sendToSubscription(ctx, sub, data)
	}
}

func (s *Sender) sendToSubscription(ctx context.Context, sub *pushsubscription.Subscription, data []byte) {
	resp, err := s.send(data, sub.Webpush(), &webpush.Options{
		VAPIDPublicKey:  s.pushEnv.VAPIDPublicKey,
		VAPIDPrivateKey: s.pushEnv.VAPIDPrivateKey,
		Subscriber:      s.pushEnv.VAPIDContact,
		TTL:             3600,
	})
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to send", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		slog.InfoContext(ctx, "push notification: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.repo.DeleteByEndpoint(ctx, sub.UserID, sub.Endpoint); err != nil {
			slog.ErrorContext(ctx, "push notification: failed to delete expired subscription", "id", sub.ID, "error", err)
		}
		return
	}

	if resp.StatusCode >= 400 {
		slog.WarnContext(ctx, "push notification: unexpected status", "endpoint", sub.Endpoint, "status", resp.StatusCode)
	}
}
