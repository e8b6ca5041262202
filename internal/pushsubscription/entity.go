package pushsubscription

import (
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/oklog/ulid/v2"
)

// Subscription is one browser endpoint a user registered for web push.
// A user may register several endpoints; each is stored once per endpoint.
type Subscription struct {
	ID        string    `yaml:"id"`
	UserID    string    `yaml:"user_id"`
	Endpoint  string    `yaml:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key"`
	AuthKey   string    `yaml:"auth_key"`
	CreatedAt time.Time `yaml:"created_at"`
}

func New(userID, endpoint, p256dhKey, authKey string, now time.Time) *Subscription {
	return &Subscription{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Endpoint:  endpoint,
		P256dhKey: p256dhKey,
		AuthKey:   authKey,
		CreatedAt: now,
	}
}

// Webpush is the subscription in the shape webpush.SendNotification takes.
func (s *Subscription) Webpush() *webpush.Subscription {
	return &webpush.Subscription{
		Endpoint: s.Endpoint,
		Keys: webpush.Keys{
			P256dh: s.P256dhKey,
			Auth:   s.AuthKey,
		},
	}
}
