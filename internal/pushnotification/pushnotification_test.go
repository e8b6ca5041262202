package pushnotification

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/eisenhower/internal/auth"
	"github.com/kazz187/eisenhower/internal/config"
	"github.com/kazz187/eisenhower/internal/eventbus"
	"github.com/kazz187/eisenhower/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/eisenhower/pkg/cerr"
	"github.com/kazz187/eisenhower/pkg/storage"
)

type sent struct {
	endpoint string
	payload  string
}

func newTestSender(env *config.PushEnv, status map[string]int) (*Sender, *Server, *[]sent, *sync.Mutex) {
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	sender := NewSender(env, repo)
	var (
		mu  sync.Mutex
		out []sent
	)
	sender.send = func(data []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
		mu.Lock()
		out = append(out, sent{endpoint: sub.Endpoint, payload: string(data)})
		mu.Unlock()
		code := http.StatusCreated
		if c, ok := status[sub.Endpoint]; ok {
			code = c
		}
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	return sender, NewServer(env, repo), &out, &mu
}

var keys = &config.PushEnv{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv", VAPIDContact: "mailto:ops@example.com"}

func register(t *testing.T, srv *Server, userID, endpoint string) {
	t.Helper()
	ctx := auth.ContextWithUserID(context.Background(), userID)
	_, err := srv.RegisterSubscription(ctx, &RegisterSubscriptionRequest{Endpoint: endpoint, P256dhKey: "p", AuthKey: "a"})
	require.NoError(t, err)
}

func TestSendToUser(t *testing.T) {
	sender, srv, out, mu := newTestSender(keys, map[string]int{"https://push/gone": http.StatusGone})
	register(t, srv, "u1", "https://push/ok")
	register(t, srv, "u1", "https://push/gone")
	register(t, srv, "u2", "https://push/other")

	ctx := context.Background()
	sender.SendToUser(ctx, "u1", &NotificationPayload{Title: "Schedule updated", Body: "2 task(s) were scheduled."})

	mu.Lock()
	require.Len(t, *out, 2)
	for _, s := range *out {
		assert.NotEqual(t, "https://push/other", s.endpoint)
		assert.Contains(t, s.payload, `"title":"Schedule updated"`)
	}
	mu.Unlock()

	subs, err := sender.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push/ok", subs[0].Endpoint)
}

func TestSendToUserWithoutKeys(t *testing.T) {
	sender, srv, out, _ := newTestSender(&config.PushEnv{}, nil)
	register(t, srv, "u1", "https://push/ok")
	sender.SendToUser(context.Background(), "u1", &NotificationPayload{Title: "x"})
	assert.Empty(t, *out)

	_, err := srv.GetVapidPublicKey(context.Background(), &GetVapidPublicKeyRequest{})
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestPayloadFor(t *testing.T) {
	p := payloadFor(&eventbus.Event{ID: "e1", Type: eventbus.ScheduleCompleted, Metadata: map[string]string{"scheduled": "3"}})
	require.NotNil(t, p)
	assert.Equal(t, "3 task(s) were scheduled.", p.Body)
	assert.Equal(t, "e1", p.Tag)

	assert.NotNil(t, payloadFor(&eventbus.Event{Type: eventbus.ScheduleFailed}))
	assert.Nil(t, payloadFor(&eventbus.Event{Type: eventbus.TaskCreated}))
}

func TestServerValidation(t *testing.T) {
	_, srv, _, _ := newTestSender(keys, nil)
	ctx := auth.ContextWithUserID(context.Background(), "u1")

	res, err := srv.GetVapidPublicKey(ctx, &GetVapidPublicKeyRequest{})
	require.NoError(t, err)
	assert.Equal(t, "pub", res.PublicKey)

	_, err = srv.RegisterSubscription(ctx, &RegisterSubscriptionRequest{})
	var cErr *cerr.Error
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, cerr.InvalidArgument, cErr.Code)
	assert.Len(t, cErr.Details, 3)

	_, err = srv.UnregisterSubscription(ctx, &UnregisterSubscriptionRequest{})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = srv.UnregisterSubscription(context.Background(), &UnregisterSubscriptionRequest{Endpoint: "x"})
	assert.True(t, cerr.IsCode(err, cerr.Unauthenticated))
}
