package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookDelivery(t *testing.T) {
	var got webhookPayload
	received := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		received <- struct{}{}
	}))
	defer srv.Close()

	n := New(false, srv.URL, nil)
	n.Send(false, "like_tweet_v3", "Could not find Like button.")

	<-received
	assert.Equal(t, "xlocal", got.Source)
	assert.Equal(t, "like_tweet_v3", got.Endpoint)
	assert.False(t, got.OK)
	assert.Equal(t, "FAIL", got.Status)
	assert.Contains(t, got.Detail, "Like button")
}

func TestUnreachableWebhookDoesNotPanic(t *testing.T) {
	n := New(false, "http://127.0.0.1:1/nope", nil)
	assert.NotPanics(t, func() { n.Send(true, "trends", "completed") })
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.Send(true, "trends", "completed") })
}
