package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xlocal/internal/harvest"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestRenderSuccessEnvelope(t *testing.T) {
	got := decode(t, Render(Result{
		OK:       true,
		Endpoint: "user_info",
		Data:     map[string]any{"handle": "someone"},
	}, "none", nil))

	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "user_info", got["endpoint"])
	data := got["data"].(map[string]any)
	assert.Equal(t, "someone", data["handle"])
	_, hasErr := got["error"]
	assert.False(t, hasErr)
}

func TestRenderFailureEnvelope(t *testing.T) {
	got := decode(t, Render(Result{
		OK:       false,
		Endpoint: "trends",
		Data:     map[string]any{},
		Error:    "session is not logged in",
	}, "none", nil))

	assert.Equal(t, false, got["ok"])
	assert.Equal(t, "session is not logged in", got["error"])
	assert.Equal(t, map[string]any{}, got["data"])
}

func TestRenderCompatSuccessEchoesRequest(t *testing.T) {
	got := decode(t, Render(Result{
		OK:       true,
		Endpoint: "send_tweet_v3",
		Data:     map[string]any{"submitted": true},
	}, "aisa", map[string]string{"text": "hello", "tweet_id": ""}))

	assert.Equal(t, true, got["success"])
	assert.Equal(t, "send_tweet_v3", got["endpoint"])
	req := got["request"].(map[string]any)
	assert.Equal(t, "hello", req["text"])
	// Empty echo fields are omitted entirely.
	_, has := req["tweet_id"]
	assert.False(t, has)
}

func TestRenderCompatSuccessWithoutEchoOmitsRequest(t *testing.T) {
	got := decode(t, Render(Result{OK: true, Endpoint: "trends", Data: map[string]any{}}, "aisa", nil))
	_, has := got["request"]
	assert.False(t, has)
}

func TestRenderCompatFailureShape(t *testing.T) {
	got := decode(t, Render(Result{
		OK:       false,
		Endpoint: "like_tweet_v3",
		Error:    "--tweet-id is required",
	}, "aisa", map[string]string{"tweet_id": ""}))

	errObj := got["error"].(map[string]any)
	assert.Equal(t, "", errObj["code"])
	assert.Equal(t, "--tweet-id is required", errObj["message"])
	assert.Equal(t, "new_api_error", errObj["type"])
	_, has := got["success"]
	assert.False(t, has)
}

func TestDedupeIDs(t *testing.T) {
	got := dedupeIDs(" 11, 22 ,11,", []string{"33", "22", ""})
	assert.Equal(t, []string{"11", "22", "33"}, got)

	assert.Empty(t, dedupeIDs("", nil))
}

func TestPickTweetPrefersExactID(t *testing.T) {
	rows := []harvest.Row{
		{"key": "a", "tweet_id": "111"},
		{"key": "b", "tweet_id": "222"},
	}
	got := pickTweet(rows, "222").(map[string]any)
	assert.Equal(t, "222", got["tweet_id"])

	// The status page renders replies too; fall back to the first row when
	// the requested id never appears.
	got = pickTweet(rows, "999").(map[string]any)
	assert.Equal(t, "111", got["tweet_id"])

	assert.Nil(t, pickTweet(nil, "1"))
}

func TestNormalizeHandle(t *testing.T) {
	assert.Equal(t, "someone", normalizeHandle(" @someone "))
	assert.Equal(t, "someone", normalizeHandle("someone"))
	assert.Equal(t, "", normalizeHandle("  "))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 5, clampInt(1, 5, 3600))
	assert.Equal(t, 3600, clampInt(9999, 5, 3600))
	assert.Equal(t, 120, clampInt(120, 5, 3600))
}
