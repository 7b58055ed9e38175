package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xlocal/internal/config"
)

var endpointNames = []string{
	"user_login_v3", "refresh_login_v3", "get_my_x_account_detail_v3",
	"send_tweet_v3", "create_tweet_v2", "upload_media_v2",
	"like_tweet_v3", "like_tweet_v2", "unlike_tweet_v2",
	"retweet_v3", "retweet_tweet_v2", "delete_tweet_v2",
	"get_tweet_by_ids", "tweetById", "tweets",
	"tweet_replies", "tweet_quotes", "tweet_retweeters", "tweet_thread_context",
	"follow_user_v2", "unfollow_user_v2", "send_dm_to_user",
	"update_profile_v3", "update_profile_v2", "update_avatar_v2", "update_banner_v2",
	"user_info", "user_last_tweets", "user_last_tweet",
	"user_followers", "user_followings", "user_search", "search_user",
	"home_timeline", "notifications_list",
	"tweet_advanced_search", "advanced_search", "trends",
	"spaces_detail", "spaces_live", "spaces_listen",
	"stream_start", "stream_status", "stream_stop", "stream_live_search",
}

func TestRootCommandCoversEndpointSurface(t *testing.T) {
	cfg, err := config.Load("does-not-exist.yaml")
	require.NoError(t, err)
	root := NewRootCmd(cfg, nil)

	have := map[string]bool{}
	for _, c := range root.Commands() {
		have[c.Name()] = true
	}
	for _, name := range endpointNames {
		assert.True(t, have[name], "missing subcommand %s", name)
	}
}

func TestRootCommandGlobalFlags(t *testing.T) {
	cfg, err := config.Load("does-not-exist.yaml")
	require.NoError(t, err)
	root := NewRootCmd(cfg, nil)

	for _, flag := range []string{
		"browser", "chrome-profile", "chrome-profile-name",
		"visible", "notify", "notify-webhook", "compat-provider",
	} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag --%s", flag)
	}
	assert.Equal(t, "chrome", root.PersistentFlags().Lookup("browser").DefValue)
}
