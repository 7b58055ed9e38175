package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"xlocal/internal/fault"
)

func probeScript(sel, text string) string {
	return fmt.Sprintf(`(() => {
  const want = %q.toLowerCase();
  for (const el of document.querySelectorAll(%q)) {
    if (el.offsetParent === null) continue;
    if ((el.innerText || "").toLowerCase().includes(want)) return true;
  }
  return false;
})()`, text, sel)
}

// The single-action endpoints are thin navigate/locate/click sequences over
// the session primitives. Each one reports its observable outcome rather
// than assuming the click took effect.

// Compose opens the composer, fills text and optional media, and posts.
func (s *Session) Compose(text, mediaPath string) (map[string]any, error) {
	if err := s.Navigate(s.URL("/compose/post")); err != nil {
		return nil, err
	}
	editors := []string{
		"div[contenteditable='true'][data-testid='tweetTextarea_0']",
		"div[contenteditable='true']",
		"[data-testid='tweetTextarea_0']",
	}
	if text != "" {
		if err := s.Type(editors, text); err != nil {
			return nil, &ElementError{What: "could not find post editor"}
		}
	} else if !s.Visible(editors...) {
		return nil, &ElementError{What: "could not find post editor"}
	}

	if mediaPath != "" {
		resolved, err := resolveFile(mediaPath)
		if err != nil {
			return nil, err
		}
		if err := s.SetFileInput(0, resolved); err != nil {
			return nil, &ElementError{What: "could not find media upload input"}
		}
		_ = s.Wait(800 * time.Millisecond)
		mediaPath = resolved
	}

	if !s.ClickFirst("button[data-testid='tweetButton']", "button[data-testid='tweetButtonInline']") &&
		!s.ClickByText("button", "Post") {
		return nil, &ElementError{What: "could not press Post"}
	}
	_ = s.Wait(1200 * time.Millisecond)
	return map[string]any{"submitted": true, "text": text, "media_path": orNil(mediaPath)}, nil
}

// Like opens a tweet and presses Like; an already-liked state short-circuits.
func (s *Session) Like(tweetID string) (map[string]any, error) {
	if err := s.gotoStatus(tweetID); err != nil {
		return nil, err
	}
	if s.Visible("button[data-testid='unlike']") {
		return map[string]any{"tweet_id": tweetID, "liked": true, "already_liked": true}, nil
	}
	if !s.ClickFirst("button[data-testid='like']") {
		return nil, &ElementError{What: "could not find Like button"}
	}
	_ = s.Wait(650 * time.Millisecond)
	return map[string]any{
		"tweet_id":      tweetID,
		"liked":         s.Visible("button[data-testid='unlike']"),
		"already_liked": false,
	}, nil
}

// Unlike is the inverse of Like.
func (s *Session) Unlike(tweetID string) (map[string]any, error) {
	if err := s.gotoStatus(tweetID); err != nil {
		return nil, err
	}
	if s.Visible("button[data-testid='like']") {
		return map[string]any{"tweet_id": tweetID, "liked": false, "already_unliked": true}, nil
	}
	if !s.ClickFirst("button[data-testid='unlike']") {
		return nil, &ElementError{What: "could not find Unlike button"}
	}
	_ = s.Wait(650 * time.Millisecond)
	return map[string]any{
		"tweet_id":        tweetID,
		"liked":           s.Visible("button[data-testid='unlike']"),
		"already_unliked": false,
	}, nil
}

// Repost reposts a tweet through the confirm popover.
func (s *Session) Repost(tweetID string) (map[string]any, error) {
	if err := s.gotoStatus(tweetID); err != nil {
		return nil, err
	}
	if s.Visible("button[data-testid='unretweet']") {
		return map[string]any{"tweet_id": tweetID, "retweeted": true, "already_retweeted": true}, nil
	}
	if !s.ClickFirst("button[data-testid='retweet']") {
		return nil, &ElementError{What: "could not find Repost button"}
	}
	_ = s.Wait(300 * time.Millisecond)
	if !s.ClickFirst("div[data-testid='retweetConfirm']") && !s.ClickByText("button", "Repost") {
		return nil, &ElementError{What: "could not confirm repost"}
	}
	_ = s.Wait(650 * time.Millisecond)
	return map[string]any{
		"tweet_id":          tweetID,
		"retweeted":         s.Visible("button[data-testid='unretweet']"),
		"already_retweeted": false,
	}, nil
}

// Delete removes one of the session account's own tweets via the caret menu.
func (s *Session) Delete(tweetID string) (map[string]any, error) {
	if err := s.gotoStatus(tweetID); err != nil {
		return nil, err
	}
	if !s.ClickFirst("button[data-testid='caret']") && !s.ClickByText("button", "More") {
		return nil, &ElementError{What: "could not open tweet menu"}
	}
	_ = s.Wait(350 * time.Millisecond)
	if !s.ClickByText("div[role='menuitem']", "Delete") {
		return nil, &ElementError{What: "could not find Delete in menu"}
	}
	_ = s.Wait(300 * time.Millisecond)
	if !s.ClickByText("button", "Delete") && !s.ClickByText("div[role='button']", "Delete") {
		return nil, &ElementError{What: "could not confirm delete"}
	}
	_ = s.Wait(900 * time.Millisecond)
	return map[string]any{"tweet_id": tweetID, "deleted": true}, nil
}

// Follow follows a user from their profile.
func (s *Session) Follow(handle string) (map[string]any, error) {
	if err := s.gotoProfile(handle); err != nil {
		return nil, err
	}
	if s.followingVisible() {
		return map[string]any{"username": handle, "following": true, "already_following": true}, nil
	}
	if !s.ClickByText("button", "Follow") && !s.ClickByText("div[role='button']", "Follow") {
		return nil, &ElementError{What: "could not find Follow button"}
	}
	_ = s.Wait(750 * time.Millisecond)
	return map[string]any{
		"username":          handle,
		"following":         s.followingVisible(),
		"already_following": false,
	}, nil
}

// Unfollow unfollows a user, confirming the dialog when it appears.
func (s *Session) Unfollow(handle string) (map[string]any, error) {
	if err := s.gotoProfile(handle); err != nil {
		return nil, err
	}
	if !s.followingVisible() {
		if s.ClickByTextProbe("button", "Follow") {
			return map[string]any{"username": handle, "following": false, "already_unfollowed": true}, nil
		}
	}
	if !s.ClickByText("button", "Following") && !s.ClickByText("button", "Unfollow") {
		return nil, &ElementError{What: "could not find Following button"}
	}
	_ = s.Wait(300 * time.Millisecond)
	_ = s.ClickByText("button", "Unfollow") || s.ClickByText("div[role='button']", "Unfollow")
	_ = s.Wait(700 * time.Millisecond)
	return map[string]any{
		"username":           handle,
		"following":          s.followingVisible(),
		"already_unfollowed": false,
	}, nil
}

// SendDM opens the profile's message entry point and sends a direct message.
func (s *Session) SendDM(handle, text string) (map[string]any, error) {
	if err := s.gotoProfile(handle); err != nil {
		return nil, err
	}
	if !s.ClickFirst("button[data-testid='sendDMFromProfile']") && !s.ClickByText("button", "Message") {
		return nil, &ElementError{What: "could not find Message button on profile"}
	}
	_ = s.Wait(800 * time.Millisecond)
	editors := []string{
		"div[data-testid='dmComposerTextInput'] div[contenteditable='true']",
		"div[contenteditable='true']",
	}
	if err := s.Type(editors, text); err != nil {
		return nil, &ElementError{What: "could not find DM input"}
	}
	if !s.ClickFirst("button[data-testid='dmComposerSendButton']") && !s.ClickByText("button", "Send") {
		return nil, &ElementError{What: "could not send DM"}
	}
	_ = s.Wait(600 * time.Millisecond)
	return map[string]any{"username": handle, "sent": true, "text": text}, nil
}

// UpdateProfile edits display name and/or bio on the settings page.
func (s *Session) UpdateProfile(name, bio string) (map[string]any, error) {
	if err := s.Navigate(s.URL("/settings/profile")); err != nil {
		return nil, err
	}
	_ = s.Wait(900 * time.Millisecond)
	var updated []string

	if name != "" {
		fields := []string{
			"input[name='displayName']",
			"input[aria-label='Name']",
			"input[data-testid='Profile_Name_Input']",
		}
		if err := s.ClearAndType(fields, name); err != nil {
			return nil, &ElementError{What: "could not find profile name field"}
		}
		updated = append(updated, "name")
	}
	if bio != "" {
		fields := []string{
			"textarea[name='description']",
			"textarea[aria-label='Bio']",
			"textarea[data-testid='Profile_Bio_Input']",
		}
		if err := s.ClearAndType(fields, bio); err != nil {
			return nil, &ElementError{What: "could not find profile bio field"}
		}
		updated = append(updated, "bio")
	}

	if !s.ClickFirst("div[data-testid='Profile_Save_Button']", "button[data-testid='Profile_Save_Button']") &&
		!s.ClickByText("button", "Save") {
		return nil, &ElementError{What: "could not find Save button on profile settings"}
	}
	_ = s.Wait(time.Second)
	return map[string]any{"updated": true, "fields": updated}, nil
}

// UpdateProfileMedia replaces the avatar (input 0) or banner (input 1).
func (s *Session) UpdateProfileMedia(mode, path string) (map[string]any, error) {
	resolved, err := resolveFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Navigate(s.URL("/settings/profile")); err != nil {
		return nil, err
	}
	_ = s.Wait(900 * time.Millisecond)
	nth := 0
	if mode == "banner" {
		nth = 1
	}
	if err := s.SetFileInput(nth, resolved); err != nil {
		return nil, err
	}
	_ = s.Wait(900 * time.Millisecond)
	if !s.ClickByText("button", "Apply") && !s.ClickByText("button", "Save") {
		s.ClickFirst("div[data-testid='Profile_Save_Button']")
	}
	_ = s.Wait(900 * time.Millisecond)
	return map[string]any{"updated": true, "mode": mode, "file_path": resolved}, nil
}

// JoinSpace presses the listen/join entry points of a space, best-effort.
func (s *Session) JoinSpace(spaceID string) (map[string]any, error) {
	if err := s.Navigate(s.URL("/i/spaces/" + spaceID)); err != nil {
		return nil, err
	}
	_ = s.Wait(time.Second)
	joined := s.ClickByText("button", "Start listening") ||
		s.ClickByText("button", "Listen live") ||
		s.ClickByText("button", "Join")
	_ = s.Wait(800 * time.Millisecond)
	return map[string]any{"space_id": spaceID, "joined": joined}, nil
}

// ClickByTextProbe reports whether a text match is visible without clicking.
func (s *Session) ClickByTextProbe(sel, text string) bool {
	var found bool
	expr := probeScript(sel, text)
	if err := s.Evaluate(expr, &found); err != nil {
		return false
	}
	return found
}

func (s *Session) followingVisible() bool {
	return s.ClickByTextProbe("button", "Following") || s.ClickByTextProbe("button", "Unfollow")
}

func (s *Session) gotoStatus(tweetID string) error {
	if err := s.Navigate(s.URL("/i/web/status/" + tweetID)); err != nil {
		return err
	}
	return s.Wait(900 * time.Millisecond)
}

func (s *Session) gotoProfile(handle string) error {
	if err := s.Navigate(s.URL("/" + handle)); err != nil {
		return err
	}
	return s.Wait(900 * time.Millisecond)
}

func resolveFile(path string) (string, error) {
	expanded := path
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fault.Userf("file not found: %s", abs)
	}
	return abs, nil
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
