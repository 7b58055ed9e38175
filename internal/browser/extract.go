package browser

import (
	"context"

	"xlocal/internal/harvest"
	"xlocal/internal/numfmt"
)

// The extractor scripts below are the opaque DOM-query capability: each one
// runs in the page and returns row-shaped data keyed for deduplication.

const tweetScript = `(() => {
  const out = [];
  const cards = document.querySelectorAll("article[data-testid='tweet']");
  cards.forEach((card, idx) => {
    const link = card.querySelector("a[href*='/status/']");
    const href = link?.getAttribute("href") || "";
    const match = href.match(/status\/(\d+)/);
    const tweetId = match ? match[1] : null;
    const text = card.querySelector("[data-testid='tweetText']")?.innerText?.trim() || "";
    const userLink = card.querySelector("div[data-testid='User-Name'] a[href^='/']");
    const authorHref = userLink?.getAttribute("href") || "";
    const author = authorHref.startsWith("/") ? authorHref.slice(1).split("/")[0] : null;
    const time = card.querySelector("time")?.getAttribute("datetime") || null;
    const socialContext = card.querySelector("[data-testid='socialContext']")?.innerText?.trim() || "";
    const imageUrls = Array.from(card.querySelectorAll("img"))
      .map((img) => (img.getAttribute("src") || "").trim())
      .filter((src) => src.includes("twimg.com/media"));
    const videoPosters = Array.from(card.querySelectorAll("video"))
      .map((video) => (video.getAttribute("poster") || "").trim())
      .filter(Boolean);
    const mediaUrls = Array.from(new Set([...imageUrls, ...videoPosters]));
    const hasVideo = card.querySelectorAll("video").length > 0;
    const mediaCount = mediaUrls.length + (hasVideo ? 1 : 0);
    const isRepostHint =
      socialContext.toLowerCase().includes("reposted") ||
      socialContext.toLowerCase().includes("retweeted");
    out.push({
      key: tweetId || href || ("idx-" + idx),
      tweet_id: tweetId,
      text,
      author,
      url: href ? "https://x.com" + href : null,
      timestamp: time,
      social_context: socialContext || null,
      image_urls: imageUrls,
      media_urls: mediaUrls,
      has_video: hasVideo,
      has_media: mediaCount > 0,
      media_count: mediaCount,
      is_repost_hint: isRepostHint
    });
  });
  return out;
})()`

const userScript = `(() => {
  const out = [];
  const cards = document.querySelectorAll("div[data-testid='UserCell']");
  cards.forEach((card, idx) => {
    const links = Array.from(card.querySelectorAll("a[href^='/']"));
    let handle = null;
    for (const link of links) {
      const href = link.getAttribute("href") || "";
      if (!href || href.startsWith("/i/")) continue;
      const candidate = href.slice(1).split("/")[0];
      if (candidate && !candidate.includes("?")) {
        handle = candidate;
        break;
      }
    }
    const display = card.querySelector("div[dir='ltr'] span")?.textContent?.trim() || null;
    const bio = card.querySelector("[data-testid='UserDescription']")?.innerText?.trim() || "";
    out.push({
      key: handle || ("idx-" + idx),
      handle,
      display_name: display,
      bio
    });
  });
  return out;
})()`

const notificationScript = `(() => {
  const out = [];

  const tweets = Array.from(document.querySelectorAll("article[data-testid='tweet']"));
  tweets.forEach((card, idx) => {
    const text = card.querySelector("[data-testid='tweetText']")?.innerText?.trim() || "";
    const link = card.querySelector("a[href*='/status/']");
    const href = link?.getAttribute("href") || "";
    const match = href.match(/status\/(\d+)/);
    const tweetId = match ? match[1] : null;
    const actorLink = card.querySelector("div[data-testid='User-Name'] a[href^='/']");
    const actorHref = actorLink?.getAttribute("href") || "";
    const actor = actorHref.startsWith("/") ? actorHref.slice(1).split("/")[0] : null;
    const socialContext = card.querySelector("[data-testid='socialContext']")?.innerText?.trim() || "";
    const time = card.querySelector("time")?.getAttribute("datetime") || null;
    out.push({
      key: tweetId || href || ("tweet-" + idx),
      type: "tweet",
      actor,
      social_context: socialContext || null,
      tweet_id: tweetId,
      text,
      url: href ? "https://x.com" + href : null,
      timestamp: time
    });
  });

  const cards = Array.from(document.querySelectorAll("div[data-testid='cellInnerDiv']"));
  cards.forEach((node, idx) => {
    const text = (node.innerText || "").replace(/\s+/g, " ").trim();
    if (!text) return;
    const link = node.querySelector("a[href^='/']");
    const href = link?.getAttribute("href") || "";
    const actor = href.startsWith("/") ? href.slice(1).split("/")[0] : null;
    out.push({
      key: "card-" + idx + "-" + (href || text.slice(0, 24)),
      type: "notification_card",
      actor,
      text: text.slice(0, 500),
      url: href ? "https://x.com" + href : null,
      timestamp: null
    });
  });

  return out;
})()`

const trendScript = `(() => {
  const rows = [];
  const trendNodes = Array.from(document.querySelectorAll("div[data-testid='trend']"));
  trendNodes.forEach((node, idx) => {
    const lines = (node.innerText || "")
      .split("\n")
      .map((v) => v.trim())
      .filter(Boolean);
    const topic = lines.find((x) => x.startsWith("#")) || lines[lines.length - 1] || null;
    rows.push({
      key: topic || ("idx-" + idx),
      rank: idx + 1,
      topic,
      lines
    });
  });
  return rows;
})()`

const spacesScript = `(() => {
  const out = [];
  const anchors = Array.from(document.querySelectorAll("a[href*='/i/spaces/']"));
  const seen = new Set();
  anchors.forEach((a, idx) => {
    const href = a.getAttribute("href") || "";
    const m = href.match(/\/i\/spaces\/([a-zA-Z0-9]+)/);
    if (!m) return;
    const spaceId = m[1];
    if (seen.has(spaceId)) return;
    seen.add(spaceId);
    const card = a.closest("article,div");
    const text = (card?.innerText || a.innerText || "").split("\n").map(v => v.trim()).filter(Boolean);
    out.push({
      key: spaceId,
      space_id: spaceId,
      url: "https://x.com/i/spaces/" + spaceId,
      lines: text.slice(0, 8),
      title: text[0] || null
    });
  });
  return out;
})()`

const spaceDetailScript = `(() => {
  const ogTitle = document.querySelector("meta[property='og:title']")?.getAttribute("content") || null;
  const ogDesc = document.querySelector("meta[property='og:description']")?.getAttribute("content") || null;
  const titleNode = document.querySelector("h1, h2");
  const title = titleNode?.textContent?.trim() || ogTitle;
  const body = (document.body?.innerText || "").split("\n").map(v => v.trim()).filter(Boolean);
  return {
    title,
    description: ogDesc,
    lines: body.slice(0, 30)
  };
})()`

const profileScript = `(() => {
  const nameEl = document.querySelector("[data-testid='UserName'] span");
  const bioEl = document.querySelector("[data-testid='UserDescription']");
  const followersEl = document.querySelector("a[href*='/verified_followers'] span");
  const followingEl = document.querySelector("a[href*='/following'] span");
  return {
    display_name: nameEl?.textContent?.trim() || null,
    bio: bioEl?.textContent?.trim() || "",
    followers: followersEl?.textContent?.trim() || null,
    following: followingEl?.textContent?.trim() || null
  };
})()`

const navHandleScript = `(() => {
  const profileLink = document.querySelector("a[data-testid='AppTabBar_Profile_Link']");
  if (!profileLink) return null;
  const href = profileLink.getAttribute("href") || "";
  if (!href.startsWith("/")) return null;
  const handle = href.slice(1).split("/")[0];
  return handle || null;
})()`

func (s *Session) rowExtractor(script string) harvest.Extractor {
	return harvest.ExtractorFunc(func(ctx context.Context) ([]harvest.Row, error) {
		var rows []harvest.Row
		if err := s.Evaluate(script, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	})
}

// TweetExtractor yields the tweet cards of the current view.
func (s *Session) TweetExtractor() harvest.Extractor { return s.rowExtractor(tweetScript) }

// UserExtractor yields the user cells of the current view.
func (s *Session) UserExtractor() harvest.Extractor { return s.rowExtractor(userScript) }

// NotificationExtractor yields tweet cards plus generic notification cards.
func (s *Session) NotificationExtractor() harvest.Extractor {
	return s.rowExtractor(notificationScript)
}

// TrendExtractor yields the trend rows of the explore view.
func (s *Session) TrendExtractor() harvest.Extractor { return s.rowExtractor(trendScript) }

// SpacesExtractor yields live space anchors, deduplicated by space id.
func (s *Session) SpacesExtractor() harvest.Extractor { return s.rowExtractor(spacesScript) }

// ExtractTweets runs one tweet extraction without the scroll loop.
func (s *Session) ExtractTweets() ([]harvest.Row, error) {
	return s.TweetExtractor().Extract(s.ctx)
}

// ProfileSummary extracts the rendered profile header for a handle, adding
// exact numeric counts where the abbreviated labels parse.
func (s *Session) ProfileSummary(handle string) (map[string]any, error) {
	var raw map[string]any
	if err := s.Evaluate(profileScript, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	out := map[string]any{
		"handle":       handle,
		"profile_url":  "https://x.com/" + handle,
		"display_name": raw["display_name"],
		"bio":          raw["bio"],
		"followers":    raw["followers"],
		"following":    raw["following"],
	}
	if s, ok := raw["followers"].(string); ok {
		if n, ok := numfmt.ParseCount(s); ok {
			out["followers_count"] = n
		}
	}
	if s, ok := raw["following"].(string); ok {
		if n, ok := numfmt.ParseCount(s); ok {
			out["following_count"] = n
		}
	}
	return out, nil
}

// SpaceDetail extracts the metadata of one space page.
func (s *Session) SpaceDetail(spaceID string) (map[string]any, error) {
	var raw map[string]any
	if err := s.Evaluate(spaceDetailScript, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	lines, _ := raw["lines"].([]any)
	return map[string]any{
		"space_id":    spaceID,
		"url":         "https://x.com/i/spaces/" + spaceID,
		"title":       raw["title"],
		"description": raw["description"],
		"lines":       lines,
	}, nil
}

// NavHandle resolves the logged-in account's handle from the nav profile
// link, when present.
func (s *Session) NavHandle() (string, bool) {
	var handle *string
	if err := s.Evaluate(navHandleScript, &handle); err != nil || handle == nil || *handle == "" {
		return "", false
	}
	return *handle, true
}
