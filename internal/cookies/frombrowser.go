package cookies

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register cookie store finders
)

// ProfileError reports a configured browser profile whose cookie database
// could not be located. It names every path that was tried.
type ProfileError struct {
	Browser  string
	Searched []string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("could not locate Cookies DB for browser=%s (searched: %s)",
		e.Browser, strings.Join(e.Searched, ", "))
}

func (e *ProfileError) UserFacing() {}

// NoCookiesError reports that a browser family was reachable but held no
// usable cookies for the target hosts.
type NoCookiesError struct {
	Browser string
}

func (e *NoCookiesError) Error() string {
	return fmt.Sprintf("no cookies for %s found in %s; ensure the browser profile is logged in",
		strings.Join(Hosts, "/"), e.Browser)
}

func (e *NoCookiesError) UserFacing() {}

// BrowserSource pulls fresh cookies out of an installed browser's cookie
// database via kooky. It is the "fresh source" of session resolution.
type BrowserSource struct {
	Browser     string // chrome, chromium, edge
	ProfileRoot string // optional path to a profile root or a Cookies DB file
	ProfileName string // profile directory name under ProfileRoot, defaults to "Default"
}

// Cookies reads, filters and de-duplicates the target-host cookies from every
// matching store. Session cookies (no expiry) are kept; the login cookies are
// session-scoped.
func (s *BrowserSource) Cookies(ctx context.Context) ([]Record, error) {
	browser := normalizeBrowser(s.Browser)

	cookieFile, err := s.resolveCookieFile(browser)
	if err != nil {
		return nil, err
	}

	stores := kooky.FindAllCookieStores()
	var use []kooky.CookieStore
	for _, st := range stores {
		if normalizeBrowser(st.Browser()) != browser {
			continue
		}
		if cookieFile != "" && !samePath(st.FilePath(), cookieFile) &&
			!strings.Contains(strings.ToLower(st.FilePath()), strings.ToLower(cookieFile)) {
			continue
		}
		use = append(use, st)
	}
	if len(use) == 0 {
		return nil, &ProfileError{Browser: browser, Searched: []string{"(no " + browser + " cookie stores found)"}}
	}
	defer func() {
		for _, st := range use {
			_ = st.Close()
		}
	}()

	var out []Record
	seen := map[string]bool{}
	for _, host := range Hosts {
		for _, st := range use {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			cc, _ := st.ReadCookies(kooky.DomainHasSuffix(host))
			for _, kc := range cc {
				r := Record{
					Name:     kc.Name,
					Value:    kc.Value,
					Domain:   kc.Domain,
					Path:     kc.Path,
					Secure:   kc.Secure,
					HTTPOnly: kc.HttpOnly,
				}
				if !kc.Expires.IsZero() && kc.Expires.Unix() > 0 {
					r.Expires = kc.Expires.Unix()
				}
				if !r.Valid() {
					continue
				}
				if !seen[r.Key()] {
					seen[r.Key()] = true
					out = append(out, r)
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, &NoCookiesError{Browser: browser}
	}
	return out, nil
}

// resolveCookieFile honors an explicitly configured profile location. An
// empty result means "search every store for the browser family".
func (s *BrowserSource) resolveCookieFile(browser string) (string, error) {
	if s.ProfileRoot == "" {
		return "", nil
	}
	root := expandHome(s.ProfileRoot)
	if fi, err := os.Stat(root); err == nil && !fi.IsDir() {
		return root, nil
	}
	name := s.ProfileName
	if name == "" {
		name = "Default"
	}
	candidates := []string{
		filepath.Join(root, name, "Cookies"),
		filepath.Join(root, "Default", "Cookies"),
		filepath.Join(root, "Cookies"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", &ProfileError{Browser: browser, Searched: candidates}
}

func normalizeBrowser(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "chrome", "google chrome":
		return "chrome"
	case "chromium":
		return "chromium"
	case "edge", "microsoft edge":
		return "edge"
	default:
		return "chrome"
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func samePath(a, b string) bool {
	ra := filepath.Clean(a)
	rb := filepath.Clean(b)
	if ea, err := filepath.EvalSymlinks(ra); err == nil {
		ra = ea
	}
	if eb, err := filepath.EvalSymlinks(rb); err == nil {
		rb = eb
	}
	return ra == rb
}
