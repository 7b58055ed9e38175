// Package cookies models the persisted session-cookie set and the filtering
// and merge rules every cookie source goes through before it may back an
// automation session.
package cookies

import (
	"net/http"
	"strings"
	"time"
)

// Hosts are the site hostnames a cookie must belong to. A record whose domain
// contains none of these never reaches a session.
var Hosts = []string{"x.com", "twitter.com"}

// Record is one session cookie in the persisted JSON layout
// (flat array of these objects, the same document the original tool wrote).
type Record struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
	Expires  int64  `json:"expires,omitempty"` // unix seconds, 0 = session cookie
}

// Key is the uniqueness identity of a record: (domain, name, path).
func (r Record) Key() string {
	path := r.Path
	if path == "" {
		path = "/"
	}
	return strings.ToLower(r.Domain) + "\t" + r.Name + "\t" + path
}

// Valid reports whether the record may back a session: the domain must
// contain one of the target hosts and name and value must be non-empty.
func (r Record) Valid() bool {
	if r.Name == "" || r.Value == "" {
		return false
	}
	for _, h := range Hosts {
		if strings.Contains(r.Domain, h) {
			return true
		}
	}
	return false
}

// HTTPCookie converts the record for injection into an http.CookieJar.
func (r Record) HTTPCookie() *http.Cookie {
	c := &http.Cookie{
		Name:     r.Name,
		Value:    r.Value,
		Domain:   r.Domain,
		Path:     r.Path,
		Secure:   r.Secure,
		HttpOnly: r.HTTPOnly,
	}
	if r.Expires > 0 {
		c.Expires = time.Unix(r.Expires, 0)
	}
	return c
}

// Filter returns the records that pass Valid, preserving order.
func Filter(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Merge reconciles two saved sets keyed by (domain, name, path). Later-listed
// entries are authoritative, so the primary (fresh) set is appended after the
// secondary (saved) one. Resolution itself never merges; this exists for
// importing an alternate saved source.
func Merge(primary, secondary []Record) []Record {
	byKey := map[string]int{}
	out := make([]Record, 0, len(primary)+len(secondary))
	for _, r := range append(append([]Record{}, secondary...), primary...) {
		if r.Domain == "" || r.Name == "" {
			continue
		}
		if i, ok := byKey[r.Key()]; ok {
			out[i] = r
			continue
		}
		byKey[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}
