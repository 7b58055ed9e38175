package cookies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRetainsOnlyTargetHostRecords(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		keep bool
	}{
		{"x.com domain", Record{Domain: ".x.com", Name: "auth_token", Value: "v"}, true},
		{"twitter.com domain", Record{Domain: "twitter.com", Name: "ct0", Value: "v"}, true},
		{"subdomain", Record{Domain: "api.x.com", Name: "guest_id", Value: "v"}, true},
		{"foreign domain", Record{Domain: "example.com", Name: "auth_token", Value: "v"}, false},
		{"empty name", Record{Domain: ".x.com", Name: "", Value: "v"}, false},
		{"empty value", Record{Domain: ".x.com", Name: "auth_token", Value: ""}, false},
		{"empty everything", Record{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.keep, tc.rec.Valid())
		})
	}

	in := []Record{
		{Domain: ".x.com", Name: "a", Value: "1"},
		{Domain: "evil.com", Name: "b", Value: "2"},
		{Domain: "twitter.com", Name: "c", Value: "3"},
		{Domain: ".x.com", Name: "", Value: "4"},
	}
	got := Filter(in)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}

func TestMergeLaterListedWins(t *testing.T) {
	saved := []Record{
		{Domain: ".x.com", Name: "auth_token", Path: "/", Value: "stale"},
		{Domain: ".x.com", Name: "ct0", Path: "/", Value: "kept"},
	}
	fresh := []Record{
		{Domain: ".x.com", Name: "auth_token", Path: "/", Value: "fresh"},
		{Domain: ".x.com", Name: "twid", Path: "/", Value: "new"},
	}

	got := Merge(fresh, saved)
	require.Len(t, got, 3)

	byName := map[string]Record{}
	for _, r := range got {
		byName[r.Name] = r
	}
	assert.Equal(t, "fresh", byName["auth_token"].Value, "fresh set must override saved on key collision")
	assert.Equal(t, "kept", byName["ct0"].Value)
	assert.Equal(t, "new", byName["twid"].Value)
}

func TestMergeKeyIncludesPath(t *testing.T) {
	a := []Record{{Domain: ".x.com", Name: "n", Path: "/a", Value: "1"}}
	b := []Record{{Domain: ".x.com", Name: "n", Path: "/b", Value: "2"}}
	got := Merge(a, b)
	assert.Len(t, got, 2, "same name on different paths are distinct records")
}

func TestMergeDropsUnkeyedRecords(t *testing.T) {
	got := Merge([]Record{{Name: "n", Value: "v"}}, []Record{{Domain: "x.com", Value: "v"}})
	assert.Empty(t, got)
}

func TestRecordKeyDefaultsPath(t *testing.T) {
	a := Record{Domain: ".X.com", Name: "n"}
	b := Record{Domain: ".x.com", Name: "n", Path: "/"}
	assert.Equal(t, a.Key(), b.Key())
}
