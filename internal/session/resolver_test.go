package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xlocal/internal/cookies"
)

type fakeSource struct {
	records []cookies.Record
	err     error
}

func (f *fakeSource) Cookies(context.Context) ([]cookies.Record, error) {
	return f.records, f.err
}

func rec(name, value string) cookies.Record {
	return cookies.Record{Domain: ".x.com", Name: name, Value: value, Path: "/"}
}

func TestResolvePrefersFreshOutright(t *testing.T) {
	r := &Resolver{
		Source: &fakeSource{records: []cookies.Record{rec("auth_token", "fresh")}},
		Store:  &MemStore{Records: []cookies.Record{rec("auth_token", "saved"), rec("ct0", "saved")}},
	}
	res, err := r.Resolve(context.Background(), ResolveOptions{Require: true})
	require.NoError(t, err)
	assert.True(t, res.Fresh)
	// Exactly the fresh set, never a merge with the saved one.
	require.Len(t, res.Records, 1)
	assert.Equal(t, "fresh", res.Records[0].Value)
}

func TestResolveFallsBackToSavedWhenFreshFails(t *testing.T) {
	r := &Resolver{
		Source: &fakeSource{err: errors.New("no cookie stores")},
		Store:  &MemStore{Records: []cookies.Record{rec("auth_token", "saved")}},
	}
	res, err := r.Resolve(context.Background(), ResolveOptions{Require: true})
	require.NoError(t, err)
	assert.False(t, res.Fresh)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "saved", res.Records[0].Value)
}

func TestResolveFallsBackWhenFreshYieldsNothingValid(t *testing.T) {
	r := &Resolver{
		Source: &fakeSource{records: []cookies.Record{{Domain: "example.com", Name: "x", Value: "y"}}},
		Store:  &MemStore{Records: []cookies.Record{rec("auth_token", "saved")}},
	}
	res, err := r.Resolve(context.Background(), ResolveOptions{Require: true})
	require.NoError(t, err)
	assert.False(t, res.Fresh)
	require.Len(t, res.Records, 1)
}

func TestResolveRequireSurfacesSourceError(t *testing.T) {
	srcErr := &cookies.ProfileError{Browser: "chrome", Searched: []string{"/tmp/nope/Cookies"}}
	r := &Resolver{
		Source: &fakeSource{err: srcErr},
		Store:  &MemStore{},
	}
	_, err := r.Resolve(context.Background(), ResolveOptions{Require: true})
	var pe *cookies.ProfileError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "/tmp/nope/Cookies")
}

func TestResolveRequireNoSources(t *testing.T) {
	r := &Resolver{Source: &fakeSource{}, Store: &MemStore{}}
	_, err := r.Resolve(context.Background(), ResolveOptions{Require: true})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResolveSkipFlags(t *testing.T) {
	r := &Resolver{
		Source: &fakeSource{records: []cookies.Record{rec("auth_token", "fresh")}},
		Store:  &MemStore{Records: []cookies.Record{rec("auth_token", "saved")}},
	}
	res, err := r.Resolve(context.Background(), ResolveOptions{SkipBrowser: true, SkipSaved: true})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestPersistFiltersAndOverwrites(t *testing.T) {
	store := &MemStore{Records: []cookies.Record{rec("old", "old")}}
	r := &Resolver{Store: store}
	n, err := r.Persist([]cookies.Record{
		rec("auth_token", "v"),
		{Domain: "unrelated.com", Name: "junk", Value: "v"},
		{Domain: ".x.com", Name: "", Value: "v"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.Records, 1, "save overwrites wholesale")
	assert.Equal(t, "auth_token", store.Records[0].Name)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/x_session_cookies.json"
	fs := &FileStore{Path: path}

	recs, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, recs, "missing file is an empty set")

	want := []cookies.Record{rec("auth_token", "v"), rec("ct0", "w")}
	require.NoError(t, fs.Save(want))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
