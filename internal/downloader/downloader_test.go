package downloader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelarr/internal/apperr"
	"reelarr/internal/models"
)

type fakeProvider struct {
	name        string
	initErr     error
	availability map[string][]string
	files       map[string]*TorrentInfo
	addErr      error
	selectErr   error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Init(ctx context.Context) error { return f.initErr }

func (f *fakeProvider) InstantAvailability(ctx context.Context, hashes []string) (map[string][]string, error) {
	return f.availability, nil
}

func (f *fakeProvider) AddMagnet(ctx context.Context, hash string) (string, error) {
	if f.addErr != nil {
		return "", f.addErr
	}
	return "torrent-" + hash, nil
}

func (f *fakeProvider) SelectFiles(ctx context.Context, id string, fileIDs []string) error {
	return f.selectErr
}

func (f *fakeProvider) GetTorrentInfo(ctx context.Context, id string) (*TorrentInfo, error) {
	info, ok := f.files[id]
	if !ok {
		return nil, errors.New("no such torrent")
	}
	return info, nil
}

func newTestDownloader(t *testing.T, providers ...Provider) *Downloader {
	t.Helper()
	return New(Config{
		Providers:       providers,
		VideoExtensions: []string{".mkv", ".mp4"},
		MovieMinBytes:   1000,
		EpisodeMinBytes: 500,
	})
}

func TestSelectActive_PicksFirstThatInitializes(t *testing.T) {
	broken := &fakeProvider{name: "realdebrid", initErr: errors.New("no api key")}
	working := &fakeProvider{name: "torbox"}
	d := newTestDownloader(t, broken, working)

	active, err := d.SelectActive(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "torbox", active.Name())
}

func TestSelectActive_AllFailReturnsConfigInvalid(t *testing.T) {
	d := newTestDownloader(t, &fakeProvider{name: "realdebrid", initErr: errors.New("down")})

	_, err := d.SelectActive(context.Background())
	assert.ErrorIs(t, err, apperr.ConfigInvalid)
}

func TestAcquire_SkipsUncachedAndPicksFirstValidFileSet(t *testing.T) {
	provider := &fakeProvider{
		name: "realdebrid",
		availability: map[string][]string{
			"hash-b": {"container"},
		},
		files: map[string]*TorrentInfo{
			"torrent-hash-b": {Files: []FileInfo{
				{ID: "1", Path: "Movie.2024.1080p.mkv", SizeBytes: 2000},
				{ID: "2", Path: "Movie.2024.sample.mkv", SizeBytes: 100},
			}},
		},
	}
	d := newTestDownloader(t, provider)
	_, err := d.SelectActive(context.Background())
	require.NoError(t, err)

	candidates := []models.Stream{{InfoHash: "hash-a"}, {InfoHash: "hash-b"}}
	ref, rejected, err := d.Acquire(context.Background(), models.ItemMovie, candidates)

	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "hash-b", ref.InfoHash)
	assert.Equal(t, []string{"Movie.2024.1080p.mkv"}, ref.Files)
	assert.NotContains(t, rejected, "hash-b", "the winning candidate is never rejected")
}

func TestAcquire_NoValidFileSetReturnsExternalPermanent(t *testing.T) {
	provider := &fakeProvider{
		name:         "realdebrid",
		availability: map[string][]string{"hash-a": {"container"}},
		files: map[string]*TorrentInfo{
			"torrent-hash-a": {Files: []FileInfo{{ID: "1", Path: "sample.mkv", SizeBytes: 10}}},
		},
	}
	d := newTestDownloader(t, provider)
	_, err := d.SelectActive(context.Background())
	require.NoError(t, err)

	_, rejected, err := d.Acquire(context.Background(), models.ItemMovie, []models.Stream{{InfoHash: "hash-a"}})

	assert.ErrorIs(t, err, apperr.ExternalPermanent)
	assert.Contains(t, rejected, "hash-a")
}

func TestAcquire_NoActiveProviderReturnsError(t *testing.T) {
	d := newTestDownloader(t)
	_, _, err := d.Acquire(context.Background(), models.ItemMovie, nil)
	assert.Error(t, err)
}
