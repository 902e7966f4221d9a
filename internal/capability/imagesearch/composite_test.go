package imagesearch

import (
	"context"
	"errors"
	"testing"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name       string
	hits       []models.ImageInfo
	err        error
	searches   int
	downloads  []string
	lastMax    int
	downloadOK bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, req models.SearchRequest) ([]models.ImageInfo, error) {
	f.searches++
	f.lastMax = req.Max
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeSource) Download(ctx context.Context, url, outputDir string) (string, error) {
	f.downloads = append(f.downloads, url)
	if !f.downloadOK {
		return "", capability.NewProviderError(capability.ErrDownloadFailed, f.name, capability.ReasonUpstream, "", nil)
	}
	return outputDir + "/" + f.name + ".jpg", nil
}

func hits(source string, urls ...string) []models.ImageInfo {
	out := make([]models.ImageInfo, len(urls))
	for i, u := range urls {
		out[i] = models.ImageInfo{URL: u, Source: source}
	}
	return out
}

func urlsOf(images []models.ImageInfo) []string {
	out := make([]string, len(images))
	for i, im := range images {
		out[i] = im.URL
	}
	return out
}

func TestSearch_PriorityOrderAndDedup(t *testing.T) {
	a := &fakeSource{name: "a", hits: hits("a", "1", "2")}
	b := &fakeSource{name: "b", hits: hits("b", "2", "3")}

	got, err := New([]models.ImageSource{a, b}).Search(context.Background(), models.SearchRequest{Keywords: []string{"k"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, urlsOf(got))
}

func TestSearch_StopsAtMax(t *testing.T) {
	a := &fakeSource{name: "a", hits: hits("a", "1", "2")}
	b := &fakeSource{name: "b", hits: hits("b", "3", "4")}

	got, err := New([]models.ImageSource{a, b}).Search(context.Background(), models.SearchRequest{Max: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, urlsOf(got))
	assert.Equal(t, 3, a.lastMax)
	assert.Equal(t, 1, b.lastMax)

	c := &fakeSource{name: "c", hits: hits("c", "5")}
	_, err = New([]models.ImageSource{&fakeSource{name: "a", hits: hits("a", "1", "2")}, c}).
		Search(context.Background(), models.SearchRequest{Max: 2})
	require.NoError(t, err)
	assert.Zero(t, c.searches, "later sources are not queried once max is reached")
}

func TestSearch_PartialFailureDoesNotAbort(t *testing.T) {
	a := &fakeSource{name: "a", err: capability.NewProviderError(capability.ErrSearchFailed, "a", capability.ReasonUnavailable, "", nil)}
	b := &fakeSource{name: "b", hits: hits("b", "x")}

	got, err := New([]models.ImageSource{a, b}).Search(context.Background(), models.SearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, urlsOf(got))
}

func TestSearch_AllFailed(t *testing.T) {
	a := &fakeSource{name: "a", err: capability.NewProviderError(capability.ErrSearchFailed, "a", capability.ReasonAuth, "", nil)}
	b := &fakeSource{name: "b", err: capability.NewProviderError(capability.ErrSearchFailed, "b", capability.ReasonQuota, "", nil)}

	_, err := New([]models.ImageSource{a, b}).Search(context.Background(), models.SearchRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, capability.ErrSearchFailed))
}

func TestSearch_EmptyIsNotAnError(t *testing.T) {
	a := &fakeSource{name: "a"}
	b := &fakeSource{name: "b", err: errors.New("down")}

	got, err := New([]models.ImageSource{a, b}).Search(context.Background(), models.SearchRequest{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_NoSources(t *testing.T) {
	_, err := New(nil).Search(context.Background(), models.SearchRequest{})
	assert.True(t, errors.Is(err, capability.ErrNotConfigured))
}

func TestSearch_CachedAcrossComposites(t *testing.T) {
	cache, err := NewResultCache(8)
	require.NoError(t, err)

	a := &fakeSource{name: "a", hits: hits("a", "1")}
	req := models.SearchRequest{Keywords: []string{"tree"}, Max: 5}

	_, err = New([]models.ImageSource{a}, WithCache(cache)).Search(context.Background(), req)
	require.NoError(t, err)
	got, err := New([]models.ImageSource{a}, WithCache(cache)).Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, urlsOf(got))
	assert.Equal(t, 1, a.searches)
	assert.Equal(t, 1, cache.Len())

	_, err = New([]models.ImageSource{a}, WithCache(cache)).Search(context.Background(), models.SearchRequest{Keywords: []string{"sea"}})
	require.NoError(t, err)
	assert.Equal(t, 2, a.searches, "different keywords miss the cache")
}

func TestDownload_UsesOriginSource(t *testing.T) {
	a := &fakeSource{name: "a", hits: hits("a", "1"), downloadOK: true}
	b := &fakeSource{name: "b", hits: hits("b", "2"), downloadOK: true}
	c := New([]models.ImageSource{a, b})

	_, err := c.Search(context.Background(), models.SearchRequest{})
	require.NoError(t, err)

	path, err := c.Download(context.Background(), "2", "/tmp/w")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/w/b.jpg", path)
	assert.Empty(t, a.downloads)
}

func TestDownload_UnknownURLTriesSourcesInOrder(t *testing.T) {
	a := &fakeSource{name: "a"}
	b := &fakeSource{name: "b", downloadOK: true}

	path, err := New([]models.ImageSource{a, b}).Download(context.Background(), "https://elsewhere/x.jpg", "/tmp/w")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/w/b.jpg", path)
	assert.Equal(t, []string{"https://elsewhere/x.jpg"}, a.downloads)
}
