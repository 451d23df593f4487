package github

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releaseJSON = `{
  "tag_name": "v5.10.0",
  "assets": [
    {"name": "EDMarketConnector_win_5.10.0.msi", "browser_download_url": "https://dl/win.msi", "size": 123},
    {"name": "EDMarketConnector_source.tar.gz", "browser_download_url": "https://dl/src.tar.gz", "size": 456}
  ]
}`

func TestLatestRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/EDCD/EDMarketConnector/releases/latest", r.URL.Path)
		fmt.Fprint(w, releaseJSON)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	release, err := c.LatestRelease("EDCD/EDMarketConnector")
	require.NoError(t, err)

	assert.Equal(t, "v5.10.0", release.TagName)
	require.Len(t, release.Assets, 2)
	assert.Equal(t, "https://dl/win.msi", release.Assets[0].BrowserDownloadURL)
	assert.Equal(t, int64(456), release.Assets[1].Size)
}

func TestLatestReleaseNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.LatestRelease("nobody/nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestLatestReleaseInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>rate limited</html>")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.LatestRelease("org/tool")
	assert.Error(t, err)
}

func TestNewClientDefaultsAndTrimsBaseURL(t *testing.T) {
	c := NewClient("", time.Second)
	assert.Equal(t, DefaultAPIURL, c.BaseURL)

	c = NewClient("https://ghe.example.com/api/v3/", time.Second)
	assert.Equal(t, "https://ghe.example.com/api/v3", c.BaseURL)
}

func TestMatchAssetFirstMatchWins(t *testing.T) {
	r := &Release{Assets: []Asset{
		{Name: "tool-windows-x64.zip"},
		{Name: "tool-windows-x64.exe"},
		{Name: "tool-linux.tar.gz"},
	}}

	a, ok := r.MatchAsset("windows-x64")
	require.True(t, ok)
	assert.Equal(t, "tool-windows-x64.zip", a.Name)

	_, ok = r.MatchAsset("darwin")
	assert.False(t, ok)

	// Matching is case-sensitive substring containment.
	_, ok = r.MatchAsset("Windows-X64")
	assert.False(t, ok)
}
