// pkg/github/releases.go - GitHub releases-latest resolution.

package github

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.github.com"

// Asset is one downloadable artifact of a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Release is the subset of the releases API response the installer needs.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// MatchAsset returns the first asset whose name contains pattern, in the
// order the API listed them. First match wins; there is no best-match
// scoring, so a pattern matching both a .zip and an .exe resolves to
// whichever the release lists first.
func (r *Release) MatchAsset(pattern string) (Asset, bool) {
	for _, a := range r.Assets {
		if strings.Contains(a.Name, pattern) {
			return a, true
		}
	}
	return Asset{}, false
}

// Client queries the GitHub releases API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// LatestRelease fetches the latest release of owner/repo.
func (c *Client) LatestRelease(repo string) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.BaseURL, repo)

	resp, err := c.HTTPClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases for %s: %w", repo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("releases query for %s returned HTTP %d", repo, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read releases response: %w", err)
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("failed to parse releases response: %w", err)
	}
	return &release, nil
}
