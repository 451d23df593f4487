// pkg/doctor/doctor.go - catalog link auditing.
//
// The doctor checks that every descriptor's external references still
// resolve: download URLs answer, GitHub assets match, winget IDs exist.
// It reports findings and never mutates the catalog.

package doctor

import (
	"fmt"
	"net/http"
	"time"

	"github.com/exileshud/toolbelt/pkg/catalog"
	"github.com/exileshud/toolbelt/pkg/github"
	"github.com/exileshud/toolbelt/pkg/process"
)

// Finding is one problem discovered while auditing.
type Finding struct {
	AppID   string
	AppName string
	Source  string // http | github | winget
	Message string
}

// Commander is the subset of process execution the winget check needs.
type Commander interface {
	Run(timeout time.Duration, name string, args ...string) (process.Result, error)
}

// ReleaseResolver resolves latest GitHub releases.
type ReleaseResolver interface {
	LatestRelease(repo string) (*github.Release, error)
}

// Doctor audits catalog entries.
type Doctor struct {
	HTTPClient *http.Client
	Releases   ReleaseResolver
	Run        Commander

	// CheckWinget gates the package-manager lookups, which only make
	// sense where winget is on PATH.
	CheckWinget bool
}

func New(githubAPIURL string) *Doctor {
	return &Doctor{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Releases:   github.NewClient(githubAPIURL, 15*time.Second),
		Run:        process.Runner{},
	}
}

// Audit checks every method of every app and returns the findings.
func (d *Doctor) Audit(apps []catalog.App) []Finding {
	var findings []Finding
	for _, app := range apps {
		for _, m := range app.AllMethods() {
			findings = append(findings, d.auditMethod(app, m)...)
		}
	}
	return findings
}

func (d *Doctor) auditMethod(app catalog.App, m catalog.Method) []Finding {
	var findings []Finding

	switch m.Type {
	case catalog.TypeExe, catalog.TypeMsi, catalog.TypeZip, catalog.TypeWeb:
		if m.URL == "" {
			findings = append(findings, finding(app, "http", fmt.Sprintf("%s method has no url", m.Type)))
			break
		}
		if msg := d.checkURL(m.URL); msg != "" {
			findings = append(findings, finding(app, "http", msg))
		}

	case catalog.TypeGithub:
		if m.GithubRepo == "" || m.GithubAsset == "" {
			findings = append(findings, finding(app, "github", "github method missing repo or asset pattern"))
			break
		}
		release, err := d.Releases.LatestRelease(m.GithubRepo)
		if err != nil {
			findings = append(findings, finding(app, "github", err.Error()))
			break
		}
		if _, ok := release.MatchAsset(m.GithubAsset); !ok {
			findings = append(findings, finding(app, "github",
				fmt.Sprintf("no asset matching %q in release %s", m.GithubAsset, release.TagName)))
		}

	case catalog.TypeWinget:
		if m.WingetID == "" {
			findings = append(findings, finding(app, "winget", "winget method has no id"))
			break
		}
		if !d.CheckWinget {
			break
		}
		res, err := d.Run.Run(60*time.Second, "winget",
			"show", "--id", m.WingetID, "--exact", "--accept-source-agreements")
		if err != nil {
			findings = append(findings, finding(app, "winget", fmt.Sprintf("winget lookup error: %v", err)))
		} else if res.Failed() {
			findings = append(findings, finding(app, "winget",
				fmt.Sprintf("winget id %s not found", m.WingetID)))
		}

	default:
		findings = append(findings, finding(app, "catalog",
			fmt.Sprintf("unknown install type: %s", m.Type)))
	}

	return findings
}

// checkURL returns an empty string when the URL answers with a non-error
// status. HEAD first, with a GET fallback for servers that refuse HEAD.
func (d *Doctor) checkURL(url string) string {
	resp, err := d.HTTPClient.Head(url)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode < 400 {
			return ""
		}
		if resp.StatusCode != http.StatusMethodNotAllowed && resp.StatusCode != http.StatusForbidden {
			return fmt.Sprintf("HEAD %s returned %d", url, resp.StatusCode)
		}
	}

	resp, err = d.HTTPClient.Get(url)
	if err != nil {
		return fmt.Sprintf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Sprintf("GET %s returned %d", url, resp.StatusCode)
	}
	return ""
}

func finding(app catalog.App, source, message string) Finding {
	return Finding{AppID: app.ID, AppName: app.Name, Source: source, Message: message}
}
