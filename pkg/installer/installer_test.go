package installer

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exileshud/toolbelt/pkg/catalog"
	"github.com/exileshud/toolbelt/pkg/config"
	"github.com/exileshud/toolbelt/pkg/download"
	"github.com/exileshud/toolbelt/pkg/events"
	"github.com/exileshud/toolbelt/pkg/extract"
	"github.com/exileshud/toolbelt/pkg/github"
	"github.com/exileshud/toolbelt/pkg/process"
)

type runCall struct {
	name string
	args []string
}

type fakeRunner struct {
	mu      sync.Mutex
	runs    []runCall
	shells  []string
	runFn   func(name string, args []string) (process.Result, error)
	shellFn func(script string) (process.Result, error)
}

func (f *fakeRunner) Run(_ time.Duration, name string, args ...string) (process.Result, error) {
	f.mu.Lock()
	f.runs = append(f.runs, runCall{name: name, args: args})
	f.mu.Unlock()
	if f.runFn != nil {
		return f.runFn(name, args)
	}
	return process.Result{}, nil
}

func (f *fakeRunner) RunShell(_ time.Duration, script string) (process.Result, error) {
	f.mu.Lock()
	f.shells = append(f.shells, script)
	f.mu.Unlock()
	if f.shellFn != nil {
		return f.shellFn(script)
	}
	return process.Result{}, nil
}

type fetchCall struct {
	url      string
	filename string
	checksum string
}

type fakeFetcher struct {
	calls []fetchCall
	path  string
	err   error
}

func (f *fakeFetcher) Fetch(url, filename, checksum string, _ func(int64, int64)) (string, error) {
	f.calls = append(f.calls, fetchCall{url: url, filename: filename, checksum: checksum})
	return f.path, f.err
}

type fakeReleases struct {
	calls   int
	release *github.Release
	err     error
}

func (f *fakeReleases) LatestRelease(string) (*github.Release, error) {
	f.calls++
	return f.release, f.err
}

func newTestInstaller(rec *events.Recorder) (*Installer, *fakeRunner, *fakeFetcher, *fakeReleases) {
	runner := &fakeRunner{}
	fetcher := &fakeFetcher{}
	releases := &fakeReleases{}
	inst := &Installer{
		Settings: config.GetDefaultSettings(),
		Events:   rec,
		Run:      runner,
		Fetch:    fetcher,
		Releases: releases,
		Extract:  extract.ExtractZip,
	}
	return inst, runner, fetcher, releases
}

func messages(rec *events.Recorder) []string {
	var out []string
	for _, e := range rec.Events() {
		out = append(out, e.Message)
	}
	return out
}

func hasEvent(rec *events.Recorder, level events.Level, substr string) bool {
	for _, e := range rec.Events() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategyWinget, ParseStrategy("winget"))
	assert.Equal(t, StrategyGithub, ParseStrategy("github"))
	assert.Equal(t, StrategyExe, ParseStrategy("exe"))
	assert.Equal(t, StrategyMsi, ParseStrategy("msi"))
	assert.Equal(t, StrategyZip, ParseStrategy("zip"))

	// Exact match only: no case folding, no synonyms, and "web" belongs
	// to the browser front end.
	assert.Equal(t, StrategyUnknown, ParseStrategy("Winget"))
	assert.Equal(t, StrategyUnknown, ParseStrategy("WINGET"))
	assert.Equal(t, StrategyUnknown, ParseStrategy("web"))
	assert.Equal(t, StrategyUnknown, ParseStrategy(""))
}

func TestInstallUnknownTypeFailsImmediately(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, releases := newTestInstaller(rec)

	ok := inst.Install(catalog.App{ID: "x", Name: "X", InstallType: "unknown_strategy"})

	assert.False(t, ok)
	assert.Empty(t, runner.runs)
	assert.Empty(t, runner.shells)
	assert.Empty(t, fetcher.calls)
	assert.Zero(t, releases.calls)
	assert.True(t, hasEvent(rec, events.LevelError, "Unknown install type: unknown_strategy"),
		"events: %v", messages(rec))
}

func TestWingetMissingIDNoProcessCall(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, _, _ := newTestInstaller(rec)

	ok := inst.Install(catalog.App{ID: "a", Name: "A", InstallType: "winget"})

	assert.False(t, ok)
	assert.Empty(t, runner.runs)
	assert.True(t, hasEvent(rec, events.LevelError, "No winget ID specified"))
}

func TestWingetSuccessSkipsPostSteps(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, _, _ := newTestInstaller(rec)

	app := catalog.App{
		ID: "a", Name: "A",
		InstallType: "winget",
		WingetID:    "Vendor.App",
		PostSteps:   []catalog.PostStep{{Name: "configure", Script: "Write-Host hi"}},
	}

	ok := inst.Install(app)

	assert.True(t, ok)
	require.Len(t, runner.runs, 1)
	assert.Equal(t, "winget", runner.runs[0].name)
	assert.Equal(t, []string{"install", "--id", "Vendor.App", "--silent",
		"--accept-package-agreements", "--accept-source-agreements"}, runner.runs[0].args)
	// Package-manager installs are self-contained: no post-steps, ever.
	assert.Empty(t, runner.shells)
}

func TestWingetFailureSurfacesStderr(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, _, _ := newTestInstaller(rec)
	runner.runFn = func(string, []string) (process.Result, error) {
		return process.Result{ExitCode: 1, Stderr: "no package found matching input criteria"}, nil
	}

	ok := inst.Install(catalog.App{ID: "a", Name: "A", InstallType: "winget", WingetID: "Nope.Nope"})

	assert.False(t, ok)
	assert.True(t, hasEvent(rec, events.LevelError, "no package found matching input criteria"))
}

func TestWingetTimeoutIsDistinctFromExitFailure(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, _, _ := newTestInstaller(rec)
	runner.runFn = func(string, []string) (process.Result, error) {
		return process.Result{TimedOut: true, ExitCode: -1}, nil
	}

	ok := inst.Install(catalog.App{ID: "a", Name: "A", InstallType: "winget", WingetID: "Slow.App"})

	assert.False(t, ok)
	assert.True(t, hasEvent(rec, events.LevelError, "timed out"))
	assert.False(t, hasEvent(rec, events.LevelError, "Winget installation failed"))
}

func TestGithubMissingFieldsNoNetworkCall(t *testing.T) {
	rec := &events.Recorder{}
	inst, _, fetcher, releases := newTestInstaller(rec)

	ok := inst.Install(catalog.App{ID: "a", Name: "A", InstallType: "github", GithubRepo: "org/tool"})

	assert.False(t, ok)
	assert.Zero(t, releases.calls)
	assert.Empty(t, fetcher.calls)
	assert.True(t, hasEvent(rec, events.LevelError, "Missing GitHub repository or asset name"))
}

func TestGithubResolvesFirstMatchingAssetAndExtracts(t *testing.T) {
	rec := &events.Recorder{}
	inst, _, fetcher, releases := newTestInstaller(rec)

	dir := t.TempDir()
	archive := filepath.Join(dir, "tool-windows-x64.zip")
	writeZip(t, archive, map[string]string{"tool.exe": "binary"})
	fetcher.path = archive

	releases.release = &github.Release{
		TagName: "v1.2.3",
		Assets: []github.Asset{
			{Name: "tool-linux.tar.gz", BrowserDownloadURL: "https://dl/linux"},
			{Name: "tool-windows-x64.zip", BrowserDownloadURL: "https://dl/win"},
		},
	}

	app := catalog.App{
		ID: "tool", Name: "Tool",
		InstallType: "github",
		GithubRepo:  "org/tool",
		GithubAsset: "windows-x64",
	}

	ok := inst.Install(app)

	assert.True(t, ok)
	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, "https://dl/win", fetcher.calls[0].url)
	// The matched asset's name, not the search pattern, becomes the
	// destination filename so extension-driven handling works.
	assert.Equal(t, "tool-windows-x64.zip", fetcher.calls[0].filename)

	extracted := filepath.Join(dir, "tool-windows-x64", "tool.exe")
	data, err := os.ReadFile(extracted)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
}

func TestGithubNoMatchingAsset(t *testing.T) {
	rec := &events.Recorder{}
	inst, _, fetcher, releases := newTestInstaller(rec)
	releases.release = &github.Release{Assets: []github.Asset{{Name: "tool-macos.dmg"}}}

	ok := inst.Install(catalog.App{
		ID: "tool", Name: "Tool",
		InstallType: "github", GithubRepo: "org/tool", GithubAsset: "windows-x64",
	})

	assert.False(t, ok)
	assert.Empty(t, fetcher.calls)
	assert.True(t, hasEvent(rec, events.LevelError, "'windows-x64' not found in latest release"))
}

func TestGithubAPIErrorFails(t *testing.T) {
	rec := &events.Recorder{}
	inst, _, fetcher, releases := newTestInstaller(rec)
	releases.err = fmt.Errorf("releases query for org/tool returned HTTP 403")

	ok := inst.Install(catalog.App{
		ID: "tool", Name: "Tool",
		InstallType: "github", GithubRepo: "org/tool", GithubAsset: "windows-x64",
	})

	assert.False(t, ok)
	assert.Empty(t, fetcher.calls)
	assert.True(t, hasEvent(rec, events.LevelError, "GitHub download error"))
}

func TestDirectDownloadMissingFieldsNoFetch(t *testing.T) {
	rec := &events.Recorder{}
	inst, _, fetcher, _ := newTestInstaller(rec)

	ok := inst.Install(catalog.App{ID: "a", Name: "A", InstallType: "exe", URL: "https://example/app.exe"})

	assert.False(t, ok)
	assert.Empty(t, fetcher.calls)
	assert.True(t, hasEvent(rec, events.LevelError, "Missing download URL or filename"))
}

func TestExeInstallRunsSilentFlagAndPostSteps(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, _ := newTestInstaller(rec)

	dir := t.TempDir()
	exePath := filepath.Join(dir, "app.exe")
	require.NoError(t, os.WriteFile(exePath, []byte("MZ"), 0755))
	fetcher.path = exePath

	app := catalog.App{
		ID: "app", Name: "App",
		InstallType: "exe",
		URL:         "https://example/app.exe",
		Filename:    "app.exe",
		Checksum:    "ABCDEF0123456789abcdef0123456789abcdef0123456789abcdef0123456789",
		PostSteps:   []catalog.PostStep{{Name: "add to path", Script: "setx PATH ..."}},
	}

	ok := inst.Install(app)

	assert.True(t, ok)
	require.Len(t, fetcher.calls, 1)
	// The descriptor's checksum reaches the download layer untouched.
	assert.Equal(t, app.Checksum, fetcher.calls[0].checksum)
	require.Len(t, runner.runs, 1)
	assert.Equal(t, exePath, runner.runs[0].name)
	assert.Equal(t, []string{"/S"}, runner.runs[0].args)
	require.Len(t, runner.shells, 1)
	assert.True(t, hasEvent(rec, events.LevelSuccess, "Checksum verification passed"))
}

func TestMsiInstallUsesQuietNorestart(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, _ := newTestInstaller(rec)

	dir := t.TempDir()
	msiPath := filepath.Join(dir, "app.msi")
	require.NoError(t, os.WriteFile(msiPath, []byte("msi"), 0644))
	fetcher.path = msiPath

	ok := inst.Install(catalog.App{
		ID: "app", Name: "App",
		InstallType: "msi", URL: "https://example/app.msi", Filename: "app.msi",
	})

	assert.True(t, ok)
	require.Len(t, runner.runs, 1)
	assert.Equal(t, []string{"/i", msiPath, "/quiet", "/norestart"}, runner.runs[0].args)
}

func TestChecksumMismatchFailsBeforeInstall(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, _ := newTestInstaller(rec)
	fetcher.err = &download.ChecksumError{Expected: "aa", Actual: "bb"}

	ok := inst.Install(catalog.App{
		ID: "app", Name: "App",
		InstallType: "exe", URL: "https://example/app.exe", Filename: "app.exe",
		Checksum: "aa",
	})

	assert.False(t, ok)
	// The installer must never run on an unverified artifact.
	assert.Empty(t, runner.runs)
	assert.True(t, hasEvent(rec, events.LevelError, "Checksum verification failed! Expected: aa, Got: bb"))
}

func TestNetworkErrorIsDistinctFromChecksumError(t *testing.T) {
	rec := &events.Recorder{}
	inst, _, fetcher, _ := newTestInstaller(rec)
	fetcher.err = fmt.Errorf("unexpected HTTP status code: 503")

	ok := inst.Install(catalog.App{
		ID: "app", Name: "App",
		InstallType: "exe", URL: "https://example/app.exe", Filename: "app.exe",
	})

	assert.False(t, ok)
	assert.True(t, hasEvent(rec, events.LevelError, "Network error during download"))
	assert.False(t, hasEvent(rec, events.LevelError, "Checksum verification failed"))
}

func TestInstallerNonZeroExit(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, _ := newTestInstaller(rec)

	dir := t.TempDir()
	exePath := filepath.Join(dir, "app.exe")
	require.NoError(t, os.WriteFile(exePath, []byte("MZ"), 0755))
	fetcher.path = exePath
	runner.runFn = func(string, []string) (process.Result, error) {
		return process.Result{ExitCode: 1603, Stderr: "fatal error during installation"}, nil
	}

	ok := inst.Install(catalog.App{
		ID: "app", Name: "App",
		InstallType: "exe", URL: "https://example/app.exe", Filename: "app.exe",
		PostSteps: []catalog.PostStep{{Name: "never", Script: "echo no"}},
	})

	assert.False(t, ok)
	assert.True(t, hasEvent(rec, events.LevelError, "Installation failed with exit code: 1603"))
	// Post-steps require a successful primary install.
	assert.Empty(t, runner.shells)
}

func TestInstallerTimeout(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, _ := newTestInstaller(rec)

	dir := t.TempDir()
	exePath := filepath.Join(dir, "app.exe")
	require.NoError(t, os.WriteFile(exePath, []byte("MZ"), 0755))
	fetcher.path = exePath
	runner.runFn = func(string, []string) (process.Result, error) {
		return process.Result{TimedOut: true, ExitCode: -1}, nil
	}

	ok := inst.Install(catalog.App{
		ID: "app", Name: "App",
		InstallType: "exe", URL: "https://example/app.exe", Filename: "app.exe",
	})

	assert.False(t, ok)
	assert.True(t, hasEvent(rec, events.LevelError, "Installer timed out"))
}

func TestZipExtractsToOverrideDirectory(t *testing.T) {
	rec := &events.Recorder{}
	inst, _, fetcher, _ := newTestInstaller(rec)

	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{"readme.txt": "hello"})
	fetcher.path = archive

	ok := inst.Install(catalog.App{
		ID: "bundle", Name: "Bundle",
		InstallType: "zip",
		URL:         "https://example/bundle.zip",
		Filename:    "bundle.zip",
		ExtractTo:   "custom-dir",
	})

	assert.True(t, ok)
	data, err := os.ReadFile(filepath.Join(dir, "custom-dir", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestZipBadArchiveDeletesArtifact(t *testing.T) {
	rec := &events.Recorder{}
	inst, _, fetcher, _ := newTestInstaller(rec)

	dir := t.TempDir()
	bogus := filepath.Join(dir, "bundle.zip")
	require.NoError(t, os.WriteFile(bogus, []byte("this is not a zip"), 0644))
	fetcher.path = bogus

	ok := inst.Install(catalog.App{
		ID: "bundle", Name: "Bundle",
		InstallType: "zip", URL: "https://example/bundle.zip", Filename: "bundle.zip",
	})

	assert.False(t, ok)
	assert.True(t, hasEvent(rec, events.LevelError, "not a valid zip archive"))
	_, err := os.Stat(bogus)
	assert.True(t, os.IsNotExist(err), "corrupt artifact should be deleted")
}

func TestZipPostStepFailureIsWarningOnly(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, _ := newTestInstaller(rec)

	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{"a.txt": "a"})
	fetcher.path = archive
	runner.shellFn = func(string) (process.Result, error) {
		return process.Result{ExitCode: 1, Stderr: "access denied"}, nil
	}

	ok := inst.Install(catalog.App{
		ID: "bundle", Name: "Bundle",
		InstallType: "zip", URL: "https://example/bundle.zip", Filename: "bundle.zip",
		PostSteps: []catalog.PostStep{
			{Name: "create shortcut", Script: "New-Item ..."},
			{Name: "register", Script: "Start-Process ..."},
		},
	})

	// Extraction success decides the outcome; post-steps degrade to warnings.
	assert.True(t, ok)
	assert.True(t, hasEvent(rec, events.LevelWarning, "Step 'create shortcut' failed"))
	// Iteration continues past a failing step.
	assert.Len(t, runner.shells, 2)
}

func TestBlockedApplicationFailsBeforeAnyIO(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, releases := newTestInstaller(rec)
	inst.Blocked = func(names []string) []string { return []string{"EDMarketConnector.exe"} }

	ok := inst.Install(catalog.App{
		ID: "a", Name: "A",
		InstallType:  "exe",
		URL:          "https://example/a.exe",
		Filename:     "a.exe",
		BlockingApps: []string{"EDMarketConnector.exe"},
	})

	assert.False(t, ok)
	assert.Empty(t, runner.runs)
	assert.Empty(t, fetcher.calls)
	assert.Zero(t, releases.calls)
	assert.True(t, hasEvent(rec, events.LevelError, "Cannot install while running"))
}

func TestInstallMethodsListTakesPrecedence(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, _, _ := newTestInstaller(rec)

	app := catalog.App{
		ID: "a", Name: "A",
		InstallType: "exe", // legacy fields would fail (no url)
		Methods: []catalog.Method{
			{Type: "winget", WingetID: "Vendor.App"},
			{Type: "exe", URL: "https://example/a.exe", Filename: "a.exe"},
		},
	}

	ok := inst.Install(app)

	assert.True(t, ok)
	require.Len(t, runner.runs, 1)
	assert.Equal(t, "winget", runner.runs[0].name)
}

func TestBatchContinuesPastFailures(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, fetcher, _ := newTestInstaller(rec)
	fetcher.err = &download.ChecksumError{Expected: "aa", Actual: "bb"}

	apps := []catalog.App{
		{ID: "one", Name: "One", InstallType: "winget", WingetID: "Vendor.One"},
		{ID: "two", Name: "Two", InstallType: "exe", URL: "https://example/two.exe", Filename: "two.exe", Checksum: "aa"},
		{ID: "three", Name: "Three", InstallType: "winget", WingetID: "Vendor.Three"},
	}

	var fractions [][2]int
	summary := inst.RunBatch(apps, func(completed, total int) {
		fractions = append(fractions, [2]int{completed, total})
	})

	assert.Equal(t, Summary{Completed: 2, Total: 3}, summary)
	// The third descriptor was attempted despite the second failing.
	assert.Len(t, runner.runs, 2)
	assert.Equal(t, [][2]int{{1, 3}, {1, 3}, {2, 3}}, fractions)
	assert.True(t, hasEvent(rec, events.LevelError, "Failed to install Two"))
	assert.True(t, hasEvent(rec, events.LevelSuccess, "Three installed successfully"))
}

func TestBatchOrderIsPreserved(t *testing.T) {
	rec := &events.Recorder{}
	inst, runner, _, _ := newTestInstaller(rec)

	apps := []catalog.App{
		{ID: "b", Name: "B", InstallType: "winget", WingetID: "Vendor.B"},
		{ID: "a", Name: "A", InstallType: "winget", WingetID: "Vendor.A"},
	}

	inst.RunBatch(apps, nil)

	require.Len(t, runner.runs, 2)
	assert.Equal(t, "Vendor.B", runner.runs[0].args[2])
	assert.Equal(t, "Vendor.A", runner.runs[1].args[2])
}
