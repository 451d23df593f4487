// pkg/installer/installer.go - the installation dispatcher.
//
// Given an application descriptor, Install selects the matching strategy,
// verifies integrity where a checksum is supplied, triggers post-install
// steps and reports everything through the event stream. Nothing unwinds
// past Install: every failure becomes a false return plus log events.

package installer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/exileshud/toolbelt/pkg/blocking"
	"github.com/exileshud/toolbelt/pkg/catalog"
	"github.com/exileshud/toolbelt/pkg/config"
	"github.com/exileshud/toolbelt/pkg/download"
	"github.com/exileshud/toolbelt/pkg/events"
	"github.com/exileshud/toolbelt/pkg/extract"
	"github.com/exileshud/toolbelt/pkg/github"
	"github.com/exileshud/toolbelt/pkg/process"
)

// Strategy is one of the mutually exclusive installation algorithms. Catalog
// type tags are parsed into a Strategy exactly once, at dispatch; anything
// the parser does not recognize stays StrategyUnknown and fails that
// descriptor without side effects.
type Strategy int

const (
	StrategyUnknown Strategy = iota
	StrategyWinget
	StrategyGithub
	StrategyExe
	StrategyMsi
	StrategyZip
)

// ParseStrategy maps a catalog type tag to a Strategy. Matching is exact:
// no case folding, no synonyms. The "web" tag is valid catalog data but is
// handled by the presentation layer, so it parses as unknown here.
func ParseStrategy(tag string) Strategy {
	switch tag {
	case catalog.TypeWinget:
		return StrategyWinget
	case catalog.TypeGithub:
		return StrategyGithub
	case catalog.TypeExe:
		return StrategyExe
	case catalog.TypeMsi:
		return StrategyMsi
	case catalog.TypeZip:
		return StrategyZip
	default:
		return StrategyUnknown
	}
}

// Commander runs external processes with a timeout ceiling.
type Commander interface {
	Run(timeout time.Duration, name string, args ...string) (process.Result, error)
	RunShell(timeout time.Duration, script string) (process.Result, error)
}

// Fetcher streams a URL to disk, optionally verifying a SHA-256 checksum.
type Fetcher interface {
	Fetch(url, filename, expectedChecksum string, progress func(downloaded, total int64)) (string, error)
}

// ReleaseResolver resolves the latest GitHub release of a repository.
type ReleaseResolver interface {
	LatestRelease(repo string) (*github.Release, error)
}

// Installer dispatches application descriptors to install strategies.
// The collaborator fields are exported so tests can substitute fakes.
type Installer struct {
	Settings *config.Settings
	Events   events.Sink

	Run      Commander
	Fetch    Fetcher
	Releases ReleaseResolver
	Extract  func(archive, destDir string) error
	Blocked  func(appNames []string) []string
}

// New wires an Installer with its real collaborators.
func New(settings *config.Settings, sink events.Sink) *Installer {
	return &Installer{
		Settings: settings,
		Events:   sink,
		Run:      process.Runner{},
		Fetch:    download.New(settings.DownloadPath, settings.DownloadTimeout()),
		Releases: github.NewClient(settings.GitHubAPIURL, 30*time.Second),
		Extract:  extract.ExtractZip,
		Blocked:  blocking.Running,
	}
}

var commandMsi = msiexecPath()

func msiexecPath() string {
	if windir := os.Getenv("WINDIR"); windir != "" {
		return filepath.Join(windir, "system32", "msiexec.exe")
	}
	return "msiexec"
}

// Install attempts to install a single application and returns whether it
// succeeded. All other observable effects are delivered as log events.
func (i *Installer) Install(app catalog.App) bool {
	ev := events.NewEmitter(i.Events, app.Name)
	method := app.EffectiveMethod()

	if len(app.BlockingApps) > 0 && i.Blocked != nil {
		if running := i.Blocked(app.BlockingApps); len(running) > 0 {
			ev.Error("Cannot install while running: %s", strings.Join(running, ", "))
			return false
		}
	}

	switch ParseStrategy(method.Type) {
	case StrategyWinget:
		return i.installWinget(ev, app, method)
	case StrategyGithub:
		return i.installGithub(ev, app, method)
	case StrategyExe, StrategyMsi, StrategyZip:
		return i.installDirect(ev, app, method)
	default:
		ev.Error("Unknown install type: %s", method.Type)
		return false
	}
}

// installWinget shells out to the package manager. Package-manager installs
// are self-contained: post-steps do not run even on success.
func (i *Installer) installWinget(ev *events.Emitter, app catalog.App, m catalog.Method) bool {
	if m.WingetID == "" {
		ev.Error("No winget ID specified")
		return false
	}

	ev.Info("Installing via winget: %s", m.WingetID)

	res, err := i.Run.Run(i.Settings.WingetTimeout(), "winget",
		"install", "--id", m.WingetID, "--silent",
		"--accept-package-agreements", "--accept-source-agreements")
	if err != nil {
		ev.Error("Winget installation error: %v", err)
		return false
	}
	if res.TimedOut {
		ev.Error("Winget installation timed out")
		return false
	}
	if res.ExitCode != 0 {
		ev.Error("Winget installation failed: %s", res.Stderr)
		return false
	}

	ev.Success("Winget installation completed")
	return true
}

// installGithub resolves the latest release asset by substring match, then
// hands off to the generic download path using the matched asset's name as
// the destination filename.
func (i *Installer) installGithub(ev *events.Emitter, app catalog.App, m catalog.Method) bool {
	if m.GithubRepo == "" || m.GithubAsset == "" {
		ev.Error("Missing GitHub repository or asset name")
		return false
	}

	ev.Info("Downloading from GitHub: %s", m.GithubRepo)

	release, err := i.Releases.LatestRelease(m.GithubRepo)
	if err != nil {
		ev.Error("GitHub download error: %v", err)
		return false
	}

	asset, ok := release.MatchAsset(m.GithubAsset)
	if !ok {
		ev.Error("Asset '%s' not found in latest release", m.GithubAsset)
		return false
	}

	return i.downloadAndInstall(ev, app, m, asset.BrowserDownloadURL, asset.Name)
}

// installDirect covers the exe, msi and zip strategies: a direct URL
// download followed by filename-driven handling.
func (i *Installer) installDirect(ev *events.Emitter, app catalog.App, m catalog.Method) bool {
	if m.URL == "" || m.Filename == "" {
		ev.Error("Missing download URL or filename")
		return false
	}

	ev.Info("Downloading: %s", m.Filename)
	return i.downloadAndInstall(ev, app, m, m.URL, m.Filename)
}

// downloadAndInstall streams the artifact to disk, verifies it when a
// checksum is supplied, then dispatches on the filename extension: run
// installers, extract archives, or accept the file as-is.
func (i *Installer) downloadAndInstall(ev *events.Emitter, app catalog.App, m catalog.Method, url, filename string) bool {
	checksum := strings.TrimSpace(app.Checksum)
	if checksum != "" {
		ev.Info("Will verify checksum: %.16s...", checksum)
	}

	ev.Info("Downloading from: %s", url)

	path, err := i.Fetch.Fetch(url, filename, checksum, i.downloadProgress(ev))
	if err != nil {
		var mismatch *download.ChecksumError
		if errors.As(err, &mismatch) {
			ev.Error("Checksum verification failed! Expected: %s, Got: %s", mismatch.Expected, mismatch.Actual)
		} else {
			ev.Error("Network error during download: %v", err)
		}
		return false
	}

	ev.Info("Download completed: %s", path)
	if checksum != "" {
		ev.Success("Checksum verification passed")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".exe", ".msi":
		return i.runInstaller(ev, app, path)
	case ".zip":
		return i.extractArchive(ev, app, m, path, filename)
	default:
		ev.Success("File downloaded successfully")
		i.runPostSteps(ev, app)
		return true
	}
}

// downloadProgress returns a progress callback that logs once per mebibyte.
func (i *Installer) downloadProgress(ev *events.Emitter) func(downloaded, total int64) {
	const mb = 1024 * 1024
	var lastLogged int64
	return func(downloaded, total int64) {
		if downloaded/mb <= lastLogged/mb {
			return
		}
		lastLogged = downloaded
		if total > 0 {
			ev.Info("Downloaded %dMB of %dMB (%.1f%%)", downloaded/mb, total/mb,
				float64(downloaded)/float64(total)*100)
		} else {
			ev.Info("Downloaded %dMB", downloaded/mb)
		}
	}
}

// runInstaller executes a downloaded exe or msi with its silent-install
// convention. Post-steps run only after the installer reports success; a
// post-step failure never overrides that success.
func (i *Installer) runInstaller(ev *events.Emitter, app catalog.App, path string) bool {
	ev.Info("Running installer: %s", filepath.Base(path))

	var res process.Result
	var err error
	if strings.EqualFold(filepath.Ext(path), ".msi") {
		res, err = i.Run.Run(i.Settings.InstallerTimeout(), commandMsi, "/i", path, "/quiet", "/norestart")
	} else {
		res, err = i.Run.Run(i.Settings.InstallerTimeout(), path, "/S")
	}
	if err != nil {
		ev.Error("Installer error: %v", err)
		return false
	}
	if res.TimedOut {
		ev.Error("Installer timed out")
		return false
	}
	if res.ExitCode != 0 {
		ev.Error("Installation failed with exit code: %d", res.ExitCode)
		if res.Stderr != "" {
			ev.Error("Installer error output: %s", res.Stderr)
		}
		return false
	}

	ev.Success("Installation completed successfully")
	i.runPostSteps(ev, app)
	return true
}

// extractArchive extracts a downloaded zip. Extraction success decides the
// strategy's outcome; post-steps afterwards are warnings only. A corrupt
// payload deletes the artifact and fails distinctly from network errors.
func (i *Installer) extractArchive(ev *events.Emitter, app catalog.App, m catalog.Method, path, filename string) bool {
	extractTo := m.ExtractTo
	if extractTo == "" {
		extractTo = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	destDir := filepath.Join(filepath.Dir(path), extractTo)

	if err := i.Extract(path, destDir); err != nil {
		var bad *extract.BadArchiveError
		if errors.As(err, &bad) {
			ev.Error("Downloaded file is not a valid zip archive")
		} else {
			ev.Error("Extraction error: %v", err)
		}
		os.Remove(path)
		return false
	}

	ev.Info("Extracted to: %s", destDir)
	i.runPostSteps(ev, app)
	return true
}

// runPostSteps iterates the descriptor's ordered post-step list. A step's
// non-zero exit or timeout is logged as a warning and iteration continues;
// an empty list is vacuously successful.
func (i *Installer) runPostSteps(ev *events.Emitter, app catalog.App) {
	if len(app.PostSteps) == 0 {
		return
	}

	ev.Info("Running post-installation steps...")

	for _, step := range app.PostSteps {
		name := step.Name
		if name == "" {
			name = "Unknown"
		}
		if step.Script == "" {
			continue
		}

		ev.Info("Executing step: %s", name)

		res, err := i.Run.RunShell(i.Settings.PostStepTimeout(), step.Script)
		if err != nil {
			ev.Warning("Step '%s' failed: %v", name, err)
			continue
		}
		if res.TimedOut {
			ev.Warning("Step '%s' timed out", name)
			continue
		}
		if res.ExitCode != 0 {
			ev.Warning("Step '%s' failed: %s", name, res.Stderr)
			continue
		}
		ev.Success("Step '%s' completed", name)
	}
}
