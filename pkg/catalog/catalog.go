// pkg/catalog/catalog.go - the application catalog and descriptor model.
//
// The catalog is a JSON document with top-level metadata and either a flat
// "apps" array, named "categories" groups, or both. The installer is
// agnostic to grouping; Flatten returns everything as one ordered slice.

package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Method type tags. Dispatch is an exact string match: no case folding,
// no synonyms.
const (
	TypeWinget = "winget"
	TypeGithub = "github"
	TypeExe    = "exe"
	TypeMsi    = "msi"
	TypeZip    = "zip"
	TypeWeb    = "web"
)

// PostStep is a shell script run after a successful primary install.
type PostStep struct {
	Name   string `json:"name"`
	Script string `json:"script"`
}

// Method holds the strategy-specific parameters of one install method.
type Method struct {
	Type        string `json:"type"`
	WingetID    string `json:"winget_id,omitempty"`
	GithubRepo  string `json:"github_repo,omitempty"`
	GithubAsset string `json:"github_asset,omitempty"`
	URL         string `json:"url,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ExtractTo   string `json:"extract_to,omitempty"`
}

// App is a single catalog entry describing one installable application.
//
// Two descriptor forms exist: the legacy flat form (install_type plus the
// per-type fields inline) and the modern install_methods list. Both are
// normalized through EffectiveMethod.
type App struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Legacy flat form.
	InstallType string `json:"install_type,omitempty"`
	WingetID    string `json:"winget_id,omitempty"`
	GithubRepo  string `json:"github_repo,omitempty"`
	GithubAsset string `json:"github_asset,omitempty"`
	URL         string `json:"url,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ExtractTo   string `json:"extract_to,omitempty"`

	// Modern form.
	Methods []Method `json:"install_methods,omitempty"`

	Checksum      string     `json:"checksum,omitempty"`
	PostSteps     []PostStep `json:"post_steps,omitempty"`
	Optional      bool       `json:"optional,omitempty"`
	RequiresAdmin bool       `json:"requires_admin,omitempty"`
	BlockingApps  []string   `json:"blocking_apps,omitempty"`
	Description   string     `json:"description,omitempty"`

	// Category is filled in by the loader for grouped catalogs.
	Category string `json:"-"`
}

// EffectiveMethod returns the method the dispatcher should use: the first
// entry of install_methods when present, otherwise the legacy flat fields.
func (a App) EffectiveMethod() Method {
	if len(a.Methods) > 0 {
		return a.Methods[0]
	}
	return Method{
		Type:        a.InstallType,
		WingetID:    a.WingetID,
		GithubRepo:  a.GithubRepo,
		GithubAsset: a.GithubAsset,
		URL:         a.URL,
		Filename:    a.Filename,
		ExtractTo:   a.ExtractTo,
	}
}

// AllMethods returns every method declared on the descriptor. Used by the
// link doctor, which audits all of them, not just the effective one.
func (a App) AllMethods() []Method {
	if len(a.Methods) > 0 {
		return a.Methods
	}
	m := a.EffectiveMethod()
	if m.Type == "" {
		return nil
	}
	return []Method{m}
}

// Metadata describes the catalog document itself.
type Metadata struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Updated string `json:"updated,omitempty"`
}

// Category is a named group of apps.
type Category struct {
	Name string `json:"name"`
	Apps []App  `json:"apps"`
}

// Catalog is the parsed catalog document.
type Catalog struct {
	Metadata   Metadata   `json:"metadata"`
	Apps       []App      `json:"apps"`
	Categories []Category `json:"categories"`
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a catalog document from raw JSON.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}
	for i := range c.Categories {
		for j := range c.Categories[i].Apps {
			c.Categories[i].Apps[j].Category = c.Categories[i].Name
		}
	}
	return &c, nil
}

// Flatten returns all apps in document order: the flat list first, then
// each category's apps in listed order.
func (c *Catalog) Flatten() []App {
	out := make([]App, 0, len(c.Apps))
	out = append(out, c.Apps...)
	for _, cat := range c.Categories {
		out = append(out, cat.Apps...)
	}
	return out
}

// Find returns the app with the given id, matched case-insensitively.
func (c *Catalog) Find(id string) (App, bool) {
	for _, app := range c.Flatten() {
		if strings.EqualFold(app.ID, id) {
			return app, true
		}
	}
	return App{}, false
}
