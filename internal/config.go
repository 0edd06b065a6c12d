package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/styles"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/dateutil"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/web"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var (
	langRe = regexp.MustCompile(`^[a-z]{2,3}([-_][A-Za-z0-9]{2,8})*$`)
	repoRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Content  ContentConfig     `yaml:"content"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Site     SiteConfig        `yaml:"site"`
	Render   RenderConfig      `yaml:"render"`
	Sections SectionsConfig    `yaml:"sections"`
	Comments CommentsConfig    `yaml:"comments"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Content, &c.SQLite, &c.Site, &c.Render, &c.Sections, &c.Comments, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	Log      LogConfig  `yaml:"log"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LogConfig enables a rotated log file next to stdout output.
// An empty File logs to stdout only. MaxSize is in megabytes, MaxAge in days.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	if c.File == "" {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSize, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAge, validation.Min(0)),
	)
}

// ContentConfig locates the content directory. PagesDir and ManifestPath
// are relative to Root.
type ContentConfig struct {
	Root         string `yaml:"root"`
	PagesDir     string `yaml:"pages_dir"`
	ManifestPath string `yaml:"manifest_path"`
	// AutoManifest rewrites the manifest on startup and after page changes.
	AutoManifest bool `yaml:"auto_manifest"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.PagesDir, validation.Required, validation.By(relativePath)),
		validation.Field(&c.ManifestPath, validation.Required, validation.By(relativePath)),
	)
}

func relativePath(v any) error {
	p, _ := v.(string)
	if p == "" {
		return nil
	}
	clean := path.Clean(p)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must be a path inside the content root")
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SiteConfig holds the values shown on every page.
type SiteConfig struct {
	Name string `yaml:"name"`
	Lang string `yaml:"lang"`
	// DateFormat overrides the locale's date display, e.g. "YYYY.MM.DD".
	DateFormat string `yaml:"date_format"`
	// StaticDir is served under /static when set.
	StaticDir string `yaml:"static_dir"`
	StyleURL  string `yaml:"style_url"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Lang, validation.Required, validation.Match(langRe)),
		validation.Field(&c.DateFormat, validation.By(func(any) error {
			_, err := c.DateLayout()
			return err
		})),
	)
}

// DateLayout returns the Go time layout dates are displayed with.
func (c *SiteConfig) DateLayout() (string, error) {
	if c.DateFormat == "" {
		return dateutil.LocaleLayout(c.Lang), nil
	}
	return dateutil.ParseFormat(c.DateFormat)
}

// RenderConfig controls Markdown rendering.
type RenderConfig struct {
	GFM            bool   `yaml:"gfm"`
	HardWraps      bool   `yaml:"hard_wraps"`
	Highlight      bool   `yaml:"highlight"`
	HighlightStyle string `yaml:"highlight_style"`
	Sanitize       bool   `yaml:"sanitize"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HighlightStyle, validation.When(c.Highlight,
			validation.Required,
			validation.By(func(any) error {
				if _, ok := styles.Registry[c.HighlightStyle]; !ok {
					return fmt.Errorf("unknown chroma style %q", c.HighlightStyle)
				}
				return nil
			}),
		)),
	)
}

// Options converts the configuration to renderer options.
func (c *RenderConfig) Options() render.Options {
	return render.Options{
		GFM:            c.GFM,
		HardWraps:      c.HardWraps,
		Highlight:      c.Highlight,
		HighlightStyle: c.HighlightStyle,
		Sanitize:       c.Sanitize,
	}
}

// SectionsConfig controls section classification.
type SectionsConfig struct {
	// TableFile replaces the built-in classification table when set.
	TableFile string `yaml:"table_file"`
	// LinkLabel formats the source link button; %s is the section title.
	LinkLabel string `yaml:"link_label"`
}

// Validate validates the sections configuration.
func (c *SectionsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LinkLabel, validation.When(c.LinkLabel != "",
			validation.By(func(any) error {
				if strings.Count(c.LinkLabel, "%s") != 1 {
					return errors.New("must contain exactly one %s")
				}
				return nil
			}),
		)),
	)
}

// CommentsConfig configures the giscus widget on post pages.
type CommentsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Repo          string `yaml:"repo"`
	RepoID        string `yaml:"repo_id"`
	Category      string `yaml:"category"`
	CategoryID    string `yaml:"category_id"`
	Mapping       string `yaml:"mapping"`
	InputPosition string `yaml:"input_position"`
	Theme         string `yaml:"theme"`
	Lang          string `yaml:"lang"`
	Reactions     bool   `yaml:"reactions"`
	EmitMetadata  bool   `yaml:"emit_metadata"`
}

// Validate validates the comments configuration. Settings are only
// checked when comments are enabled.
func (c *CommentsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Repo, validation.Required, validation.Match(repoRe)),
		validation.Field(&c.RepoID, validation.Required),
		validation.Field(&c.Category, validation.Required),
		validation.Field(&c.CategoryID, validation.Required),
		validation.Field(&c.Mapping, validation.Required,
			validation.In("specific", "pathname", "url", "title", "og:title", "number")),
		validation.Field(&c.InputPosition, validation.In("top", "bottom")),
		validation.Field(&c.Theme, validation.Required),
	)
}

// Widget returns the page settings for the widget, or nil when disabled.
func (c *CommentsConfig) Widget() *web.Comments {
	if !c.Enabled {
		return nil
	}
	return &web.Comments{
		Repo:          c.Repo,
		RepoID:        c.RepoID,
		Category:      c.Category,
		CategoryID:    c.CategoryID,
		Mapping:       c.Mapping,
		InputPosition: c.InputPosition,
		Theme:         c.Theme,
		Lang:          c.Lang,
		Reactions:     c.Reactions,
		EmitMetadata:  c.EmitMetadata,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, the manifest rebuild endpoint is open.
//   - "token": Bearer token authentication on write endpoints; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	ro := render.DefaultOptions()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			Log: LogConfig{
				MaxSize:    100,
				MaxBackups: 3,
				MaxAge:     30,
				Compress:   true,
			},
		},
		Content: ContentConfig{
			Root:         "./content",
			PagesDir:     "pages",
			ManifestPath: "posts.json",
			AutoManifest: true,
		},
		SQLite: SQLiteConfig{
			Path: "./folio.db",
		},
		Site: SiteConfig{
			Name: "지용이의 블로그",
			Lang: "ko",
		},
		Render: RenderConfig{
			GFM:            ro.GFM,
			HardWraps:      ro.HardWraps,
			Highlight:      ro.Highlight,
			HighlightStyle: ro.HighlightStyle,
			Sanitize:       ro.Sanitize,
		},
		Comments: CommentsConfig{
			Enabled:       false,
			Mapping:       "specific",
			InputPosition: "bottom",
			Theme:         "light",
			Lang:          "ko",
			Reactions:     true,
			EmitMetadata:  true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
