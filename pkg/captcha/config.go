package captcha

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Theme selects the widget color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	// ThemeAuto follows the system color scheme.
	ThemeAuto Theme = "auto"
)

// Endpoint selects the verification API the widget talks to: one of the
// named presets or an absolute URL.
type Endpoint string

const (
	EndpointGlobal Endpoint = "global"
	EndpointEU     Endpoint = "eu"
)

// IsPreset reports whether e names a built-in endpoint.
func (e Endpoint) IsPreset() bool {
	return e == EndpointGlobal || e == EndpointEU
}

// DefaultBaseURL is the page origin used when Config.BaseURL is empty.
const DefaultBaseURL = "https://localhost/"

// Configuration errors.
var (
	ErrMissingSiteKey  = errors.New("captcha: site key is required")
	ErrInvalidEndpoint = errors.New("captcha: invalid endpoint")
	ErrInvalidTheme    = errors.New("captcha: invalid theme")
	ErrInvalidLanguage = errors.New("captcha: invalid language")
	ErrInvalidBaseURL  = errors.New("captcha: invalid base URL")
)

// Config describes one widget instance.
type Config struct {
	// SiteKey identifies the site to the captcha service.
	SiteKey string `yaml:"sitekey"`
	// Endpoint defaults to EndpointGlobal.
	Endpoint Endpoint `yaml:"endpoint,omitempty"`
	// Language is a BCP 47 tag; empty lets the widget choose.
	Language string `yaml:"language,omitempty"`
	// Theme defaults to ThemeAuto.
	Theme Theme `yaml:"theme,omitempty"`
	// BaseURL is the origin the host page is loaded under. Site keys are
	// often bound to allowed origins, so set it to one of them.
	BaseURL string `yaml:"base_url,omitempty"`
}

// WithDefaults returns c with empty optional fields filled in.
func (c Config) WithDefaults() Config {
	c.SiteKey = strings.TrimSpace(c.SiteKey)
	if c.Endpoint == "" {
		c.Endpoint = EndpointGlobal
	}
	if c.Theme == "" {
		c.Theme = ThemeAuto
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return c
}

// Validate checks c after applying defaults.
func (c Config) Validate() error {
	c = c.WithDefaults()
	if c.SiteKey == "" {
		return ErrMissingSiteKey
	}
	if !c.Endpoint.IsPreset() {
		if err := validateAbsoluteURL(string(c.Endpoint)); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidEndpoint, c.Endpoint, err)
		}
	}
	switch c.Theme {
	case ThemeLight, ThemeDark, ThemeAuto:
	default:
		return fmt.Errorf("%w %q", ErrInvalidTheme, c.Theme)
	}
	if c.Language != "" {
		if _, err := language.Parse(c.Language); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidLanguage, c.Language, err)
		}
	}
	if err := validateAbsoluteURL(c.BaseURL); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidBaseURL, c.BaseURL, err)
	}
	return nil
}

// languageTag returns the canonical form of the configured language.
func (c Config) languageTag() string {
	if c.Language == "" {
		return ""
	}
	tag, err := language.Parse(c.Language)
	if err != nil {
		return c.Language
	}
	return tag.String()
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// LoadConfig reads a YAML widget configuration. A missing file yields an
// empty Config so flags or code can supply every field.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
