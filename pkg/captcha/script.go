package captcha

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/mod/semver"
)

// Script is the widget script blob and how to reach it from the page.
// It is supplied by the embedding application and never changes after a
// widget is constructed.
type Script struct {
	// Source is the JavaScript that defines the widget factory.
	Source string
	// Version is the semantic version of Source, with or without a
	// leading "v".
	Version string
	// Factory is the global function that creates a widget:
	// factory(element, options, emit). Defaults to DefaultFactory.
	Factory string
	// Instance is the global the created widget is stored under, where
	// start and reset commands find it. Defaults to DefaultInstance.
	Instance string
}

const (
	DefaultFactory  = "createCaptchaWidget"
	DefaultInstance = "captchaWidget"
)

// ErrInvalidScript is wrapped by every Script validation failure.
var ErrInvalidScript = errors.New("captcha: invalid script")

var jsIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func (s Script) withDefaults() Script {
	if s.Factory == "" {
		s.Factory = DefaultFactory
	}
	if s.Instance == "" {
		s.Instance = DefaultInstance
	}
	return s
}

// CanonicalVersion returns Version in "vMAJOR.MINOR.PATCH" form, or "" if it
// is not a valid semantic version.
func (s Script) CanonicalVersion() string {
	v := s.Version
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// Validate checks that the script is usable. Source is not required here
// because a transport may load it by other means.
func (s Script) Validate() error {
	s = s.withDefaults()
	v := s.CanonicalVersion()
	if v == "" {
		return fmt.Errorf("%w: version %q is not a semantic version", ErrInvalidScript, s.Version)
	}
	if semver.Major(v) == "v0" {
		return fmt.Errorf("%w: version %s is pre-release API", ErrInvalidScript, v)
	}
	if !jsIdentifier.MatchString(s.Factory) {
		return fmt.Errorf("%w: factory %q is not an identifier", ErrInvalidScript, s.Factory)
	}
	if !jsIdentifier.MatchString(s.Instance) {
		return fmt.Errorf("%w: instance %q is not an identifier", ErrInvalidScript, s.Instance)
	}
	return nil
}

// command returns the expression that calls method on the widget instance.
// It is a no-op while the page has not created the widget yet.
func (s Script) command(method string) string {
	s = s.withDefaults()
	return fmt.Sprintf(`(function(){var w=window.%s;if(w&&typeof w.%s==="function"){w.%s();}})();`,
		s.Instance, method, method)
}
