package captcha

import (
	"encoding/json"
	"fmt"
	"html/template"
	"image/color"
	"strings"

	"golang.org/x/image/colornames"
)

// MessageHandlerName is the script message handler the page posts to:
// window.webkit.messageHandlers.captcha on iOS and window.captcha on Android.
const MessageHandlerName = "captcha"

type palette struct {
	background color.RGBA
	foreground color.RGBA
}

var (
	lightPalette = palette{background: colornames.White, foreground: colornames.Black}
	darkPalette  = palette{background: colornames.Black, foreground: colornames.Whitesmoke}
)

func cssColor(c color.RGBA) template.CSS {
	return template.CSS(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// widgetOptions is passed to the script factory as its options argument.
type widgetOptions struct {
	SiteKey  string `json:"sitekey"`
	Endpoint string `json:"endpoint"`
	Language string `json:"language,omitempty"`
	Theme    string `json:"theme"`
	Version  string `json:"hostVersion,omitempty"`
}

const bootstrapTemplate = `(function () {
  var handler = %[1]s;
  function post(type, data) {
    var msg = {type: type, data: data};
    var wk = window.webkit && window.webkit.messageHandlers && window.webkit.messageHandlers[handler];
    if (wk) {
      wk.postMessage(msg);
      return;
    }
    var bridge = window[handler];
    if (bridge && typeof bridge.postMessage === "function") {
      bridge.postMessage(JSON.stringify(msg));
    }
  }
  var factory = window[%[2]s];
  if (typeof factory !== "function") {
    post("error", {error: {code: "script_missing", detail: %[2]s + " is not defined"}, id: ""});
    return;
  }
  var el = typeof document !== "undefined" ? document.getElementById("captcha") : null;
  window[%[3]s] = factory(el, %[4]s, post);
})();
`

// BootstrapScript returns the JavaScript that creates the widget through the
// script's factory and forwards every emitted event to the host message
// handler. The script Source must already be loaded.
func BootstrapScript(cfg Config, script Script) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := script.Validate(); err != nil {
		return "", err
	}
	cfg = cfg.WithDefaults()
	script = script.withDefaults()

	opts, err := json.Marshal(widgetOptions{
		SiteKey:  cfg.SiteKey,
		Endpoint: string(cfg.Endpoint),
		Language: cfg.languageTag(),
		Theme:    string(cfg.Theme),
		Version:  script.CanonicalVersion(),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(bootstrapTemplate,
		jsString(MessageHandlerName),
		jsString(script.Factory),
		jsString(script.Instance),
		opts,
	), nil
}

// jsString quotes s as a JavaScript string literal. encoding/json escapes
// <, > and & so the result is safe inside a <script> element.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// inlineSafe rejects source the HTML parser would not keep inside one
// <script> element. "</script" closes it early and "<!--" can switch the
// parser into an escaped state that swallows the rest of the page.
func inlineSafe(source string) error {
	lower := strings.ToLower(source)
	for _, seq := range []string{"</script", "<!--"} {
		if strings.Contains(lower, seq) {
			return fmt.Errorf("%w: source contains %q and cannot be inlined", ErrInvalidScript, seq)
		}
	}
	return nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html{{if .Lang}} lang="{{.Lang}}"{{end}}>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1, maximum-scale=1, user-scalable=no">
<style>
html, body { margin: 0; padding: 0; background: {{.Light.Background}}; color: {{.Light.Foreground}}; }
{{- if .Auto}}
@media (prefers-color-scheme: dark) {
  html, body { background: {{.Dark.Background}}; color: {{.Dark.Foreground}}; }
}
{{- end}}
#captcha { display: flex; justify-content: center; }
</style>
<script>{{.Source}}</script>
</head>
<body>
<div id="captcha"></div>
<script>{{.Bootstrap}}</script>
</body>
</html>
`))

type pageColors struct {
	Background template.CSS
	Foreground template.CSS
}

func colorsOf(p palette) pageColors {
	return pageColors{Background: cssColor(p.background), Foreground: cssColor(p.foreground)}
}

// BuildPage renders the HTML document loaded into the web view: the script
// blob inline, a mount element, and the bootstrap that wires widget events
// to the host.
func BuildPage(cfg Config, script Script) (string, error) {
	if strings.TrimSpace(script.Source) == "" {
		return "", fmt.Errorf("%w: empty source", ErrInvalidScript)
	}
	if err := inlineSafe(script.Source); err != nil {
		return "", err
	}
	bootstrap, err := BootstrapScript(cfg, script)
	if err != nil {
		return "", err
	}
	cfg = cfg.WithDefaults()

	light, dark := lightPalette, darkPalette
	if cfg.Theme == ThemeDark {
		light = darkPalette
	}

	var sb strings.Builder
	err = pageTemplate.Execute(&sb, struct {
		Lang      string
		Light     pageColors
		Dark      pageColors
		Auto      bool
		Source    template.JS
		Bootstrap template.JS
	}{
		Lang:      cfg.languageTag(),
		Light:     colorsOf(light),
		Dark:      colorsOf(dark),
		Auto:      cfg.Theme == ThemeAuto,
		Source:    template.JS(script.Source),
		Bootstrap: template.JS(bootstrap),
	})
	if err != nil {
		return "", fmt.Errorf("captcha: render page: %w", err)
	}
	return sb.String(), nil
}
