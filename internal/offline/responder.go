// Package offline synthesizes substitute responses when both network and
// store fail to satisfy a request.
package offline

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
)

// RetrySeconds is the polling interval the offline page uses to re-check
// network availability.
const RetrySeconds = 30

var supportedLocales = []language.Tag{
	language.AmericanEnglish,
	language.BrazilianPortuguese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Responder builds deterministic offline substitutes.
type Responder struct {
	appName     string
	featureKeys []string
}

// NewResponder creates a responder branded for appName. featureKeys name the
// localized features listed as usable offline; when empty a default set is
// used.
func NewResponder(appName string, featureKeys []string) *Responder {
	if strings.TrimSpace(appName) == "" {
		appName = "Granola Lite"
	}
	if len(featureKeys) == 0 {
		featureKeys = []string{
			"offline.feature.meetings",
			"offline.feature.notes",
			"offline.feature.templates",
		}
	}
	return &Responder{appName: appName, featureKeys: featureKeys}
}

// Respond synthesizes a substitute for a request no other source could serve.
//
// Callers preferring structured data (Accept contains application/json) get a
// 503 JSON error object; everyone else gets a complete, self-contained
// offline page with status 200.
func (r *Responder) Respond(req classify.Request) cache.Snapshot {
	printer := printerFor(req.Header.Get("Accept-Language"))
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		return jsonSubstitute(printer)
	}
	return r.pageSubstitute(printer)
}

func jsonSubstitute(printer *message.Printer) cache.Snapshot {
	body, err := json.Marshal(struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{
		Error:   "Offline",
		Message: printer.Sprintf("offline.message"),
	})
	if err != nil {
		body = []byte(`{"error":"Offline"}`)
	}
	return cache.Snapshot{
		Status: 503,
		Header: http.Header{"Content-Type": {"application/json; charset=utf-8"}},
		Body:   body,
	}
}

// pageSubstitute renders the self-contained offline document. It is a valid,
// complete page, so its status is 200, unlike the JSON branch.
func (r *Responder) pageSubstitute(printer *message.Printer) cache.Snapshot {
	features := make([]string, 0, len(r.featureKeys))
	for _, key := range r.featureKeys {
		features = append(features, printer.Sprintf(key))
	}

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		AppName:      r.appName,
		Title:        printer.Sprintf("offline.title"),
		Heading:      printer.Sprintf("offline.heading"),
		Message:      printer.Sprintf("offline.message"),
		Features:     features,
		FeaturesNote: printer.Sprintf("offline.features_heading"),
		RetryLabel:   printer.Sprintf("offline.retry"),
		RetrySeconds: template.JS(strconv.Itoa(RetrySeconds)),
	})
	if err != nil {
		log.Printf("render offline page: %v", err)
		return cache.Snapshot{
			Status: 200,
			Header: http.Header{"Content-Type": {"text/html; charset=utf-8"}},
			Body:   []byte("<!doctype html><title>Offline</title><p>Offline</p>"),
		}
	}
	return cache.Snapshot{
		Status: 200,
		Header: http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:   buf.Bytes(),
	}
}

// Unavailable builds the minimal 503 substitute used by the static and
// network-only strategies.
func Unavailable(detail string) cache.Snapshot {
	return cache.Snapshot{
		Status: 503,
		Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:   []byte(detail),
	}
}

func printerFor(acceptLanguage string) *message.Printer {
	tag := supportedLocales[0]
	if strings.TrimSpace(acceptLanguage) != "" {
		tag, _ = language.MatchStrings(localeMatcher, acceptLanguage)
	}
	return message.NewPrinter(tag)
}

type pageData struct {
	AppName      string
	Title        string
	Heading      string
	Message      string
	Features     []string
	FeaturesNote string
	RetryLabel   string
	// RetrySeconds is rendered inside the inline <script>; template.JS keeps
	// the JS-context escaper from padding the number with spaces.
	RetrySeconds template.JS
}

// pageTemplate is fully self-contained: inline styles, inline script, no
// external resource references.
var pageTemplate = template.Must(template.New("offline").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.AppName}} — {{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;display:flex;min-height:100vh;align-items:center;justify-content:center;background:#fafaf7;color:#1f2933}
main{max-width:28rem;padding:2rem;text-align:center}
h1{font-size:1.5rem;margin-bottom:.5rem}
ul{text-align:left;line-height:1.8}
button{margin-top:1rem;padding:.6rem 1.4rem;border:none;border-radius:.4rem;background:#2f6f4f;color:#fff;font-size:1rem;cursor:pointer}
</style>
</head>
<body>
<main>
<h1>{{.AppName}}</h1>
<h2>{{.Heading}}</h2>
<p>{{.Message}}</p>
<p>{{.FeaturesNote}}</p>
<ul>
{{- range .Features}}
<li>{{.}}</li>
{{- end}}
</ul>
<button onclick="window.location.reload()">{{.RetryLabel}}</button>
</main>
<script>
window.addEventListener('online', function () { window.location.reload(); });
setInterval(function () {
  if (navigator.onLine) { window.location.reload(); }
}, {{.RetrySeconds}} * 1000);
</script>
</body>
</html>
`))
