// Package assets embeds the gateway's static documentation and renders it
// for the /docs route.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
)

//go:embed docs/*.md
var docsFS embed.FS

var pageTmpl = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
pre { background: #f4f4f4; padding: 0.75rem; overflow-x: auto; }
code { font-family: ui-monospace, monospace; }
</style>
</head>
<body>
{{.Content}}
</body>
</html>
`))

var (
	renderOnce sync.Once
	rendered   []byte
	renderErr  error
)

// APIReferenceMarkdown returns the raw Markdown source of the API reference.
func APIReferenceMarkdown() ([]byte, error) {
	return docsFS.ReadFile("docs/api.md")
}

// RenderAPIReference returns the API reference as a complete HTML page.
// The result is rendered once and cached.
func RenderAPIReference() ([]byte, error) {
	renderOnce.Do(func() {
		rendered, renderErr = render("ECG Gateway API")
	})
	return rendered, renderErr
}

func render(title string) ([]byte, error) {
	md, err := APIReferenceMarkdown()
	if err != nil {
		return nil, fmt.Errorf("reading api reference: %w", err)
	}

	// Convert markdown to HTML
	var body bytes.Buffer
	if err := goldmark.Convert(md, &body); err != nil {
		return nil, fmt.Errorf("converting api reference: %w", err)
	}

	var page bytes.Buffer
	data := struct {
		Title   string
		Content template.HTML
	}{
		Title:   title,
		Content: template.HTML(body.String()),
	}
	if err := pageTmpl.Execute(&page, data); err != nil {
		return nil, fmt.Errorf("rendering docs page: %w", err)
	}
	return page.Bytes(), nil
}
