package handlers

import (
	"bytes"
	"fmt"
	"html"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const docsPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body>
</html>
`

// RenderDocs converts Markdown API documentation to a standalone HTML page.
func RenderDocs(title string, markdown []byte) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return nil, fmt.Errorf("failed to render docs: %w", err)
	}
	return fmt.Appendf(nil, docsPage, html.EscapeString(title), body.String()), nil
}

// DocsHandler serves a pre-rendered documentation page.
type DocsHandler struct {
	page []byte
}

// NewDocsHandler creates a new DocsHandler serving page.
func NewDocsHandler(page []byte) *DocsHandler {
	return &DocsHandler{page: page}
}

// ServeHTTP writes the documentation page.
//
// swagger:route GET / apiDocs
//
// # API documentation
//
// ---
// produces:
// - text/html
// responses:
//
//	'200':
//	  description: HTML documentation page
func (h *DocsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.page)
}
