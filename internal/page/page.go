// Package page wraps rendered body fragments into complete HTML documents.
package page

import (
	"html/template"
	"strings"
)

var documentTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
    <head>
        <meta charset="utf-8">
        <meta name="viewport" content="width=device-width, initial-scale=1">
        <title>{{.Title}}</title>
    </head>
    <body>
{{.Body}}
    </body>
</html>
`))

type document struct {
	Title string
	Body  template.HTML
}

// Render produces a full HTML document. The title is escaped; body is trusted
// pre-rendered HTML and inserted verbatim.
func Render(title, body string) string {
	var sb strings.Builder
	// The template is fixed and both fields are strings, so execution cannot fail.
	_ = documentTemplate.Execute(&sb, document{Title: title, Body: template.HTML(body)})
	return sb.String()
}
