package page

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestRender_Structure(t *testing.T) {
	out := Render("Hello", "<h1>Hello</h1>\n")

	require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>\n"))
	assert.Contains(t, out, `<meta charset="utf-8">`)
	assert.Contains(t, out, `<meta name="viewport" content="width=device-width, initial-scale=1">`)
	assert.Contains(t, out, "<title>Hello</title>")
	assert.Contains(t, out, "<body>\n<h1>Hello</h1>\n\n    </body>")

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)
	require.NotNil(t, doc.FirstChild)
	assert.Equal(t, html.DoctypeNode, doc.FirstChild.Type)
}

func TestRender_EscapesTitleNotBody(t *testing.T) {
	out := Render(`<script>&"`, `<p class="x">a &amp; b</p>`)

	assert.Contains(t, out, "<title>&lt;script&gt;&amp;&#34;</title>")
	assert.Contains(t, out, `<p class="x">a &amp; b</p>`)
}

func TestRender_Deterministic(t *testing.T) {
	assert.Equal(t, Render("t", "<p>b</p>"), Render("t", "<p>b</p>"))
}
