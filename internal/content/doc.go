// Package content turns source text into HTML body fragments.
//
// MarkdownConverter renders CommonMark with the GFM, footnote and typographer
// extensions and raw HTML passthrough. Conversion never fails from the
// caller's point of view: input goldmark cannot render degrades to escaped
// preformatted text.
package content
