package render

import (
	"bytes"
	"html"
)

// Page wraps a rendered HTML fragment in a minimal standalone document.
// Artifacts are self-contained so they can be served from any static host.
func Page(title string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n</head>\n<body>\n<main>\n")
	b.Write(body)
	b.WriteString("\n</main>\n</body>\n</html>\n")
	return b.Bytes()
}
