package report

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// renderer needs GFM for the pattern and coverage tables.
var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

const htmlHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Failure Pattern Analysis</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 60em; margin: 2em auto; padding: 0 1em; line-height: 1.5; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; }
code { background: #f4f4f4; padding: 0.1em 0.3em; }
</style>
</head>
<body>
`

const htmlFooter = "</body>\n</html>\n"

// HTML renders the Markdown report as a standalone HTML page.
func HTML(data *Data) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(htmlHeader)
	if err := renderer.Convert([]byte(Markdown(data)), &buf); err != nil {
		return nil, fmt.Errorf("failed to render HTML report: %w", err)
	}
	buf.WriteString(htmlFooter)
	return buf.Bytes(), nil
}
