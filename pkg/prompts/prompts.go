package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join":  strings.Join,
	"quote": quoteLines,
}).ParseFS(templateFS, "templates/*.tmpl"))

// render executes the named template (without extension) against data.
func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// systemPrompt joins the game-master prelude with task instructions.
func systemPrompt(task string, data any) (string, error) {
	prelude, err := render("prelude", nil)
	if err != nil {
		return "", err
	}
	body, err := render(task, data)
	if err != nil {
		return "", err
	}
	return prelude + "\n\n" + body, nil
}

// quoteLines prefixes every line of s with "> ".
func quoteLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
