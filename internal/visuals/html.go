package visuals

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 1100px; }
section { margin-bottom: 3rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Charts}}<section>
<pre class="mermaid">
{{.Mermaid}}</pre>
{{if .Legend}}<ul>{{range .Legend}}
<li>{{.}}</li>{{end}}
</ul>{{end}}
</section>
{{end}}<script type="module">
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
mermaid.initialize({ startOnLoad: true });
</script>
</body>
</html>
`))

// WriteHTML renders charts into a standalone page at path. Empty charts are skipped.
func WriteHTML(path, title string, charts ...Chart) error {
	var nonEmpty []Chart
	for _, c := range charts {
		if c.Mermaid != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create charts directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart page: %w", err)
	}
	defer file.Close()

	data := struct {
		Title  string
		Charts []Chart
	}{title, nonEmpty}

	if err := pageTemplate.Execute(file, data); err != nil {
		return fmt.Errorf("failed to render chart page: %w", err)
	}
	return file.Close()
}
