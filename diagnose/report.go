package diagnose

import (
	"bytes"
	"strings"
	"text/template"
)

type Report struct {
	Goal        string
	Conjuncts   []string
	Satisfiable bool
	Loops       int
	Conflicts   []ConflictReport
}

// ConflictReport lists conjuncts by their text.
type ConflictReport struct {
	// Unsatisfiable are the minimal groups of conjuncts that fail together.
	Unsatisfiable [][]string
	// Corrections are the minimal groups whose removal resolves the conflict.
	Corrections [][]string
	Critical    []string
}

func (r *Report) pick(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = r.Conjuncts[id-1]
	}
	return out
}

func (r *Report) names(sets []IntSet) [][]string {
	out := make([][]string, len(sets))
	for i, s := range sets {
		out[i] = r.pick(Sorted(s))
	}
	return out
}

var reportTemplate = NewTemplate("report", `goal: {{ .Goal }}
{{- if .Satisfiable }}
the goal has a solution
{{- else }}
{{- range $i, $c := .Conflicts }}
conflict {{ inc $i }}:
  critical: {{ joinStr $c.Critical "" ", " }}
{{- range $c.Unsatisfiable }}
  fails together: {{ joinStr . "" ", " }}
{{- end }}
{{- range $c.Corrections }}
  remove to fix: {{ joinStr . "" ", " }}
{{- end }}
{{- end }}
{{- end }}
`)

// Render writes the report as text.
func (r *Report) Render() (string, error) {
	return TemplateToString(reportTemplate, r)
}

func TemplateToString(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func joinStr(s []string, prefix, sep string) string {
	parts := make([]string, len(s))
	for i, s := range s {
		parts[i] = prefix + s
	}
	return strings.Join(parts, sep)
}

// NewTemplate parses a built-in template and panics if it is malformed.
func NewTemplate(name, content string) *template.Template {
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"joinInt": joinInt,
		"joinStr": joinStr,
		"inc":     func(i int) int { return i + 1 },
	}).Parse(content)
	if err != nil {
		panic(err)
	}
	return tmpl
}
