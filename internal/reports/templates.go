package reports

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/iso27001/tracker/internal/clauses"
	"github.com/iso27001/tracker/internal/models"
)

//go:embed templates/*.md
var templateFS embed.FS

// clauseTemplates maps a clause number such as "6.1.3" to its Markdown
// template. File names under templates/ are the clause numbers.
var clauseTemplates = loadTemplates(templateFS)

func loadTemplates(fsys fs.FS) map[string]string {
	files, err := fs.Glob(fsys, "templates/*.md")
	if err != nil {
		panic(err)
	}
	out := make(map[string]string, len(files))
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			panic(err)
		}
		out[strings.TrimSuffix(path.Base(f), ".md")] = string(data)
	}
	return out
}

// Templates returns the clauses that have a dedicated template, in clause
// order.
func Templates() []string {
	out := make([]string, 0, len(clauseTemplates))
	for c := range clauseTemplates {
		out = append(out, c)
	}
	clauses.Sort(out)
	return out
}

// HasTemplate reports whether clause has a dedicated template.
func HasTemplate(clause string) bool {
	_, ok := clauseTemplates[clause]
	return ok
}

func templateFor(clause string) string {
	if t, ok := clauseTemplates[clause]; ok {
		return t
	}
	return genericTemplate(clause)
}

func genericTemplate(clause string) string {
	return fmt.Sprintf(`# ISO 27001 Clause %s

## Purpose
Document how the organization meets the requirements of clause %s.

## Current Assessment
- **Requirement:** [Assessment Question]
- **Compliance status:** [Compliance Status]
- **Notes:** [Notes]

## Implementation
[Describe the processes, controls and records that address this clause.]

## Evidence
[List the documented information that demonstrates conformity.]

## Document Owner
**Owner:** [To be assigned]
**Review Date:** [To be determined]
`, clause, clause)
}

// populate fills the assessment placeholders from gap. Notes are only
// substituted when present so the template prompt stays visible otherwise.
func populate(tmpl string, gap *models.GapAssessment) string {
	if gap == nil {
		return tmpl
	}
	out := strings.ReplaceAll(tmpl, "[Assessment Question]", gap.AssessmentQuestion)
	out = strings.ReplaceAll(out, "[Compliance Status]", string(gap.Compliance))
	if gap.Notes != "" {
		out = strings.ReplaceAll(out, "[Notes]", gap.Notes)
	}
	return out
}

// injectAfterTitle places section directly below the first level-one
// heading, or at the top when the document has none.
func injectAfterTitle(doc, section string) string {
	lines := strings.SplitAfter(doc, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") {
			head := strings.Join(lines[:i+1], "")
			if !strings.HasSuffix(head, "\n") {
				head += "\n"
			}
			return head + "\n" + section + "\n" + strings.Join(lines[i+1:], "")
		}
	}
	return section + "\n" + doc
}
