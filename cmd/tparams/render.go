package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/orizon-lang/tparams/internal/cli"
	"github.com/orizon-lang/tparams/internal/diagnostic"
	"github.com/orizon-lang/tparams/internal/typechecker"
)

type renderer struct {
	w     io.Writer
	paint cli.Painter
}

// writeText prints summaries grouped by context in input order, then the
// diagnostics.
func (r renderer) writeText(summaries []typechecker.Summary, engine *diagnostic.Engine) error {
	var b strings.Builder
	current := ""
	for _, s := range summaries {
		if s.Context != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = s.Context
			b.WriteString(r.paint.Paint(cli.Bold, current) + "\n")
		}
		fmt.Fprintf(&b, "  %s::%s %s\n", s.Owner, s.Name, r.paint.Paint(cli.Dim, "["+s.Source+"]"))
		if s.InCycle {
			fmt.Fprintf(&b, "    %s\n", r.paint.Paint(cli.Red, "constraint cycle"))
			continue
		}
		fmt.Fprintf(&b, "    constraint types: %s\n", list(s.ConstraintTypes))
		fmt.Fprintf(&b, "    interfaces:       %s\n", list(s.Interfaces))
		fmt.Fprintf(&b, "    effective base:   %s\n", s.EffectiveBaseClass)
		fmt.Fprintf(&b, "    deduced base:     %s\n", s.DeducedBaseType)
	}

	ds := engine.Diagnostics()
	if len(ds) > 0 {
		b.WriteString("\n")
	}
	for i := range ds {
		d := &ds[i]
		head, rest, _ := strings.Cut(engine.FormatSingle(d), "\n")
		switch d.Level {
		case diagnostic.DiagnosticError:
			head = r.paint.Paint(cli.Red, head)
		case diagnostic.DiagnosticWarning:
			head = r.paint.Paint(cli.Yellow, head)
		}
		b.WriteString(head + "\n" + rest)
	}
	b.WriteString(strings.TrimPrefix(diagnostic.Summary(ds), "\n") + "\n")

	_, err := io.WriteString(r.w, b.String())
	return err
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

type jsonRelated struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

type jsonDiagnostic struct {
	Code     string        `json:"code"`
	Level    string        `json:"level"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Location string        `json:"location"`
	Related  []jsonRelated `json:"related,omitempty"`
}

type jsonReport struct {
	Parameters  []typechecker.Summary `json:"parameters"`
	Diagnostics []jsonDiagnostic      `json:"diagnostics"`
	Errors      int                   `json:"errors"`
	Warnings    int                   `json:"warnings"`
}

func (r renderer) writeJSON(summaries []typechecker.Summary, engine *diagnostic.Engine) error {
	report := jsonReport{
		Parameters:  summaries,
		Diagnostics: []jsonDiagnostic{},
		Errors:      len(engine.Errors()),
		Warnings:    len(engine.Warnings()),
	}
	for _, d := range engine.Diagnostics() {
		jd := jsonDiagnostic{
			Code:     d.Code,
			Level:    d.Level.String(),
			Title:    d.Title,
			Message:  d.Message,
			Location: d.Span.String(),
		}
		for _, rel := range d.RelatedInfo {
			jd.Related = append(jd.Related, jsonRelated{Location: rel.Span.String(), Message: rel.Message})
		}
		report.Diagnostics = append(report.Diagnostics, jd)
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
