package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// FormatDocumentList renders projects or templates as a table.
func FormatDocumentList(kind domain.DocumentKind, docs []*domain.Document) string {
	if len(docs) == 0 {
		return Dim(fmt.Sprintf("No %ss yet.", kind)) + "\n"
	}

	headers := []string{"ID", "NAME", "DESCRIPTION", "UPDATED"}
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{
			TruncID(d.ID),
			Bold(d.Name),
			truncate(d.Description, 40),
			HumanTimestamp(d.UpdatedAt),
		})
	}
	return Header(string(kind)+"s") + "\n" + RenderTable(headers, rows)
}

// FormatDocument renders a document header inside a box.
func FormatDocument(d *domain.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Dim("ID:     "), d.ID)
	fmt.Fprintf(&b, "%s %s\n", Dim("Kind:   "), d.Kind)
	if d.Description != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("About:  "), d.Description)
	}
	fmt.Fprintf(&b, "%s %d\n", Dim("Nodes:  "), len(d.Nodes))
	fmt.Fprintf(&b, "%s %s", Dim("Updated:"), HumanTimestamp(d.UpdatedAt))
	return RenderBox(d.Name, b.String()) + "\n"
}

// FormatSeedResult summarizes a template catalog seed.
func FormatSeedResult(created, updated []string) string {
	if len(created) == 0 && len(updated) == 0 {
		return Dim("No templates found.") + "\n"
	}
	var b strings.Builder
	for _, id := range created {
		fmt.Fprintf(&b, "%s %s\n", StyleGreen.Render("+ created"), id)
	}
	for _, id := range updated {
		fmt.Fprintf(&b, "%s %s\n", StyleBlue.Render("~ updated"), id)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
