package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
)

var sectionTitles = map[flowchart.Section]string{
	flowchart.SectionPhases:          "Phases",
	flowchart.SectionUnassignedTasks: "Unassigned tasks",
	flowchart.SectionUnassignedOther: "Other nodes",
}

// RowTitle is the text shown for a node in the list view.
func RowTitle(n domain.Node) string {
	switch {
	case n.Label != "":
		return n.Label
	case n.Type == domain.NodeArrow:
		return "→ " + TruncID(n.ID)
	default:
		return Dim("(untitled " + string(n.Type) + ")")
	}
}

// FormatListView renders list view rows as a tree grouped by section.
func FormatListView(name string, rows []flowchart.Row) string {
	var b strings.Builder
	if name != "" {
		b.WriteString(Header(name) + "\n")
	}
	if len(rows) == 0 {
		b.WriteString(Dim("Empty flowchart.") + "\n")
		return b.String()
	}

	start := 0
	for start < len(rows) {
		section := rows[start].Section
		end := start
		for end < len(rows) && rows[end].Section == section {
			end++
		}
		b.WriteString("\n" + StyleBold.Render(sectionTitles[section]) + "\n")
		b.WriteString(RenderTree(treeItems(rows[start:end])))
		start = end
	}
	return b.String()
}

func treeItems(rows []flowchart.Row) []TreeItem {
	items := make([]TreeItem, len(rows))
	for i, r := range rows {
		title := RowTitle(r.Node)
		if r.HasChildren {
			if r.Collapsed {
				title = "▸ " + title
			} else {
				title = "▾ " + title
			}
		}
		if !r.Node.ShowForCustomer {
			title += Dim(" (hidden from customer)")
		}
		items[i] = TreeItem{
			Title:  title,
			Level:  r.Depth,
			IsLast: isLastSibling(rows, i),
			Status: string(r.Node.Status),
			Detail: strings.ToUpper(string(r.Node.Type)),
			Muted:  !r.Node.ShowInFlowchart,
		}
	}
	return items
}

// isLastSibling reports whether no later row shares the row's depth before
// the tree climbs above it.
func isLastSibling(rows []flowchart.Row, i int) bool {
	for j := i + 1; j < len(rows); j++ {
		switch {
		case rows[j].Depth == rows[i].Depth:
			return false
		case rows[j].Depth < rows[i].Depth:
			return true
		}
	}
	return true
}


// FormatViolations lists structural problems found in a chart.
func FormatViolations(errs []error) string {
	if len(errs) == 0 {
		return StyleGreen.Render("✔ No problems found.") + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", StyleRed.Render(fmt.Sprintf("✖ %d problem(s) found:", len(errs))))
	for _, err := range errs {
		fmt.Fprintf(&b, "  • %s\n", err)
	}
	return b.String()
}

// FormatNode renders a single node's fields.
func FormatNode(n domain.Node) string {
	var b strings.Builder
	line := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s %s\n", Dim(fmt.Sprintf("%-10s", k+":")), v)
		}
	}
	line("ID", n.ID)
	line("Type", TypeBadge(n.Type))
	line("Label", n.Label)
	line("Status", StatusPill(n.Status, n.CustomStatus))
	line("Shape", string(n.Shape))
	if n.ContainerID != nil {
		line("Container", *n.ContainerID)
	}
	line("Position", fmt.Sprintf("%g,%g", n.Position.X, n.Position.Y))
	line("Size", fmt.Sprintf("%gx%g", n.Size.Width, n.Size.Height))
	if len(n.Children) > 0 {
		line("Children", strings.Join(n.Children, ", "))
	}
	return b.String()
}

// FormatGraphView lists canvas nodes in paint order with their geometry.
func FormatGraphView(name string, nodes []domain.Node) string {
	var b strings.Builder
	if name != "" {
		b.WriteString(Header(name) + "\n")
	}
	if len(nodes) == 0 {
		b.WriteString(Dim("Nothing on the canvas.") + "\n")
		return b.String()
	}
	headers := []string{"ID", "TYPE", "LABEL", "POSITION", "SIZE", "CONTAINER"}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		container := ""
		if n.ContainerID != nil {
			container = *n.ContainerID
		}
		rows = append(rows, []string{
			n.ID,
			TypeBadge(n.Type),
			n.Label,
			fmt.Sprintf("%g,%g", n.Position.X, n.Position.Y),
			fmt.Sprintf("%gx%g", n.Size.Width, n.Size.Height),
			container,
		})
	}
	b.WriteString(RenderTable(headers, rows))
	return b.String()
}
