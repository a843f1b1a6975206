package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/alexanderramin/flowdesk/internal/cli/formatter"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/editor"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/alexanderramin/flowdesk/internal/interchange"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// chartFlags selects which kind of document a flowchart command works on.
type chartFlags struct {
	template bool
}

func (f *chartFlags) kind() domain.DocumentKind {
	if f.template {
		return domain.DocumentTemplate
	}
	return domain.DocumentProject
}

func newFlowchartCmd(app *App) *cobra.Command {
	flags := &chartFlags{}
	cmd := &cobra.Command{
		Use:     "flowchart",
		Aliases: []string{"fc"},
		Short:   "Inspect and edit a document's flowchart",
	}
	cmd.PersistentFlags().BoolVarP(&flags.template, "template", "t", false, "the document is a template, not a project")

	cmd.AddCommand(
		newFlowchartShowCmd(app, flags),
		newFlowchartExportCmd(app, flags),
		newFlowchartImportCmd(app, flags),
		newFlowchartCheckCmd(app, flags),
		newFlowchartAddCmd(app, flags),
		newFlowchartSetCmd(app, flags),
		newFlowchartMoveCmd(app, flags),
		newFlowchartResizeCmd(app, flags),
		newFlowchartShiftCmd(app, flags),
		newFlowchartDetachCmd(app, flags),
		newFlowchartDeleteCmd(app, flags),
		newFlowchartPointCmd(app, flags),
	)
	return cmd
}

// openEditor resolves the document and loads its chart into an editor.
func openEditor(ctx context.Context, app *App, kind domain.DocumentKind, ref string) (*editor.Editor, error) {
	docs, err := app.documents(ctx)
	if err != nil {
		return nil, err
	}
	id, err := resolveDocumentID(ctx, docs, kind, ref)
	if err != nil {
		return nil, err
	}
	d, err := docs.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	e := editor.New(docs.Chart(kind, id),
		editor.WithRole(app.Role()),
		editor.WithName(d.Name),
		editor.WithLogger(app.Logger),
		editor.WithSaveInterval(app.Config.Autosave.Interval),
	)
	// An edit on top of an empty stand-in would be saved over the real chart.
	if err := e.Open(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// editChart runs one mutation against the chart and flushes it.
func editChart(cmd *cobra.Command, app *App, flags *chartFlags, ref string, fn func(e *editor.Editor) (string, error)) error {
	if err := app.requireStaff(); err != nil {
		return err
	}
	ctx := cmd.Context()
	e, err := openEditor(ctx, app, flags.kind(), ref)
	if err != nil {
		return err
	}
	msg, err := fn(e)
	if err != nil {
		return err
	}
	if err := e.Close(ctx); err != nil {
		return fmt.Errorf("saving flowchart: %w", err)
	}
	if msg != "" {
		fmt.Fprintln(cmd.OutOrStdout(), msg)
	}
	return nil
}

// nodeArg resolves a node reference against the open chart.
func nodeArg(e *editor.Editor, ref string) (string, error) {
	return resolveNodeID(e.Nodes(), ref)
}

func newFlowchartShowCmd(app *App, flags *chartFlags) *cobra.Command {
	var graph bool
	var collapse []string
	cmd := &cobra.Command{
		Use:   "show <document>",
		Short: "Print the flowchart as a list or as canvas nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEditor(cmd.Context(), app, flags.kind(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if graph {
				fmt.Fprint(out, formatter.FormatGraphView(e.Name(), e.GraphView()))
				return nil
			}
			for _, ref := range collapse {
				id, err := nodeArg(e, ref)
				if err != nil {
					return err
				}
				e.ToggleCollapsed(id)
			}
			fmt.Fprint(out, formatter.FormatListView(e.Name(), e.ListView()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&graph, "graph", false, "list canvas nodes in paint order")
	cmd.Flags().StringSliceVar(&collapse, "collapse", nil, "phases to collapse in the list")
	return cmd
}

func newFlowchartExportCmd(app *App, flags *chartFlags) *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "export <document>",
		Short: "Write the flowchart to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := interchange.ParseFormat(format)
			if err != nil {
				return err
			}
			if output != "" && !cmd.Flags().Changed("format") {
				f = interchange.FormatForPath(output)
			}
			e, err := openEditor(cmd.Context(), app, flags.kind(), args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return e.Export(cmd.OutOrStdout(), f)
			}
			if output == "." {
				output = interchange.ExportFileName(e.Name(), f)
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			if err := e.Export(file, f); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d nodes to %s\n", len(e.Nodes()), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `file to write ("." picks a name from the document)`)
	cmd.Flags().StringVar(&format, "format", "json", "json or yaml")
	return cmd
}

func newFlowchartImportCmd(app *App, flags *chartFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <document> <file>",
		Short: "Replace the flowchart with the contents of an export file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
				file, err := os.Open(args[1])
				if err != nil {
					return "", err
				}
				defer file.Close()
				if err := e.Import(file, interchange.FormatForPath(args[1])); err != nil {
					return "", err
				}
				return fmt.Sprintf("Imported %d nodes", len(e.Nodes())), nil
			})
		},
	}
}

func newFlowchartCheckCmd(app *App, flags *chartFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <document>",
		Short: "Report structural problems in the flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEditor(cmd.Context(), app, flags.kind(), args[0])
			if err != nil {
				return err
			}
			errs := e.CheckInvariants()
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatViolations(errs))
			if len(errs) > 0 {
				return fmt.Errorf("flowchart has %d problem(s)", len(errs))
			}
			return nil
		},
	}
}

// deltaFlags binds the editable node fields to flags; only flags the user
// set end up in the delta.
type deltaFlags struct {
	label, description, link string
	status, customStatus     string
	shape                    string
	x, y, width, height      float64
	showInFlowchart          bool
	showForCustomer          bool
}

func (d *deltaFlags) register(f *pflag.FlagSet) {
	f.StringVar(&d.label, "label", "", "label text")
	f.StringVar(&d.description, "description", "", "description")
	f.StringVar(&d.link, "link", "", "link URL")
	f.StringVar(&d.status, "status", "", "not-started, planning, in-progress, done or custom")
	f.StringVar(&d.customStatus, "custom-status", "", "text shown for the custom status")
	f.StringVar(&d.shape, "shape", "", "rectangle, ellipse, parallelogram or diamond")
	f.Float64Var(&d.x, "x", 0, "left edge")
	f.Float64Var(&d.y, "y", 0, "top edge")
	f.Float64Var(&d.width, "width", 0, "width")
	f.Float64Var(&d.height, "height", 0, "height")
	f.BoolVar(&d.showInFlowchart, "show-in-flowchart", true, "draw the node on the canvas")
	f.BoolVar(&d.showForCustomer, "show-for-customer", true, "let customers see the node")
}

func (d *deltaFlags) delta(f *pflag.FlagSet, current domain.Node) flowchart.Delta {
	var delta flowchart.Delta
	if f.Changed("label") {
		delta.Label = domain.StringPtr(d.label)
	}
	if f.Changed("description") {
		delta.Description = domain.StringPtr(d.description)
	}
	if f.Changed("link") {
		delta.Link = domain.StringPtr(d.link)
	}
	if f.Changed("status") {
		s := domain.Status(d.status)
		delta.Status = &s
	}
	if f.Changed("custom-status") {
		delta.CustomStatus = domain.StringPtr(d.customStatus)
	}
	if f.Changed("shape") {
		s := domain.Shape(d.shape)
		delta.Shape = &s
	}
	if f.Changed("x") || f.Changed("y") {
		p := current.Position
		if f.Changed("x") {
			p.X = d.x
		}
		if f.Changed("y") {
			p.Y = d.y
		}
		delta.Position = &p
	}
	if f.Changed("width") || f.Changed("height") {
		s := current.Size
		if f.Changed("width") {
			s.Width = d.width
		}
		if f.Changed("height") {
			s.Height = d.height
		}
		delta.Size = &s
	}
	if f.Changed("show-in-flowchart") {
		delta.ShowInFlowchart = domain.BoolPtr(d.showInFlowchart)
	}
	if f.Changed("show-for-customer") {
		delta.ShowForCustomer = domain.BoolPtr(d.showForCustomer)
	}
	return delta
}

func newFlowchartAddCmd(app *App, flags *chartFlags) *cobra.Command {
	fields := &deltaFlags{}
	var into string
	cmd := &cobra.Command{
		Use:   "add <document> <type>",
		Short: "Add a node (phase, task, subFlow, iterative, note, extra or arrow)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := domain.NodeType(args[1])
			if !domain.ValidNodeTypes[t] {
				return fmt.Errorf("unknown node type %q", args[1])
			}
			return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
				defaults, err := domain.NewNode("", t)
				if err != nil {
					return "", err
				}
				delta := fields.delta(cmd.Flags(), defaults)
				if into != "" {
					containerID, err := nodeArg(e, into)
					if err != nil {
						return "", err
					}
					container, _ := e.Get(containerID)
					if delta.Position == nil {
						delta.Position = &domain.Point{X: container.Position.X + 10, Y: container.Position.Y + 10}
					}
				}

				n, err := e.AddNode(t, delta)
				if err != nil {
					return "", err
				}
				msg := fmt.Sprintf("Added %s %s", t, n.ID)
				if into == "" {
					return msg, nil
				}
				res, err := e.MoveNode(n.ID, 0, 0)
				if err != nil {
					return "", err
				}
				if res.ContainerID != nil {
					msg += " inside " + *res.ContainerID
				}
				return msg, nil
			})
		},
	}
	fields.register(cmd.Flags())
	cmd.Flags().StringVar(&into, "into", "", "drop the new node into this container")
	return cmd
}

func newFlowchartSetCmd(app *App, flags *chartFlags) *cobra.Command {
	fields := &deltaFlags{}
	cmd := &cobra.Command{
		Use:   "set <document> <node>",
		Short: "Edit a node's fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
				id, err := nodeArg(e, args[1])
				if err != nil {
					return "", err
				}
				current, _ := e.Get(id)
				if err := e.UpdateNode(id, fields.delta(cmd.Flags(), current)); err != nil {
					return "", err
				}
				updated, _ := e.Get(id)
				return formatter.FormatNode(updated), nil
			})
		},
	}
	fields.register(cmd.Flags())
	return cmd
}

func newFlowchartMoveCmd(app *App, flags *chartFlags) *cobra.Command {
	var dx, dy float64
	cmd := &cobra.Command{
		Use:   "move <document> <node>",
		Short: "Drag a node by an offset and drop it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
				id, err := nodeArg(e, args[1])
				if err != nil {
					return "", err
				}
				res, err := e.MoveNode(id, dx, dy)
				if err != nil {
					return "", err
				}
				where := "top level"
				if res.ContainerID != nil {
					where = *res.ContainerID
				}
				return fmt.Sprintf("Moved %s, now in %s", id, where), nil
			})
		},
	}
	cmd.Flags().Float64Var(&dx, "dx", 0, "horizontal offset")
	cmd.Flags().Float64Var(&dy, "dy", 0, "vertical offset")
	return cmd
}

func newFlowchartResizeCmd(app *App, flags *chartFlags) *cobra.Command {
	var width, height float64
	cmd := &cobra.Command{
		Use:   "resize <document> <node>",
		Short: "Set a node's size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
				id, err := nodeArg(e, args[1])
				if err != nil {
					return "", err
				}
				if err := e.Resize(id, width, height); err != nil {
					return "", err
				}
				n, _ := e.Get(id)
				return fmt.Sprintf("Resized %s to %gx%g", id, n.Size.Width, n.Size.Height), nil
			})
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "new width")
	cmd.Flags().Float64Var(&height, "height", 0, "new height")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
	return cmd
}

func newFlowchartShiftCmd(app *App, flags *chartFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shift <document> <node> <up|down>",
		Short: "Move a phase or task one place among its siblings",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := flowchart.ParseDirection(args[2])
			if err != nil {
				return err
			}
			return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
				id, err := nodeArg(e, args[1])
				if err != nil {
					return "", err
				}
				moved, err := e.Shift(id, dir)
				if err != nil {
					return "", err
				}
				if !moved {
					return fmt.Sprintf("%s is already at the %s", id, map[flowchart.Direction]string{flowchart.Up: "top", flowchart.Down: "bottom"}[dir]), nil
				}
				return fmt.Sprintf("Shifted %s %s", id, args[2]), nil
			})
		},
	}
}

func newFlowchartDetachCmd(app *App, flags *chartFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <document> <node>",
		Short: "Move a node out of its container to the top level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
				id, err := nodeArg(e, args[1])
				if err != nil {
					return "", err
				}
				if err := e.Detach(id); err != nil {
					return "", err
				}
				return "Detached " + id, nil
			})
		},
	}
}

func newFlowchartDeleteCmd(app *App, flags *chartFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <document> <node>",
		Aliases: []string{"rm"},
		Short:   "Delete a node; its children move to the top level",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
				id, err := nodeArg(e, args[1])
				if err != nil {
					return "", err
				}
				if err := e.DeleteNode(id); err != nil {
					return "", err
				}
				return "Deleted " + id, nil
			})
		},
	}
}

func newFlowchartPointCmd(app *App, flags *chartFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "point",
		Short: "Edit an arrow's control points",
	}

	// pointEdit runs op against the named arrow and reports its points.
	pointEdit := func(cmd *cobra.Command, args []string, op func(e *editor.Editor, id string) error) error {
		return editChart(cmd, app, flags, args[0], func(e *editor.Editor) (string, error) {
			id, err := nodeArg(e, args[1])
			if err != nil {
				return "", err
			}
			if err := op(e, id); err != nil {
				return "", err
			}
			n, _ := e.Get(id)
			return fmt.Sprintf("%s has %d points", id, len(n.Points)), nil
		})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <document> <arrow> <after> <x> <y>",
			Short: "Insert a point after the given index",
			Args:  cobra.ExactArgs(5),
			RunE: func(cmd *cobra.Command, args []string) error {
				idx, p, err := parsePointArgs(args[2], args[3], args[4])
				if err != nil {
					return err
				}
				return pointEdit(cmd, args, func(e *editor.Editor, id string) error {
					return e.AddPoint(id, idx, p)
				})
			},
		},
		&cobra.Command{
			Use:   "move <document> <arrow> <index> <x> <y>",
			Short: "Move a point",
			Args:  cobra.ExactArgs(5),
			RunE: func(cmd *cobra.Command, args []string) error {
				idx, p, err := parsePointArgs(args[2], args[3], args[4])
				if err != nil {
					return err
				}
				return pointEdit(cmd, args, func(e *editor.Editor, id string) error {
					return e.MovePoint(id, idx, p)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <document> <arrow> <index>",
			Short: "Delete an interior point; endpoints and two-point arrows are left alone",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				idx, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid point index %q: %w", args[2], err)
				}
				return pointEdit(cmd, args, func(e *editor.Editor, id string) error {
					return e.DeletePoint(id, idx)
				})
			},
		},
	)
	return cmd
}

func parsePointArgs(index, x, y string) (int, domain.Point, error) {
	idx, err := strconv.Atoi(index)
	if err != nil {
		return 0, domain.Point{}, fmt.Errorf("invalid point index %q: %w", index, err)
	}
	px, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return 0, domain.Point{}, fmt.Errorf("invalid x %q: %w", x, err)
	}
	py, err := strconv.ParseFloat(y, 64)
	if err != nil {
		return 0, domain.Point{}, fmt.Errorf("invalid y %q: %w", y, err)
	}
	return idx, domain.Point{X: px, Y: py}, nil
}
