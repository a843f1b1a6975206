// Package editor is the single owner of one open flowchart. It routes every
// user gesture through the node store, enforces the viewer role, keeps the
// client-local collapsed-phase set, and tells the autosave synchronizer
// which changes to persist and when.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/alexanderramin/flowdesk/internal/autosave"
	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/alexanderramin/flowdesk/internal/interchange"
)

var errNoDrag = errors.New("no drag in progress")

// Remote is the persisted copy of the chart being edited.
type Remote interface {
	Load(ctx context.Context) ([]domain.Node, error)
	Save(ctx context.Context, nodes []domain.Node) error
}

type Editor struct {
	name      string
	role      domain.Role
	remote    Remote
	store     *flowchart.Store
	sync      *autosave.Synchronizer
	logger    *slog.Logger
	collapsed map[string]bool
	dragging  string

	storeOpts []flowchart.StoreOption
	syncOpts  []autosave.Option
}

type Option func(*Editor)

// WithRole sets the viewer role. Customers get a read-only editor.
func WithRole(role domain.Role) Option {
	return func(e *Editor) {
		e.role = role
	}
}

// WithName sets the chart name used for exports.
func WithName(name string) Option {
	return func(e *Editor) {
		e.name = name
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithSaveInterval overrides the periodic autosave interval.
func WithSaveInterval(d time.Duration) Option {
	return func(e *Editor) {
		e.syncOpts = append(e.syncOpts, autosave.WithInterval(d))
	}
}

// WithStoreOptions passes options to the underlying node store.
func WithStoreOptions(opts ...flowchart.StoreOption) Option {
	return func(e *Editor) {
		e.storeOpts = append(e.storeOpts, opts...)
	}
}

// New creates an empty editor over remote. Call Open to load the chart.
func New(remote Remote, opts ...Option) *Editor {
	e := &Editor{
		role:      domain.RoleStaff,
		remote:    remote,
		collapsed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = ctxlog.OrDiscard(e.logger)
	e.store = flowchart.NewStore(e.storeOpts...)
	e.sync = autosave.New(e.store.Snapshot, remote, append([]autosave.Option{autosave.WithLogger(e.logger)}, e.syncOpts...)...)
	return e
}

// Open loads the chart from the remote. On failure the error is logged and
// returned, and the editor is left usable with an empty chart.
func (e *Editor) Open(ctx context.Context) error {
	nodes, err := e.remote.Load(ctx)
	if err == nil {
		err = e.store.ReplaceAll(nodes)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "loading flowchart failed, starting empty", "error", err)
		_ = e.store.ReplaceAll(nil)
		return fmt.Errorf("loading flowchart: %w", err)
	}
	e.logger.DebugContext(ctx, "flowchart loaded", "nodes", len(nodes))
	return nil
}

func (e *Editor) Role() domain.Role { return e.role }

// ReadOnly reports whether the viewer may not change the chart.
func (e *Editor) ReadOnly() bool { return e.role.IsCustomer() }

func (e *Editor) Name() string { return e.name }

func (e *Editor) Dirty() bool { return e.sync.Dirty() }

func (e *Editor) SaveState() autosave.State { return e.sync.State() }

func (e *Editor) Get(id string) (domain.Node, bool) { return e.store.Get(id) }

func (e *Editor) Nodes() []domain.Node { return e.store.Nodes() }

func (e *Editor) CheckInvariants() []error { return e.store.CheckInvariants() }

func (e *Editor) writable() error {
	if e.ReadOnly() {
		return domain.ErrReadOnly
	}
	return nil
}

// changed marks the chart dirty and, when persist is set, schedules a save
// for the end of the turn.
func (e *Editor) changed(persist bool) {
	e.sync.MarkDirty()
	if persist {
		e.sync.Schedule()
	}
}

// AddNode creates a node of type t at the top level.
func (e *Editor) AddNode(t domain.NodeType, fields flowchart.Delta) (domain.Node, error) {
	if err := e.writable(); err != nil {
		return domain.Node{}, err
	}
	n, err := e.store.Create(t, fields)
	if err != nil {
		return domain.Node{}, err
	}
	e.changed(true)
	return n, nil
}

// UpdateNode applies a field edit. Edits are picked up by the periodic save.
func (e *Editor) UpdateNode(id string, delta flowchart.Delta) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := e.store.Update(id, delta); err != nil {
		return err
	}
	e.changed(false)
	return nil
}

func (e *Editor) DeleteNode(id string) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := e.store.Delete(id); err != nil {
		return err
	}
	delete(e.collapsed, id)
	e.changed(true)
	return nil
}

// BeginDrag starts a drag gesture on the node.
func (e *Editor) BeginDrag(id string) error {
	if err := e.writable(); err != nil {
		return err
	}
	if _, ok := e.store.Get(id); !ok {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	e.dragging = id
	return nil
}

// DragBy moves the dragged node and its descendants by a delta.
func (e *Editor) DragBy(dx, dy float64) error {
	if e.dragging == "" {
		return errNoDrag
	}
	if err := e.store.Move(e.dragging, dx, dy); err != nil {
		return err
	}
	e.changed(false)
	return nil
}

// EndDrag releases the node and resolves its container. A change of
// container schedules a save.
func (e *Editor) EndDrag() (flowchart.DropResult, error) {
	if e.dragging == "" {
		return flowchart.DropResult{}, errNoDrag
	}
	id := e.dragging
	e.dragging = ""

	res, err := e.store.Drop(id)
	if err != nil {
		return flowchart.DropResult{}, err
	}
	if res.Changed {
		e.changed(true)
	}
	return res, nil
}

// Dragging reports the node being dragged, if any.
func (e *Editor) Dragging() (string, bool) {
	return e.dragging, e.dragging != ""
}

// MoveNode performs a complete drag of the node by (dx, dy).
func (e *Editor) MoveNode(id string, dx, dy float64) (flowchart.DropResult, error) {
	if err := e.BeginDrag(id); err != nil {
		return flowchart.DropResult{}, err
	}
	if err := e.DragBy(dx, dy); err != nil {
		e.dragging = ""
		return flowchart.DropResult{}, err
	}
	return e.EndDrag()
}

// Resize sets the node's size at the end of a resize gesture.
func (e *Editor) Resize(id string, width, height float64) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := e.store.Resize(id, width, height); err != nil {
		return err
	}
	e.changed(true)
	return nil
}

// Detach moves the node to the top level.
func (e *Editor) Detach(id string) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := e.store.Detach(id); err != nil {
		return err
	}
	e.changed(true)
	return nil
}

// Shift moves a phase or task one place up or down among its siblings.
func (e *Editor) Shift(id string, dir flowchart.Direction) (bool, error) {
	if err := e.writable(); err != nil {
		return false, err
	}
	moved, err := e.store.Shift(id, dir)
	if err != nil || !moved {
		return moved, err
	}
	e.changed(false)
	return true, nil
}

func (e *Editor) AddPoint(id string, after int, p domain.Point) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := e.store.AddPoint(id, after, p); err != nil {
		return err
	}
	e.changed(false)
	return nil
}

func (e *Editor) MovePoint(id string, index int, p domain.Point) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := e.store.MovePoint(id, index, p); err != nil {
		return err
	}
	e.changed(false)
	return nil
}

// DeletePoint removes an interior arrow point. Guarded deletions are
// silent no-ops.
func (e *Editor) DeletePoint(id string, index int) error {
	if err := e.writable(); err != nil {
		return err
	}
	removed, err := e.store.DeletePoint(id, index)
	if err != nil {
		return err
	}
	if removed {
		e.changed(false)
	}
	return nil
}

// ToggleCollapsed flips a phase's collapsed state in the list view. The set
// is local to this editor and never saved.
func (e *Editor) ToggleCollapsed(id string) bool {
	if e.collapsed[id] {
		delete(e.collapsed, id)
		return false
	}
	e.collapsed[id] = true
	return true
}

func (e *Editor) Collapsed() map[string]bool {
	return maps.Clone(e.collapsed)
}

// GraphView returns the canvas nodes for the editor's role in paint order.
func (e *Editor) GraphView() []domain.Node {
	return e.store.GraphView(e.role)
}

// ListView returns the list view rows for the editor's role.
func (e *Editor) ListView() []flowchart.Row {
	return e.store.ListView(e.collapsed, e.role)
}

// Export writes the chart in the given format.
func (e *Editor) Export(w io.Writer, format interchange.Format) error {
	return interchange.Export(w, e.name, e.store.Nodes(), format)
}

// Import replaces the chart with the decoded file. On error the chart is
// left unchanged.
func (e *Editor) Import(r io.Reader, format interchange.Format) error {
	if err := e.writable(); err != nil {
		return err
	}
	nodes, err := interchange.Import(r, format)
	if err != nil {
		return err
	}
	if err := e.store.ReplaceAll(nodes); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidImport, err)
	}
	e.collapsed = make(map[string]bool)
	e.changed(true)
	return nil
}

// Save performs an explicit save and reports its failure.
func (e *Editor) Save(ctx context.Context) error {
	if err := e.writable(); err != nil {
		return err
	}
	return e.sync.SaveNow(ctx)
}

// EndTurn runs the save scheduled during the current turn, if any.
func (e *Editor) EndTurn(ctx context.Context) {
	e.sync.EndTurn(ctx)
}

// Run drives periodic saves until ctx is done.
func (e *Editor) Run(ctx context.Context) {
	if e.ReadOnly() {
		<-ctx.Done()
		return
	}
	e.sync.Run(ctx)
}

// Close flushes unsaved changes.
func (e *Editor) Close(ctx context.Context) error {
	if e.ReadOnly() {
		return nil
	}
	return e.sync.Flush(ctx)
}
