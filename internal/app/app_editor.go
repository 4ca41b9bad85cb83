package app

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/layout"
	"pagebuilder/internal/service"
	"pagebuilder/internal/staging"
	"pagebuilder/internal/storage"
)

// ============================================================
// Canvas
// ============================================================

// GetView returns everything the canvas needs to draw the page.
func (a *App) GetView() editor.View {
	return a.rt.Pages.Editor().View()
}

// HitTest returns the top-most node under a point of a section, in pixels
// relative to the section's top-left corner.
func (a *App) HitTest(sectionID string, x, y float64) *layout.Placement {
	p, ok := a.rt.Pages.Editor().HitTest(sectionID, x, y)
	if !ok {
		return nil
	}
	return &p
}

// SetContainerWidth reports the measured width of a section container.
func (a *App) SetContainerWidth(sectionID string, px float64) error {
	return a.rt.Pages.Editor().SetContainerWidth(sectionID, px)
}

func (a *App) NodeClick(sectionID, nodeID string) error {
	return a.rt.Pages.Editor().OnNodeClick(sectionID, nodeID)
}

func (a *App) NodeDoubleClick(sectionID, nodeID string) error {
	return a.rt.Pages.Editor().OnNodeDoubleClick(sectionID, nodeID)
}

func (a *App) NodeHover(nodeID string) {
	a.rt.Pages.Editor().OnNodeHover(nodeID)
}

func (a *App) ClearSelection() {
	a.rt.Pages.Editor().ClearSelection()
}

func (a *App) SetHighlight(nodeID string) {
	a.rt.Pages.Editor().SetHighlight(nodeID)
}

// SetPaddingOverlay shows the padding of a node while its inspector
// field is focused; nil hides it.
func (a *App) SetPaddingOverlay(nodeID string, padding *[4]float64) {
	a.rt.Pages.Editor().SetPaddingOverlay(nodeID, padding)
}

func (a *App) CloseInspector() {
	a.rt.Pages.Editor().CloseInspector()
}

// HandleKey runs a builder shortcut. False means the key was not used and
// the webview should handle it.
func (a *App) HandleKey(ev editor.KeyEvent) bool {
	return a.rt.Pages.Editor().HandleKey(ev)
}

func (a *App) SetEditing(on bool) error {
	return a.rt.Pages.Editor().SetEditing(on)
}

// ============================================================
// Drag, resize and grid adjustment
// ============================================================

func (a *App) BeginDrag(sectionID, nodeID string) error {
	return a.rt.Pages.Editor().BeginDrag(sectionID, nodeID)
}

func (a *App) BeginResize(sectionID, nodeID string, handle editor.Handle) error {
	return a.rt.Pages.Editor().BeginResize(sectionID, nodeID, handle)
}

// DragTo moves the active gesture to a pointer offset in pixels from
// where it began.
func (a *App) DragTo(dx, dy float64) error {
	return a.rt.Pages.Editor().DragTo(dx, dy)
}

func (a *App) EndDrag() error {
	return a.rt.Pages.Editor().EndDrag()
}

func (a *App) CancelDrag() {
	a.rt.Pages.Editor().CancelDrag()
}

// UpdateNodeLayout applies units from the inspector fields.
func (a *App) UpdateNodeLayout(sectionID, nodeID string, u domain.Units) error {
	return a.rt.Pages.Editor().OnUpdateNodeLayout(sectionID, nodeID, u)
}

func (a *App) CenterNode(sectionID, nodeID string, axis editor.Axis) error {
	return a.rt.Pages.Editor().CenterNode(sectionID, nodeID, axis)
}

func (a *App) BeginGridAdjust(sectionID string) error {
	return a.rt.Pages.Editor().BeginGridAdjust(sectionID)
}

func (a *App) AdjustGrid(sectionID string, cols, aspectNum, aspectDen int) error {
	return a.rt.Pages.Editor().AdjustGrid(sectionID, cols, aspectNum, aspectDen)
}

func (a *App) EndGridAdjust(sectionID string) error {
	return a.rt.Pages.Editor().EndGridAdjust(sectionID)
}

func (a *App) CancelGridAdjust(sectionID string) {
	a.rt.Pages.Editor().CancelGridAdjust(sectionID)
}

func (a *App) SetShowGrid(sectionID string, show bool) error {
	return a.rt.Pages.Editor().SetShowGrid(sectionID, show)
}

// ============================================================
// Page and sections
// ============================================================

func (a *App) SetPageTitle(title string) error {
	return a.rt.Pages.Editor().SetPageTitle(title)
}

func (a *App) SetPageVisible(visible bool) error {
	return a.rt.Pages.Editor().SetPageVisible(visible)
}

func (a *App) ListPresets() []string {
	return a.rt.Pages.Editor().PresetKeys()
}

// AddSection appends an empty section, or one built from preset when
// non-empty.
func (a *App) AddSection(preset string) (string, error) {
	if preset == "" {
		return a.rt.Pages.Editor().AddSection()
	}
	return a.rt.Pages.Editor().AddSectionPreset(preset)
}

func (a *App) DeleteSection(sectionID string) error {
	return a.rt.Pages.Editor().DeleteSection(sectionID)
}

func (a *App) MoveSection(sectionID string, delta int) error {
	return a.rt.Pages.Editor().MoveSection(sectionID, delta)
}

func (a *App) DuplicateSection(sectionID string) (string, error) {
	return a.rt.Pages.Editor().DuplicateSection(sectionID)
}

func (a *App) RenameSection(sectionID, name string) error {
	return a.rt.Pages.Editor().RenameSection(sectionID, name)
}

func (a *App) SetSectionFont(sectionID, family string) error {
	return a.rt.Pages.Editor().SetSectionFont(sectionID, family)
}

// SetSectionBackground returns a conflicting background notice after the
// write when utility classes had to be dropped.
func (a *App) SetSectionBackground(sectionID string, bg domain.Background) error {
	return a.rt.Pages.Editor().SetSectionBackground(sectionID, bg)
}

func (a *App) SetSectionGrid(sectionID string, cols, aspectNum, aspectDen int) error {
	return a.rt.Pages.Editor().SetSectionGrid(sectionID, cols, aspectNum, aspectDen)
}

// ============================================================
// Elements
// ============================================================

func (a *App) AddElement(t domain.NodeType) (string, error) {
	return a.rt.Pages.Editor().AddElement(t)
}

func (a *App) DeleteNode(sectionID, nodeID string) error {
	return a.rt.Pages.Editor().DeleteNode(sectionID, nodeID)
}

func (a *App) SetProp(sectionID, nodeID, key string, value any) error {
	return a.rt.Pages.Editor().SetProp(sectionID, nodeID, key, value)
}

// ClearOverride drops the active locale's override so the default copy
// shows through.
func (a *App) ClearOverride(sectionID, nodeID, key string) error {
	return a.rt.Pages.Editor().ClearOverride(sectionID, nodeID, key)
}

func (a *App) SetStyle(sectionID, nodeID, key string, value any) error {
	return a.rt.Pages.Editor().SetStyle(sectionID, nodeID, key, value)
}

// BeginNodeEdit and EndNodeEdit bracket inspector edits that should undo
// as one step.
func (a *App) BeginNodeEdit(sectionID, nodeID string) error {
	return a.rt.Pages.Editor().BeginNodeEdit(sectionID, nodeID)
}

func (a *App) EndNodeEdit() {
	a.rt.Pages.Editor().EndNodeEdit()
}

func (a *App) Copy() error {
	return a.rt.Pages.Editor().CopySelected()
}

func (a *App) Paste() (string, error) {
	return a.rt.Pages.Editor().PasteClipboard()
}

// ============================================================
// History
// ============================================================

func (a *App) Undo() error {
	return a.rt.Pages.Editor().Undo()
}

func (a *App) Redo() error {
	return a.rt.Pages.Editor().Redo()
}

func (a *App) GetHistory() service.HistoryInfo {
	return a.rt.Pages.History()
}

// ============================================================
// Locales
// ============================================================

// AddLocale adds a locale and seeds its copy through the translator. A
// failed translation still leaves the locale added.
func (a *App) AddLocale(code string) error {
	return a.rt.Pages.AddLocale(a.ctx, code)
}

func (a *App) RemoveLocale(code string) error {
	return a.rt.Pages.Editor().RemoveLocale(code)
}

func (a *App) SetActiveLocale(code string) error {
	return a.rt.Pages.Editor().SetActiveLocale(code)
}

// ============================================================
// Sync
// ============================================================

func (a *App) GetSyncStatus() staging.Status {
	return a.rt.Pages.Status()
}

// Publish copies staging to live. The result also arrives as a
// publish:finished event.
func (a *App) Publish() error {
	return a.rt.Pages.Publish(a.ctx)
}

// Reload picks up a change made by another process now instead of on the
// next poll.
func (a *App) Reload() (bool, error) {
	return a.rt.Pages.CheckExternal(a.ctx)
}

// ============================================================
// MCP approvals
// ============================================================

func (a *App) PendingActions() ([]storage.Approval, error) {
	return a.rt.Local.PendingApprovals(a.ctx)
}

func (a *App) ApproveAction(id string) error {
	return a.rt.Local.ResolveApproval(a.ctx, id, true)
}

func (a *App) RejectAction(id string) error {
	return a.rt.Local.ResolveApproval(a.ctx, id, false)
}
