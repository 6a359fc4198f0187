// Package editor holds the state machine for the boulder being authored:
// the working copy, the hold selection and every gesture that mutates them.
//
// An Editor is not safe for concurrent use; the session service serialises
// access to it.
package editor

import (
	"fmt"
	"strings"
	"time"

	"boulder-editor/internal/domain"
)

// HoldSource exposes the currently loaded catalogue, or nil when none is.
type HoldSource interface {
	Catalogue() *domain.Catalogue
}

type Option func(*Editor)

func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

type Editor struct {
	holds HoldSource
	now   func() time.Time

	current  *domain.Boulder
	selected domain.HoldID
	hasSel   bool
}

func New(holds HoldSource, opts ...Option) *Editor {
	e := &Editor{holds: holds, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.CreateNew()
	return e
}

// ToggleResult describes what a tap did.
type ToggleResult struct {
	Selected   bool
	Added      bool
	MoveNumber int
}

// CreateNew replaces the working copy with a fresh boulder and clears the
// selection.
func (e *Editor) CreateNew() *domain.Boulder {
	e.clearSelection()
	e.current = domain.NewBoulder(e.now())
	return e.current.Clone()
}

// ToggleHold is the tap gesture. Tapping the selected hold deselects it and
// leaves the sequence alone; tapping any other hold selects it and appends it
// to the sequence when it is not there yet.
func (e *Editor) ToggleHold(id domain.HoldID) (ToggleResult, error) {
	cat := e.catalogue()
	if e.current == nil || cat == nil {
		return ToggleResult{}, fmt.Errorf("%w: %w", domain.ErrNoActiveBoulder, domain.ErrCatalogueNotLoaded)
	}
	if !cat.Has(id) {
		return ToggleResult{}, fmt.Errorf("%w: %s", domain.ErrUnknownHold, id)
	}

	if e.hasSel && e.selected == id {
		e.clearSelection()
		n, _ := e.current.MoveNumber(id)
		return ToggleResult{Selected: false, MoveNumber: n}, nil
	}

	e.selected, e.hasSel = id, true
	if n, added := e.current.AppendHold(id); added {
		return ToggleResult{Selected: true, Added: true, MoveNumber: n}, nil
	}
	n, _ := e.current.MoveNumber(id)
	return ToggleResult{Selected: true, MoveNumber: n}, nil
}

// MarkStart marks the hold as a start hold and clears its finish role. An
// empty id means the current selection. It reports false, changing nothing,
// when the hold is not in the sequence.
func (e *Editor) MarkStart(id domain.HoldID) bool {
	id, ok := e.resolve(id)
	if !ok {
		return false
	}
	return e.current.MarkStart(id)
}

// MarkFinish is MarkStart's mirror image.
func (e *Editor) MarkFinish(id domain.HoldID) bool {
	id, ok := e.resolve(id)
	if !ok {
		return false
	}
	return e.current.MarkFinish(id)
}

// RemoveHold drops the hold from the sequence and both role sets, then closes
// the numbering gap. Removing the selected hold clears the selection.
func (e *Editor) RemoveHold(id domain.HoldID) bool {
	id, ok := e.resolve(id)
	if !ok {
		return false
	}
	if !e.current.RemoveHold(id) {
		return false
	}
	if e.hasSel && e.selected == id {
		e.clearSelection()
	}
	return true
}

func (e *Editor) Renumber() {
	if e.current != nil {
		e.current.Renumber()
	}
}

func (e *Editor) ValidateForSave() error {
	if e.current == nil {
		return domain.ErrNoActiveBoulder
	}
	return e.current.ValidateForSave()
}

// LoadForEditing makes a private copy of b the working copy.
func (e *Editor) LoadForEditing(b *domain.Boulder) {
	e.clearSelection()
	e.current = b.Clone()
	e.current.Renumber()
}

func (e *Editor) UpdateMetadata(req *domain.UpdateMetadataRequest) {
	if req.Name != nil {
		e.current.Name = strings.TrimSpace(*req.Name)
	}
	if req.Grade != nil {
		e.current.Grade = strings.TrimSpace(*req.Grade)
	}
	if req.Style != nil {
		e.current.Style = strings.TrimSpace(*req.Style)
	}
	if req.Description != nil {
		e.current.Description = strings.TrimSpace(*req.Description)
	}
}

// PrepareForSave applies save-time defaults to the working copy and returns a
// copy of it ready for storing.
func (e *Editor) PrepareForSave() (*domain.Boulder, error) {
	if err := e.ValidateForSave(); err != nil {
		return nil, err
	}
	e.current.ApplySaveDefaults()
	e.current.UpdatedAt = e.now()
	return e.current.Clone(), nil
}

func (e *Editor) Current() *domain.Boulder {
	return e.current.Clone()
}

func (e *Editor) CurrentID() string {
	if e.current == nil {
		return ""
	}
	return e.current.ID
}

func (e *Editor) Selection() (domain.HoldID, bool) {
	return e.selected, e.hasSel
}

func (e *Editor) Actions() domain.SessionActions {
	var a domain.SessionActions
	if e.current == nil {
		return a
	}
	if e.hasSel && e.current.HasHold(e.selected) {
		a.CanMarkStart = !e.current.IsStart(e.selected)
		a.CanMarkFinish = !e.current.IsFinish(e.selected)
		a.CanRemove = true
	}
	a.CanSave = e.catalogue() != nil && e.current.ValidateForSave() == nil
	return a
}

func (e *Editor) Snapshot() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		Boulder:         e.current.Clone(),
		Holds:           []domain.HoldState{},
		Actions:         e.Actions(),
		CatalogueLoaded: e.catalogue() != nil,
	}
	if e.hasSel {
		id := e.selected
		snap.SelectedHoldID = &id
	}
	if e.current == nil {
		return snap
	}
	for _, id := range e.current.OrderedHoldIDs() {
		n, _ := e.current.MoveNumber(id)
		snap.Holds = append(snap.Holds, domain.HoldState{
			HoldID:     id,
			MoveNumber: n,
			Role:       e.current.Role(id),
		})
	}
	if ve, ok := domain.AsValidationError(e.current.ValidateForSave()); ok {
		v := *ve
		snap.Validation = &v
	}
	return snap
}

func (e *Editor) resolve(id domain.HoldID) (domain.HoldID, bool) {
	if e.current == nil {
		return "", false
	}
	if id == "" {
		if !e.hasSel {
			return "", false
		}
		id = e.selected
	}
	return id, e.current.HasHold(id)
}

func (e *Editor) clearSelection() {
	e.selected, e.hasSel = "", false
}

func (e *Editor) catalogue() *domain.Catalogue {
	if e.holds == nil {
		return nil
	}
	return e.holds.Catalogue()
}
