package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultGrade = "V4"
	DefaultStyle = "Technical"
)

type HoldRole string

const (
	RoleNone       HoldRole = "none"
	RoleInSequence HoldRole = "in_sequence"
	RoleStart      HoldRole = "start"
	RoleFinish     HoldRole = "finish"
)

type Move struct {
	HoldID     HoldID `json:"hold_id"`
	MoveNumber int    `json:"move_number"`
}

type Boulder struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Grade       string    `json:"grade"`
	Style       string    `json:"style"`
	Description string    `json:"description"`
	Moves       []Move    `json:"moves"`
	StartHolds  []HoldID  `json:"start_holds"`
	FinishHolds []HoldID  `json:"finish_holds"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// NewBoulderID returns an id of the form b-<unix millis>-<6 hex chars>.
func NewBoulderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("b-%d-%s", now.UnixMilli(), suffix)
}

// CreatedAtFromID recovers the mint time encoded in an id made by
// NewBoulderID. ok is false for ids of any other shape.
func CreatedAtFromID(id string) (created time.Time, ok bool) {
	rest := strings.TrimPrefix(id, "b-")
	if rest == id {
		return time.Time{}, false
	}
	millis, _, found := strings.Cut(rest, "-")
	if !found || millis == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func NewBoulder(now time.Time) *Boulder {
	return &Boulder{
		ID:          NewBoulderID(now),
		Grade:       DefaultGrade,
		Style:       DefaultStyle,
		Moves:       []Move{},
		StartHolds:  []HoldID{},
		FinishHolds: []HoldID{},
		CreatedAt:   now,
	}
}

// Clone returns a deep copy that shares no slices with b.
func (b *Boulder) Clone() *Boulder {
	if b == nil {
		return nil
	}
	out := *b
	out.Moves = append(make([]Move, 0, len(b.Moves)), b.Moves...)
	out.StartHolds = append(make([]HoldID, 0, len(b.StartHolds)), b.StartHolds...)
	out.FinishHolds = append(make([]HoldID, 0, len(b.FinishHolds)), b.FinishHolds...)
	return &out
}

func (b *Boulder) moveIndex(id HoldID) int {
	for i, m := range b.Moves {
		if m.HoldID == id {
			return i
		}
	}
	return -1
}

func (b *Boulder) HasHold(id HoldID) bool {
	return b.moveIndex(id) >= 0
}

func (b *Boulder) MoveNumber(id HoldID) (int, bool) {
	i := b.moveIndex(id)
	if i < 0 {
		return 0, false
	}
	return b.Moves[i].MoveNumber, true
}

func (b *Boulder) IsStart(id HoldID) bool  { return containsHold(b.StartHolds, id) }
func (b *Boulder) IsFinish(id HoldID) bool { return containsHold(b.FinishHolds, id) }

// Role reports the committed role of a hold. Start and finish are exclusive,
// so at most one of them applies.
func (b *Boulder) Role(id HoldID) HoldRole {
	switch {
	case !b.HasHold(id):
		return RoleNone
	case b.IsStart(id):
		return RoleStart
	case b.IsFinish(id):
		return RoleFinish
	default:
		return RoleInSequence
	}
}

// AppendHold adds id at the end of the sequence. It returns the assigned move
// number, or false when the hold is already part of the boulder.
func (b *Boulder) AppendHold(id HoldID) (int, bool) {
	if b.HasHold(id) {
		return 0, false
	}
	next := 1
	for _, m := range b.Moves {
		if m.MoveNumber >= next {
			next = m.MoveNumber + 1
		}
	}
	b.Moves = append(b.Moves, Move{HoldID: id, MoveNumber: next})
	return next, true
}

// RemoveHold drops id from the moves and from both role sets, then
// renumbers. It reports whether anything was removed.
func (b *Boulder) RemoveHold(id HoldID) bool {
	i := b.moveIndex(id)
	if i < 0 {
		return false
	}
	b.Moves = append(b.Moves[:i], b.Moves[i+1:]...)
	b.StartHolds = withoutHold(b.StartHolds, id)
	b.FinishHolds = withoutHold(b.FinishHolds, id)
	b.Renumber()
	return true
}

func (b *Boulder) MarkStart(id HoldID) bool {
	if !b.HasHold(id) {
		return false
	}
	if !b.IsStart(id) {
		b.StartHolds = append(b.StartHolds, id)
	}
	b.FinishHolds = withoutHold(b.FinishHolds, id)
	return true
}

func (b *Boulder) MarkFinish(id HoldID) bool {
	if !b.HasHold(id) {
		return false
	}
	if !b.IsFinish(id) {
		b.FinishHolds = append(b.FinishHolds, id)
	}
	b.StartHolds = withoutHold(b.StartHolds, id)
	return true
}

// Renumber stable-sorts moves by their current number and reassigns 1..N.
func (b *Boulder) Renumber() {
	sort.SliceStable(b.Moves, func(i, j int) bool {
		return b.Moves[i].MoveNumber < b.Moves[j].MoveNumber
	})
	for i := range b.Moves {
		b.Moves[i].MoveNumber = i + 1
	}
}

// OrderedHoldIDs lists the hold ids by move number without touching b.
func (b *Boulder) OrderedHoldIDs() []HoldID {
	moves := append([]Move(nil), b.Moves...)
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].MoveNumber < moves[j].MoveNumber
	})
	ids := make([]HoldID, len(moves))
	for i, m := range moves {
		ids[i] = m.HoldID
	}
	return ids
}

// ValidateForSave checks that the boulder has moves, a start and a finish,
// in that order.
func (b *Boulder) ValidateForSave() error {
	switch {
	case len(b.Moves) == 0:
		return ErrEmptySequence
	case len(b.StartHolds) == 0:
		return ErrMissingStart
	case len(b.FinishHolds) == 0:
		return ErrMissingFinish
	}
	return nil
}

// ApplySaveDefaults fills blank metadata the way a save does.
func (b *Boulder) ApplySaveDefaults() {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		b.Name = "Unnamed " + lastN(b.ID, 4)
	}
	b.Description = strings.TrimSpace(b.Description)
	if strings.TrimSpace(b.Grade) == "" {
		b.Grade = DefaultGrade
	}
	if strings.TrimSpace(b.Style) == "" {
		b.Style = DefaultStyle
	}
}

func (b *Boulder) Summary() BoulderSummary {
	return BoulderSummary{
		ID:        b.ID,
		Name:      b.Name,
		Grade:     b.Grade,
		Style:     b.Style,
		HoldCount: len(b.Moves),
		CreatedAt: b.CreatedAt,
	}
}

type BoulderSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	Style     string    `json:"style"`
	HoldCount int       `json:"hold_count"`
	CreatedAt time.Time `json:"created_at"`
}

func containsHold(ids []HoldID, id HoldID) bool {
	for _, h := range ids {
		if h == id {
			return true
		}
	}
	return false
}

func withoutHold(ids []HoldID, id HoldID) []HoldID {
	out := ids[:0]
	for _, h := range ids {
		if h != id {
			out = append(out, h)
		}
	}
	return out
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
