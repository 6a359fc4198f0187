// Package interchange converts boulders to and from the portable JSON file
// format used for import and export.
//
// The file format ranks holds by array position: ordered_holds[i] is move
// i+1. Move numbers are never written, so a round trip normalises any gaps.
package interchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"boulder-editor/internal/domain"
)

const (
	DefaultImportedName  = "Unnamed Imported"
	DefaultImportedGrade = "V?"
	DefaultImportedStyle = "Other"
)

// ToInterchange writes b in file form with holds in move order.
func ToInterchange(b *domain.Boulder) domain.InterchangeRecord {
	rec := domain.InterchangeRecord{
		ID:           b.ID,
		Name:         b.Name,
		Grade:        b.Grade,
		Style:        b.Style,
		Description:  b.Description,
		StartHolds:   nonNil(b.StartHolds),
		FinishHolds:  nonNil(b.FinishHolds),
		OrderedHolds: nonNil(b.OrderedHoldIDs()),
	}
	if !b.CreatedAt.IsZero() {
		created := b.CreatedAt
		rec.CreatedAt = &created
	}
	return rec
}

// wireRecord keeps the structural fields raw so their JSON kind can be
// checked before decoding.
type wireRecord struct {
	ID           json.RawMessage `json:"id"`
	Name         json.RawMessage `json:"name"`
	Grade        json.RawMessage `json:"grade"`
	Style        json.RawMessage `json:"style"`
	Description  json.RawMessage `json:"description"`
	StartHolds   json.RawMessage `json:"start_holds"`
	FinishHolds  json.RawMessage `json:"finish_holds"`
	OrderedHolds json.RawMessage `json:"ordered_holds"`
	CreatedAt    json.RawMessage `json:"created_at"`
}

// FromInterchange decodes one record. Structure is strict: a missing id or a
// non-array hold list yields ErrMalformedRecord. Metadata is lenient and
// defaulted. now stamps CreatedAt when the record carries none.
func FromInterchange(raw json.RawMessage, now time.Time) (*domain.Boulder, error) {
	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}

	var id string
	if !isKind(w.ID, '"') || json.Unmarshal(w.ID, &id) != nil || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: missing id", domain.ErrMalformedRecord)
	}

	ordered, err := holdArray(w.OrderedHolds, "ordered_holds")
	if err != nil {
		return nil, err
	}
	starts, err := holdArray(w.StartHolds, "start_holds")
	if err != nil {
		return nil, err
	}
	finishes, err := holdArray(w.FinishHolds, "finish_holds")
	if err != nil {
		return nil, err
	}

	b := &domain.Boulder{
		ID:          id,
		Name:        orDefault(w.Name, DefaultImportedName),
		Grade:       orDefault(w.Grade, DefaultImportedGrade),
		Style:       orDefault(w.Style, DefaultImportedStyle),
		Description: orDefault(w.Description, ""),
		Moves:       make([]domain.Move, 0, len(ordered)),
		StartHolds:  []domain.HoldID{},
		FinishHolds: []domain.HoldID{},
		CreatedAt:   now,
	}
	var created time.Time
	if isKind(w.CreatedAt, '"') && json.Unmarshal(w.CreatedAt, &created) == nil && !created.IsZero() {
		b.CreatedAt = created
	}
	for _, h := range ordered {
		b.AppendHold(h)
	}
	// Role sets only keep holds that are in the sequence; finish wins when a
	// file lists a hold under both.
	for _, h := range starts {
		b.MarkStart(h)
	}
	for _, h := range finishes {
		b.MarkFinish(h)
	}
	return b, nil
}

func holdArray(raw json.RawMessage, field string) ([]domain.HoldID, error) {
	if !isKind(raw, '[') {
		return nil, fmt.Errorf("%w: %s is not an array", domain.ErrMalformedRecord, field)
	}
	var ids []domain.HoldID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedRecord, field, err)
	}
	return ids, nil
}

// wireFile only checks the top-level shape; records are decoded one by one so
// a bad record cannot sink the batch.
type wireFile struct {
	Boulders json.RawMessage `json:"boulders"`
}

// DecodeFile reads an import document and returns its raw boulder records.
func DecodeFile(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if !isKind(trimmed, '{') {
		return nil, domain.ErrInvalidImportFormat
	}
	var f wireFile
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImportFormat, err)
	}
	if !isKind(f.Boulders, '[') {
		return nil, domain.ErrInvalidImportFormat
	}
	var records []json.RawMessage
	if err := json.Unmarshal(f.Boulders, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImportFormat, err)
	}
	return records, nil
}

// EncodeFile writes the export document for boulders, indented for humans.
func EncodeFile(w io.Writer, dims domain.ImageDimensions, boulders []*domain.Boulder) error {
	doc := domain.InterchangeFile{
		WallInfo: domain.WallInfo{Dimensions: dims},
		Boulders: make([]domain.InterchangeRecord, len(boulders)),
	}
	for i, b := range boulders {
		doc.Boulders[i] = ToInterchange(b)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportFilename is the suggested download name for an export made at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("boulder_export_%s.json", t.Format("2006-01-02"))
}

func isKind(raw json.RawMessage, open byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == open
}

// orDefault returns the string in raw, or def when raw is absent, empty or
// not a string.
func orDefault(raw json.RawMessage, def string) string {
	var s string
	if !isKind(raw, '"') || json.Unmarshal(raw, &s) != nil || s == "" {
		return def
	}
	return s
}

func nonNil(ids []domain.HoldID) []domain.HoldID {
	if ids == nil {
		return []domain.HoldID{}
	}
	return ids
}
