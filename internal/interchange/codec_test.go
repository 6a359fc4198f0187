package interchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"boulder-editor/internal/domain"
)

var testNow = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

func savedBoulder(id string) *domain.Boulder {
	b := domain.NewBoulder(testNow)
	b.ID = id
	b.Name = "Crimp Line"
	b.Grade = "V5"
	b.Style = "Crimpy"
	b.Description = "Stay low"
	for _, h := range []domain.HoldID{"7", "3", "12", "4"} {
		b.AppendHold(h)
	}
	b.MarkStart("7")
	b.MarkStart("3")
	b.MarkFinish("4")
	return b
}

func TestToInterchange_OrdersHoldsByMoveNumber(t *testing.T) {
	b := savedBoulder("b-1")
	b.Moves = []domain.Move{
		{HoldID: "12", MoveNumber: 9},
		{HoldID: "7", MoveNumber: 1},
		{HoldID: "4", MoveNumber: 11},
		{HoldID: "3", MoveNumber: 2},
	}

	rec := ToInterchange(b)

	want := []domain.HoldID{"7", "3", "12", "4"}
	if len(rec.OrderedHolds) != len(want) {
		t.Fatalf("expected %d ordered holds, got %d", len(want), len(rec.OrderedHolds))
	}
	for i := range want {
		if rec.OrderedHolds[i] != want[i] {
			t.Errorf("ordered_holds[%d]: expected %s, got %s", i, want[i], rec.OrderedHolds[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	b := savedBoulder("b-1715941800000-a1b2c3")

	raw, err := json.Marshal(ToInterchange(b))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, err := FromInterchange(raw, time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got.ID != b.ID || got.Name != b.Name || got.Grade != b.Grade || got.Style != b.Style || got.Description != b.Description {
		t.Errorf("metadata changed: %+v", got)
	}
	if !got.CreatedAt.Equal(b.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", b.CreatedAt, got.CreatedAt)
	}
	for _, h := range b.OrderedHoldIDs() {
		want, _ := b.MoveNumber(h)
		n, ok := got.MoveNumber(h)
		if !ok || n != want {
			t.Errorf("hold %s: expected move %d, got %d (present=%v)", h, want, n, ok)
		}
		if got.Role(h) != b.Role(h) {
			t.Errorf("hold %s: expected role %s, got %s", h, b.Role(h), got.Role(h))
		}
	}
}

func TestFromInterchange_Defaults(t *testing.T) {
	raw := json.RawMessage(`{"id":"x1","ordered_holds":["a","b"],"start_holds":["a"],"finish_holds":["b"],"grade":42}`)

	b, err := FromInterchange(raw, testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if b.Name != DefaultImportedName {
		t.Errorf("expected name %q, got %q", DefaultImportedName, b.Name)
	}
	if b.Grade != DefaultImportedGrade {
		t.Errorf("expected grade %q, got %q", DefaultImportedGrade, b.Grade)
	}
	if b.Style != DefaultImportedStyle {
		t.Errorf("expected style %q, got %q", DefaultImportedStyle, b.Style)
	}
	if b.Description != "" {
		t.Errorf("expected empty description, got %q", b.Description)
	}
	if !b.CreatedAt.Equal(testNow) {
		t.Errorf("expected created_at to default to import time, got %v", b.CreatedAt)
	}
}

func TestFromInterchange_NumericHoldIDs(t *testing.T) {
	raw := json.RawMessage(`{"id":"x1","ordered_holds":[5,"9",11],"start_holds":[5],"finish_holds":[11]}`)

	b, err := FromInterchange(raw, testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if n, _ := b.MoveNumber("9"); n != 2 {
		t.Errorf("expected hold 9 at move 2, got %d", n)
	}
	if !b.IsStart("5") || !b.IsFinish("11") {
		t.Errorf("expected roles to survive numeric ids, got start=%v finish=%v", b.StartHolds, b.FinishHolds)
	}
}

func TestFromInterchange_RoleSanitising(t *testing.T) {
	raw := json.RawMessage(`{"id":"x1","ordered_holds":["a","b","a"],"start_holds":["a","ghost","b"],"finish_holds":["b"]}`)

	b, err := FromInterchange(raw, testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(b.Moves) != 2 {
		t.Fatalf("expected duplicate ordered ids to collapse to 2 moves, got %d", len(b.Moves))
	}
	if b.IsStart("ghost") {
		t.Error("expected start hold outside the sequence to be dropped")
	}
	if b.Role("b") != domain.RoleFinish {
		t.Errorf("expected finish to win for hold listed twice, got %s", b.Role("b"))
	}
	if b.Role("a") != domain.RoleStart {
		t.Errorf("expected hold a to be a start, got %s", b.Role("a"))
	}
}

func TestFromInterchange_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not an object", `"boulder"`},
		{"missing id", `{"ordered_holds":[],"start_holds":[],"finish_holds":[]}`},
		{"blank id", `{"id":"  ","ordered_holds":[],"start_holds":[],"finish_holds":[]}`},
		{"numeric id", `{"id":7,"ordered_holds":[],"start_holds":[],"finish_holds":[]}`},
		{"missing ordered_holds", `{"id":"x","start_holds":[],"finish_holds":[]}`},
		{"ordered_holds not array", `{"id":"x","ordered_holds":"a,b","start_holds":[],"finish_holds":[]}`},
		{"start_holds null", `{"id":"x","ordered_holds":[],"start_holds":null,"finish_holds":[]}`},
		{"missing finish_holds", `{"id":"x","ordered_holds":[],"start_holds":[]}`},
		{"hold id is an object", `{"id":"x","ordered_holds":[{}],"start_holds":[],"finish_holds":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromInterchange(json.RawMessage(tt.raw), testNow)
			if !errors.Is(err, domain.ErrMalformedRecord) {
				t.Errorf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"valid", `{"wall_info":{},"boulders":[{"id":"a"},{"id":"b"}]}`, 2, false},
		{"empty list", `{"boulders":[]}`, 0, false},
		{"top-level array", `[{"id":"a"}]`, 0, true},
		{"no boulders key", `{"wall_info":{}}`, 0, true},
		{"boulders not array", `{"boulders":{"id":"a"}}`, 0, true},
		{"not json", `boulders`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeFile(strings.NewReader(tt.input))
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidImportFormat) {
					t.Errorf("expected ErrInvalidImportFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("expected %d records, got %d", tt.want, len(records))
			}
		})
	}
}

func TestEncodeFile_Shape(t *testing.T) {
	var buf bytes.Buffer
	dims := domain.ImageDimensions{Width: 1024, Height: 768}

	if err := EncodeFile(&buf, dims, []*domain.Boulder{savedBoulder("b-1")}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var doc struct {
		WallInfo struct {
			Dimensions map[string]int `json:"dimensions"`
		} `json:"wall_info"`
		Boulders []map[string]json.RawMessage `json:"boulders"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if doc.WallInfo.Dimensions["width"] != 1024 || doc.WallInfo.Dimensions["height"] != 768 {
		t.Errorf("unexpected dimensions: %v", doc.WallInfo.Dimensions)
	}
	if len(doc.Boulders) != 1 {
		t.Fatalf("expected 1 boulder, got %d", len(doc.Boulders))
	}
	for _, key := range []string{"id", "name", "grade", "style", "description", "start_holds", "finish_holds", "ordered_holds"} {
		if _, ok := doc.Boulders[0][key]; !ok {
			t.Errorf("expected key %q in exported record", key)
		}
	}
	if _, ok := doc.Boulders[0]["moves"]; ok {
		t.Error("expected internal moves field to stay out of the file")
	}
}

func TestEncodeFile_EmptyArrays(t *testing.T) {
	var buf bytes.Buffer
	b := domain.NewBoulder(testNow)
	b.StartHolds = nil

	if err := EncodeFile(&buf, domain.ImageDimensions{}, []*domain.Boulder{b}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(buf.String(), "null") {
		t.Errorf("expected empty arrays instead of null, got %s", buf.String())
	}
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename(testNow)
	if got != "boulder_export_2024-05-17.json" {
		t.Errorf("unexpected filename %q", got)
	}
}
