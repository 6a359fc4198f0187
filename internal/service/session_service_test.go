package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"boulder-editor/internal/domain"
	"boulder-editor/internal/websocket"
)

type sessionFixture struct {
	session    *SessionService
	collection *CollectionService
	store      *mockBlobStore
	holds      *mockHolds
	bc         *mockBroadcaster
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		store: newMockBlobStore(),
		holds: &mockHolds{cat: testCatalogue("1", "2", "3", "4")},
		bc:    &mockBroadcaster{},
	}
	f.collection = newTestCollection(f.store)
	f.session = NewSessionService(f.holds, f.collection, f.bc, WithSessionClock(fixedClock))
	return f
}

func (f *sessionFixture) tap(t *testing.T, ids ...domain.HoldID) {
	t.Helper()
	for _, id := range ids {
		if _, err := f.session.TapHold(id); err != nil {
			t.Fatalf("tap %s: expected no error, got %v", id, err)
		}
	}
}

// buildValid taps 1..3, marking 1 as start and 3 as finish.
func (f *sessionFixture) buildValid(t *testing.T) {
	t.Helper()
	f.tap(t, "1", "2", "3")
	f.session.MarkStart("1")
	f.session.MarkFinish("3")
}

func TestSessionService_TapHold(t *testing.T) {
	f := newSessionFixture()

	res, err := f.session.TapHold("2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.Changed {
		t.Error("expected tap to report a change")
	}
	if res.Session.SelectedHoldID == nil || *res.Session.SelectedHoldID != "2" {
		t.Errorf("expected hold 2 selected, got %v", res.Session.SelectedHoldID)
	}
	if len(res.Session.Holds) != 1 || res.Session.Holds[0].MoveNumber != 1 {
		t.Errorf("expected hold 2 as move 1, got %+v", res.Session.Holds)
	}
	if f.bc.count(websocket.TypeSessionState) != 1 {
		t.Errorf("expected one session broadcast, got %v", f.bc.types())
	}

	if _, err := f.session.TapHold("99"); !errors.Is(err, domain.ErrUnknownHold) {
		t.Errorf("expected ErrUnknownHold, got %v", err)
	}
}

func TestSessionService_TapWithoutCatalogue(t *testing.T) {
	f := newSessionFixture()
	f.holds.cat = nil

	_, err := f.session.TapHold("1")
	if !errors.Is(err, domain.ErrNoActiveBoulder) || !errors.Is(err, domain.ErrCatalogueNotLoaded) {
		t.Errorf("expected ErrNoActiveBoulder wrapping ErrCatalogueNotLoaded, got %v", err)
	}
}

func TestSessionService_Gestures(t *testing.T) {
	f := newSessionFixture()
	f.tap(t, "1", "2")

	res := f.session.MarkStart("")
	if !res.Changed || res.Notice == nil || res.Notice.Message != "Hold 2 marked as Start" {
		t.Fatalf("expected selection marked as start, got %+v", res)
	}

	res = f.session.MarkFinish("2")
	if !res.Changed {
		t.Fatal("expected mark finish to apply")
	}
	b := res.Session.Boulder
	if len(b.StartHolds) != 0 || len(b.FinishHolds) != 1 {
		t.Errorf("expected start and finish to be exclusive, got start=%v finish=%v", b.StartHolds, b.FinishHolds)
	}

	res = f.session.MarkStart("4")
	if res.Changed {
		t.Error("marking a hold outside the sequence must change nothing")
	}

	res = f.session.RemoveHold("1")
	if !res.Changed {
		t.Fatal("expected remove to apply")
	}
	if len(res.Session.Holds) != 1 || res.Session.Holds[0].HoldID != "2" || res.Session.Holds[0].MoveNumber != 1 {
		t.Errorf("expected hold 2 renumbered to 1, got %+v", res.Session.Holds)
	}
}

func TestSessionService_SaveValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func(*testing.T, *sessionFixture)
		want  *domain.ValidationError
	}{
		{"empty", func(*testing.T, *sessionFixture) {}, domain.ErrEmptySequence},
		{"no start", func(t *testing.T, f *sessionFixture) { f.tap(t, "1") }, domain.ErrMissingStart},
		{"no finish", func(t *testing.T, f *sessionFixture) {
			f.tap(t, "1")
			f.session.MarkStart("1")
		}, domain.ErrMissingFinish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture()
			tt.build(t, f)

			_, err := f.session.Save(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.collection.Len() != 0 {
				t.Error("an invalid boulder must not be stored")
			}
		})
	}
}

func TestSessionService_SaveThenUpdate(t *testing.T) {
	f := newSessionFixture()
	f.buildValid(t)

	res, err := f.session.Save(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	name := res.Session.Boulder.Name
	if !strings.HasPrefix(name, "Unnamed ") {
		t.Errorf("expected default name, got %q", name)
	}
	if res.Notice == nil || res.Notice.Level != domain.NoticeSuccess || !strings.HasSuffix(res.Notice.Message, "saved.") {
		t.Errorf("expected saved notice, got %+v", res.Notice)
	}
	if !res.Session.Stored {
		t.Error("expected the working boulder to be marked stored")
	}

	newName := "Crimp Line"
	f.session.UpdateMetadata(&domain.UpdateMetadataRequest{Name: &newName})
	res, err = f.session.Save(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Notice.Message != `Boulder "Crimp Line" updated.` {
		t.Errorf("expected updated notice, got %q", res.Notice.Message)
	}
	if f.collection.Len() != 1 {
		t.Errorf("expected one stored boulder, got %d", f.collection.Len())
	}
	if f.bc.count(websocket.TypeCollectionChanged) != 2 {
		t.Errorf("expected two collection broadcasts, got %v", f.bc.types())
	}
}

func TestSessionService_SaveStorageFailure(t *testing.T) {
	f := newSessionFixture()
	f.store.failErr = errDiskFull
	f.buildValid(t)

	res, err := f.session.Save(context.Background())
	if err != nil {
		t.Fatalf("a storage failure must not fail the save, got %v", err)
	}
	if res.Notice == nil || res.Notice.Level != domain.NoticeWarning {
		t.Errorf("expected warning notice, got %+v", res.Notice)
	}
	if f.collection.Len() != 1 {
		t.Error("expected the boulder to be kept in memory")
	}
}

func TestSessionService_SaveWithoutCatalogue(t *testing.T) {
	f := newSessionFixture()
	f.buildValid(t)
	f.holds.cat = nil

	_, err := f.session.Save(context.Background())
	if !errors.Is(err, domain.ErrCatalogueNotLoaded) {
		t.Errorf("expected ErrCatalogueNotLoaded, got %v", err)
	}
}

func TestSessionService_LoadEditsPrivateCopy(t *testing.T) {
	f := newSessionFixture()
	f.collection.SaveOrReplace(context.Background(), storedBoulder("b-1", "Stored", testNow, "1", "2"))

	res, err := f.session.LoadBoulder("b-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Notice == nil || res.Notice.Message != "Loaded: Stored" {
		t.Errorf("unexpected notice %+v", res.Notice)
	}

	f.tap(t, "3")
	stored, _ := f.collection.Get("b-1")
	if len(stored.Moves) != 2 {
		t.Errorf("editing must not touch the stored boulder until saved, got %d moves", len(stored.Moves))
	}

	if _, err := f.session.LoadBoulder("missing"); !errors.Is(err, domain.ErrBoulderNotFound) {
		t.Errorf("expected ErrBoulderNotFound, got %v", err)
	}
}

func TestSessionService_DeleteCurrentStartsOver(t *testing.T) {
	f := newSessionFixture()
	f.buildValid(t)
	res, _ := f.session.Save(context.Background())
	savedID := res.Session.Boulder.ID

	res, err := f.session.DeleteBoulder(context.Background(), savedID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Session.Boulder.ID == savedID {
		t.Error("expected a new working boulder after deleting the current one")
	}
	if len(res.Session.Holds) != 0 || res.Session.SelectedHoldID != nil {
		t.Errorf("expected an empty session, got %+v", res.Session)
	}

	res, err = f.session.DeleteBoulder(context.Background(), "missing")
	if err != nil || res.Changed {
		t.Errorf("expected no-op delete, got changed=%v err=%v", res.Changed, err)
	}
}

func TestSessionService_DeleteOtherKeepsSession(t *testing.T) {
	f := newSessionFixture()
	f.collection.SaveOrReplace(context.Background(), storedBoulder("b-other", "Other", testNow, "1"))
	f.tap(t, "2")
	current := f.session.Snapshot().Boulder.ID

	res, err := f.session.DeleteBoulder(context.Background(), "b-other")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Session.Boulder.ID != current || len(res.Session.Holds) != 1 {
		t.Error("deleting another boulder must keep the working copy")
	}
	if res.Notice == nil || res.Notice.Message != `Boulder "Other" deleted.` {
		t.Errorf("unexpected notice %+v", res.Notice)
	}
}

const importDoc = `{
  "wall_info": {"dimensions": {"width": 1000, "height": 750}},
  "boulders": [
    {"id": "b-a", "name": "A", "grade": "V1", "style": "Slab", "description": "",
     "ordered_holds": ["1", "2"], "start_holds": ["1"], "finish_holds": ["2"]},
    {"id": "b-b", "name": "B", "ordered_holds": "oops", "start_holds": [], "finish_holds": []}
  ]
}`

func TestSessionService_ImportExport(t *testing.T) {
	f := newSessionFixture()

	if _, err := f.session.Export(); !errors.Is(err, ErrExportEmpty) {
		t.Errorf("expected ErrExportEmpty, got %v", err)
	}

	result, notice, err := f.session.Import(context.Background(), strings.NewReader(importDoc))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.ImportedCount != 1 || result.SkippedCount != 1 {
		t.Errorf("expected 1 imported 1 skipped, got %+v", result)
	}
	if notice.Message != "Imported 1 boulders. Skipped 1 (duplicates or invalid format)." {
		t.Errorf("unexpected notice %q", notice.Message)
	}

	again, _, err := f.session.Import(context.Background(), strings.NewReader(importDoc))
	if err != nil || again.ImportedCount != 0 {
		t.Errorf("expected idempotent import, got %+v err=%v", again, err)
	}

	file, err := f.session.Export()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if file.Filename != "boulder_export_2024-05-17.json" || file.Count != 1 {
		t.Errorf("unexpected export %s count %d", file.Filename, file.Count)
	}
	var doc domain.InterchangeFile
	if err := json.Unmarshal(file.Data, &doc); err != nil {
		t.Fatalf("expected valid export JSON, got %v", err)
	}
	if doc.WallInfo.Dimensions.Width != 1000 || len(doc.Boulders) != 1 {
		t.Errorf("unexpected export document %+v", doc)
	}
	got := doc.Boulders[0]
	if got.ID != "b-a" || len(got.OrderedHolds) != 2 || got.OrderedHolds[0] != "1" {
		t.Errorf("unexpected exported record %+v", got)
	}

	f.holds.cat = nil
	if _, err := f.session.Export(); !errors.Is(err, ErrExportNoCatalogue) {
		t.Errorf("expected ErrExportNoCatalogue, got %v", err)
	}
}

func TestSessionService_ImportInvalidFormat(t *testing.T) {
	f := newSessionFixture()

	_, _, err := f.session.Import(context.Background(), strings.NewReader(`[1, 2]`))
	if !errors.Is(err, domain.ErrInvalidImportFormat) {
		t.Errorf("expected ErrInvalidImportFormat, got %v", err)
	}
}

func TestSessionService_CatalogueChangedResets(t *testing.T) {
	f := newSessionFixture()
	f.tap(t, "1", "2")
	before := f.session.Snapshot().Boulder.ID

	f.session.CatalogueChanged(testCatalogue("a", "b"))

	snap := f.session.Snapshot()
	if len(snap.Holds) != 0 || snap.SelectedHoldID != nil {
		t.Errorf("expected a fresh session, got %+v", snap)
	}
	if snap.Boulder.ID == before {
		t.Error("expected a new boulder id")
	}
	if f.bc.count(websocket.TypeCatalogueLoaded) != 1 {
		t.Errorf("expected a catalogue broadcast, got %v", f.bc.types())
	}
}

// Saving a copy, then editing and saving again, never loses the first save's
// id and never duplicates the boulder.
func TestSessionService_EditSavedBoulder(t *testing.T) {
	f := newSessionFixture()
	f.buildValid(t)
	res, _ := f.session.Save(context.Background())
	id := res.Session.Boulder.ID

	f.session.NewBoulder()
	if _, err := f.session.LoadBoulder(id); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	f.tap(t, "4")
	if _, err := f.session.Save(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if f.collection.Len() != 1 {
		t.Fatalf("expected 1 boulder, got %d", f.collection.Len())
	}
	stored, _ := f.collection.Get(id)
	if len(stored.Moves) != 4 {
		t.Errorf("expected 4 moves after the update, got %d", len(stored.Moves))
	}
}
