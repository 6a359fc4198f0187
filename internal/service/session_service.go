package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/domain"
	"boulder-editor/internal/editor"
	"boulder-editor/internal/interchange"
	"boulder-editor/internal/metrics"
	"boulder-editor/internal/websocket"
)

// Broadcaster pushes state changes to connected clients.
type Broadcaster interface {
	Broadcast(msg *websocket.Message) error
}

// SessionService is the single editing session: the working boulder, its
// selection and the gestures that change them, plus the save, load, delete,
// import and export flows that cross into the collection. Every call runs
// to completion under one lock.
type SessionService struct {
	mu          sync.Mutex
	editor      *editor.Editor
	holds       editor.HoldSource
	collection  *CollectionService
	broadcaster Broadcaster
	now         func() time.Time
}

type SessionOption func(*SessionService)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

func NewSessionService(holds editor.HoldSource, collection *CollectionService, broadcaster Broadcaster, opts ...SessionOption) *SessionService {
	s := &SessionService{
		holds:       holds,
		collection:  collection,
		broadcaster: broadcaster,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.editor = editor.New(holds, editor.WithClock(func() time.Time { return s.now() }))
	return s
}

func (s *SessionService) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *SessionService) NewBoulder() domain.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.editor.CreateNew()
	logrus.WithField("boulder_id", b.ID).Debug("Started new boulder")
	return s.changed(nil)
}

func (s *SessionService) TapHold(id domain.HoldID) (domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.editor.ToggleHold(id)
	if err != nil {
		return domain.SessionResult{}, err
	}
	logrus.WithFields(logrus.Fields{
		"hold_id":  id,
		"selected": res.Selected,
		"added":    res.Added,
		"move":     res.MoveNumber,
	}).Debug("Hold tapped")
	return s.changed(nil), nil
}

// MarkStart, MarkFinish and RemoveHold act on the selection when id is empty.
// A gesture that does not apply changes nothing and reports Changed false.
func (s *SessionService) MarkStart(id domain.HoldID) domain.SessionResult {
	return s.gesture(id, s.editor.MarkStart, "Hold %s marked as Start")
}

func (s *SessionService) MarkFinish(id domain.HoldID) domain.SessionResult {
	return s.gesture(id, s.editor.MarkFinish, "Hold %s marked as Finish")
}

func (s *SessionService) RemoveHold(id domain.HoldID) domain.SessionResult {
	return s.gesture(id, s.editor.RemoveHold, "Hold %s removed from boulder")
}

func (s *SessionService) gesture(id domain.HoldID, apply func(domain.HoldID) bool, notice string) domain.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := id
	if target == "" {
		target, _ = s.editor.Selection()
	}
	if !apply(id) {
		return domain.SessionResult{Session: s.snapshot()}
	}
	return s.changed(domain.NewNotice(domain.NoticeInfo, notice, target))
}

func (s *SessionService) UpdateMetadata(req *domain.UpdateMetadataRequest) domain.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.editor.UpdateMetadata(req)
	return s.changed(nil)
}

// Validate reports why the working boulder cannot be saved, or nil.
func (s *SessionService) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.ValidateForSave()
}

// Save validates the working boulder and stores a copy of it. A storage
// failure is not an error: the boulder is kept in memory and the result
// carries a warning notice.
func (s *SessionService) Save(ctx context.Context) (domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holds.Catalogue() == nil {
		return domain.SessionResult{}, fmt.Errorf("%w: %w", domain.ErrNoActiveBoulder, domain.ErrCatalogueNotLoaded)
	}

	b, err := s.editor.PrepareForSave()
	if err != nil {
		if ve, ok := domain.AsValidationError(err); ok {
			metrics.SaveValidationFailures.WithLabelValues(ve.Code).Inc()
		}
		return domain.SessionResult{}, err
	}

	replaced, err := s.collection.SaveOrReplace(ctx, b)
	var notice *domain.Notice
	switch {
	case err != nil:
		notice = domain.NewNotice(domain.NoticeWarning, "%s", domain.ErrStorageWrite.Error())
	case replaced:
		notice = domain.NewNotice(domain.NoticeSuccess, "Boulder %q updated.", b.Name)
	default:
		notice = domain.NewNotice(domain.NoticeSuccess, "Boulder %q saved.", b.Name)
	}

	res := s.changed(notice)
	s.broadcastCollection()
	return res, nil
}

// LoadBoulder makes a private copy of a stored boulder the working copy.
func (s *SessionService) LoadBoulder(id string) (domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holds.Catalogue() == nil {
		return domain.SessionResult{}, domain.ErrCatalogueNotLoaded
	}
	b, err := s.collection.Get(id)
	if err != nil {
		return domain.SessionResult{}, err
	}
	s.editor.LoadForEditing(b)
	return s.changed(domain.NewNotice(domain.NoticeInfo, "Loaded: %s", b.Name)), nil
}

// DeleteBoulder removes a stored boulder. When it is the one being edited the
// session starts over with a new boulder, so the working copy never refers
// to a deleted id.
func (s *SessionService) DeleteBoulder(ctx context.Context, id string) (domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.collection.Get(id)
	if errors.Is(err, domain.ErrBoulderNotFound) {
		return domain.SessionResult{Session: s.snapshot()}, nil
	}
	if err != nil {
		return domain.SessionResult{}, err
	}

	_, err = s.collection.Delete(ctx, id)
	if s.editor.CurrentID() == id {
		s.editor.CreateNew()
	}

	name := b.Name
	if name == "" {
		name = "Unnamed Boulder"
	}
	notice := domain.NewNotice(domain.NoticeSuccess, "Boulder %q deleted.", name)
	if err != nil {
		notice = domain.NewNotice(domain.NoticeWarning, "%s", domain.ErrStorageWrite.Error())
	}

	res := s.changed(notice)
	s.broadcastCollection()
	return res, nil
}

// Import merges an interchange document into the collection. Only a document
// without a boulders array is an error; bad records are counted as skipped.
func (s *SessionService) Import(ctx context.Context, r io.Reader) (domain.ImportResult, *domain.Notice, error) {
	records, err := interchange.DecodeFile(r)
	if err != nil {
		logrus.WithError(err).Warn("Rejected import file")
		return domain.ImportResult{}, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.collection.MergeImport(ctx, records)
	notice := domain.NewNotice(domain.NoticeSuccess,
		"Imported %d boulders. Skipped %d (duplicates or invalid format).",
		result.ImportedCount, result.SkippedCount)
	if err != nil {
		notice = domain.NewNotice(domain.NoticeWarning, "%s %s", notice.Message, domain.ErrStorageWrite.Error())
	}

	s.broadcast(websocket.TypeNotice, notice)
	if result.ImportedCount > 0 {
		s.broadcastSession()
		s.broadcastCollection()
	}
	return result, notice, nil
}

// ExportedFile is an export document ready to be written out.
type ExportedFile struct {
	Filename string
	Data     []byte
	Count    int
}

// Export renders every stored boulder as an interchange document. It needs
// the wall dimensions from the catalogue and at least one stored boulder.
func (s *SessionService) Export() (*ExportedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat := s.holds.Catalogue()
	if cat == nil {
		return nil, ErrExportNoCatalogue
	}
	boulders := s.collection.All()
	if len(boulders) == 0 {
		return nil, ErrExportEmpty
	}

	var buf bytes.Buffer
	if err := interchange.EncodeFile(&buf, cat.ImageDimensions, boulders); err != nil {
		return nil, fmt.Errorf("failed to export boulders: %w", err)
	}
	logrus.WithField("count", len(boulders)).Info("Exported boulders")
	return &ExportedFile{
		Filename: interchange.ExportFilename(s.now()),
		Data:     buf.Bytes(),
		Count:    len(boulders),
	}, nil
}

// CatalogueChanged starts a fresh boulder because hold ids may have changed.
// Register it with the catalogue provider.
func (s *SessionService) CatalogueChanged(cat *domain.Catalogue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.CatalogueLoads.WithLabelValues("ok").Inc()
	s.editor.CreateNew()
	s.broadcast(websocket.TypeCatalogueLoaded, cat.ToResponse())
	s.broadcastSession()
}

func (s *SessionService) snapshot() domain.SessionSnapshot {
	snap := s.editor.Snapshot()
	snap.Stored = s.collection.Contains(s.editor.CurrentID())
	return snap
}

// changed snapshots the session, pushes it to clients and wraps it in a
// result. The caller holds the lock.
func (s *SessionService) changed(notice *domain.Notice) domain.SessionResult {
	snap := s.snapshot()
	s.broadcast(websocket.TypeSessionState, snap)
	if notice != nil {
		s.broadcast(websocket.TypeNotice, notice)
	}
	return domain.SessionResult{Session: snap, Changed: true, Notice: notice}
}

func (s *SessionService) broadcastSession() {
	s.broadcast(websocket.TypeSessionState, s.snapshot())
}

func (s *SessionService) broadcastCollection() {
	s.broadcast(websocket.TypeCollectionChanged, s.collection.Summaries())
}

func (s *SessionService) broadcast(msgType websocket.MessageType, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		logrus.WithField("type", msgType).WithError(err).Error("Failed to encode broadcast")
		return
	}
	if err := s.broadcaster.Broadcast(msg); err != nil {
		logrus.WithField("type", msgType).WithError(err).Warn("Failed to broadcast")
	}
}
