package interchange

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/domain"
)

// MergeResult is the outcome of folding an import batch into a collection.
type MergeResult struct {
	Accepted      []*domain.Boulder
	ImportedCount int
	SkippedCount  int
}

// MergeImport decides which records of a batch may enter a collection that
// already holds existingIDs. A record is skipped when it is malformed or its
// id is already taken, counting ids accepted earlier in the same batch, so
// importing the same file twice accepts nothing the second time.
//
// existingIDs is not modified.
func MergeImport(existingIDs map[string]struct{}, records []json.RawMessage, now time.Time) MergeResult {
	seen := make(map[string]struct{}, len(existingIDs)+len(records))
	for id := range existingIDs {
		seen[id] = struct{}{}
	}

	res := MergeResult{Accepted: []*domain.Boulder{}}
	for i, raw := range records {
		b, err := FromInterchange(raw, now)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"index": i,
				"error": err,
			}).Warn("Skipping invalid boulder structure during import")
			res.SkippedCount++
			continue
		}
		if _, dup := seen[b.ID]; dup {
			logrus.WithField("boulder_id", b.ID).Debug("Skipping duplicate boulder during import")
			res.SkippedCount++
			continue
		}
		seen[b.ID] = struct{}{}
		res.Accepted = append(res.Accepted, b)
		res.ImportedCount++
	}
	return res
}
