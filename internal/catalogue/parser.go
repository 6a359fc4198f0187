// Package catalogue loads the hold library of a wall and keeps the active
// copy available to the editor.
package catalogue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/domain"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600

	minSegmentationPoints = 3
)

type wireCatalogue struct {
	ImageDimensions json.RawMessage `json:"image_dimensions"`
	Holds           json.RawMessage `json:"holds"`
}

type wireHold struct {
	ID           json.RawMessage    `json:"id"`
	HoldType     string             `json:"hold_type"`
	Segmentation json.RawMessage    `json:"segmentation"`
	BoundingBox  domain.BoundingBox `json:"bounding_box"`
}

// Parse decodes a catalogue document. A missing image_dimensions or a holds
// field that is not an array rejects the whole document; a hold with bad
// geometry is skipped and reported in SkippedHolds.
func Parse(r io.Reader) (*domain.Catalogue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read holds data: %w", err)
	}

	var w wireCatalogue
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalogue, err)
	}
	if !isObject(w.ImageDimensions) || !isArray(w.Holds) {
		return nil, domain.ErrInvalidCatalogue
	}

	var dims domain.ImageDimensions
	if err := json.Unmarshal(w.ImageDimensions, &dims); err != nil {
		return nil, fmt.Errorf("%w: image_dimensions: %v", domain.ErrInvalidCatalogue, err)
	}
	if dims.Width <= 0 {
		dims.Width = DefaultWidth
	}
	if dims.Height <= 0 {
		dims.Height = DefaultHeight
	}

	var rawHolds []json.RawMessage
	if err := json.Unmarshal(w.Holds, &rawHolds); err != nil {
		return nil, fmt.Errorf("%w: holds: %v", domain.ErrInvalidCatalogue, err)
	}

	holds := make([]domain.Hold, 0, len(rawHolds))
	skipped := []string{}
	for i, raw := range rawHolds {
		h, err := parseHold(raw)
		if err != nil {
			label := holdLabel(raw, i)
			logrus.WithFields(logrus.Fields{
				"hold_id": label,
				"error":   err,
			}).Warn("Skipping hold with invalid data")
			skipped = append(skipped, label)
			continue
		}
		holds = append(holds, h)
	}

	return domain.NewCatalogue(dims, holds, skipped), nil
}

func parseHold(raw json.RawMessage) (domain.Hold, error) {
	var w wireHold
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Hold{}, err
	}
	var id domain.HoldID
	if err := json.Unmarshal(w.ID, &id); err != nil || id == "" {
		return domain.Hold{}, fmt.Errorf("missing hold id")
	}
	points, err := parseSegmentation(w.Segmentation)
	if err != nil {
		return domain.Hold{}, fmt.Errorf("invalid segmentation data for hold %s: %w", id, err)
	}
	return domain.Hold{
		ID:           id,
		HoldType:     w.HoldType,
		Segmentation: points,
		BoundingBox:  w.BoundingBox,
	}, nil
}

func parseSegmentation(raw json.RawMessage) ([]domain.Point, error) {
	if !isArray(raw) {
		return nil, fmt.Errorf("not an array")
	}
	var pts [][]float64
	if err := json.Unmarshal(raw, &pts); err != nil {
		return nil, fmt.Errorf("invalid point format")
	}
	if len(pts) < minSegmentationPoints {
		return nil, fmt.Errorf("need at least %d points, got %d", minSegmentationPoints, len(pts))
	}
	out := make([]domain.Point, len(pts))
	for i, p := range pts {
		if len(p) != 2 {
			return nil, fmt.Errorf("invalid point format at index %d", i)
		}
		out[i] = domain.Point{p[0], p[1]}
	}
	return out, nil
}

// holdLabel names a rejected hold for the skip report, falling back to its
// position when the id itself is unusable.
func holdLabel(raw json.RawMessage, index int) string {
	var w struct {
		ID domain.HoldID `json:"id"`
	}
	if json.Unmarshal(raw, &w) == nil && w.ID != "" {
		return string(w.ID)
	}
	return "#" + strconv.Itoa(index)
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
