package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// HoldID identifies a hold in the catalogue. Catalogues in the wild use both
// strings and integers, so decoding accepts either and keeps the text form.
type HoldID string

func (id *HoldID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("hold id: null")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = HoldID(s)
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("hold id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("hold id: not an integer: %s", n)
	}
	*id = HoldID(n.String())
	return nil
}

type HoldType string

const (
	HoldTypeJug    HoldType = "jug"
	HoldTypeCrimp  HoldType = "crimp"
	HoldTypeSloper HoldType = "sloper"
	HoldTypePinch  HoldType = "pinch"
	HoldTypeOther  HoldType = "other"
)

// NormalizeHoldType folds free-form catalogue tags onto the known types.
func NormalizeHoldType(raw string) HoldType {
	switch t := HoldType(strings.ToLower(strings.TrimSpace(raw))); t {
	case HoldTypeJug, HoldTypeCrimp, HoldTypeSloper, HoldTypePinch:
		return t
	default:
		return HoldTypeOther
	}
}

// Color is the display colour renderers use for the hold type.
func (t HoldType) Color() string {
	switch t {
	case HoldTypeJug:
		return "#4CAF50"
	case HoldTypeCrimp:
		return "#F44336"
	case HoldTypeSloper:
		return "#2196F3"
	case HoldTypePinch:
		return "#FF9800"
	default:
		return "#9C27B0"
	}
}

type Point [2]float64

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ImageDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Hold struct {
	ID           HoldID      `json:"id"`
	HoldType     string      `json:"hold_type"`
	Segmentation []Point     `json:"segmentation"`
	BoundingBox  BoundingBox `json:"bounding_box"`
}

func (h Hold) Type() HoldType {
	return NormalizeHoldType(h.HoldType)
}

// Catalogue is the immutable hold library of one wall. Build it with
// NewCatalogue and never mutate it afterwards.
type Catalogue struct {
	ImageDimensions ImageDimensions
	Holds           []Hold
	SkippedHolds    []string

	index map[HoldID]int
}

func NewCatalogue(dims ImageDimensions, holds []Hold, skipped []string) *Catalogue {
	c := &Catalogue{
		ImageDimensions: dims,
		Holds:           holds,
		SkippedHolds:    skipped,
		index:           make(map[HoldID]int, len(holds)),
	}
	for i, h := range holds {
		if _, dup := c.index[h.ID]; !dup {
			c.index[h.ID] = i
		}
	}
	return c
}

func (c *Catalogue) Has(id HoldID) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[id]
	return ok
}

func (c *Catalogue) Hold(id HoldID) (Hold, bool) {
	if c == nil {
		return Hold{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Hold{}, false
	}
	return c.Holds[i], true
}

func (c *Catalogue) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Holds)
}

type HoldResponse struct {
	ID          HoldID      `json:"id"`
	HoldType    HoldType    `json:"hold_type"`
	Color       string      `json:"color"`
	Points      []Point     `json:"segmentation"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

type CatalogueResponse struct {
	Loaded          bool            `json:"loaded"`
	ImageDimensions ImageDimensions `json:"image_dimensions"`
	Holds           []HoldResponse  `json:"holds"`
	SkippedHolds    []string        `json:"skipped_holds,omitempty"`
}

func (c *Catalogue) ToResponse() *CatalogueResponse {
	if c == nil {
		return &CatalogueResponse{Loaded: false, Holds: []HoldResponse{}}
	}
	holds := make([]HoldResponse, len(c.Holds))
	for i, h := range c.Holds {
		t := h.Type()
		holds[i] = HoldResponse{
			ID:          h.ID,
			HoldType:    t,
			Color:       t.Color(),
			Points:      h.Segmentation,
			BoundingBox: h.BoundingBox,
		}
	}
	return &CatalogueResponse{
		Loaded:          true,
		ImageDimensions: c.ImageDimensions,
		Holds:           holds,
		SkippedHolds:    c.SkippedHolds,
	}
}
