package domain

import "time"

type InterchangeRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Grade        string   `json:"grade"`
	Style        string   `json:"style"`
	Description  string   `json:"description"`
	StartHolds   []HoldID `json:"start_holds"`
	FinishHolds  []HoldID `json:"finish_holds"`
	OrderedHolds []HoldID `json:"ordered_holds"`
	// CreatedAt is optional on import; files without it get the import time.
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type WallInfo struct {
	Dimensions ImageDimensions `json:"dimensions"`
}

type InterchangeFile struct {
	WallInfo WallInfo            `json:"wall_info"`
	Boulders []InterchangeRecord `json:"boulders"`
}

type ImportResult struct {
	ImportedCount int      `json:"imported_count"`
	SkippedCount  int      `json:"skipped_count"`
	ImportedIDs   []string `json:"imported_ids,omitempty"`
}
