// Package dataset turns raw harvested listing pages into the SQLite
// dataset the predictor's filter options are served from: extraction of
// embedded listing fragments, cleaning, tax normalization, deduplication
// and the join against per-source vehicle metadata.
package dataset

// RawListing carries the field values pulled out of a single listing
// fragment, untyped. Cleaning parses and drops what does not convert.
type RawListing struct {
	Title          string
	Year           string
	KM             string
	FuelTypeID     string
	IsProfessional string
	MainProvince   string
	HasWarranty    string
	WarrantyMonths string
	IncludesTaxes  string
	Price          string

	// SourceFolder names the harvest folder the page came from. It is
	// the join key against source metadata.
	SourceFolder string
}

// Listing is a cleaned dataset row.
type Listing struct {
	Title          string
	Year           int
	KM             int
	FuelType       string
	MainProvince   string
	HasWarranty    bool
	WarrantyMonths int
	IsProfessional bool
	IncludesTaxes  bool
	Price          float64
	AdjustedPrice  float64
	CV             float64
	Age            int
	SourceFolder   string

	// Filled by the metadata join.
	Brand    string
	Model    string
	Segment  string
	BodyType string
}

// Meta is the per-source vehicle identity joined onto cleaned rows,
// keyed by destination folder.
type Meta struct {
	Brand    string
	Model    string
	Segment  string
	BodyType string
}
