package domain

// ConcentrationType is the fragrance strength category extracted from a product name
type ConcentrationType string

const (
	ConcentrationExtrait ConcentrationType = "extrait"
	ConcentrationEDP     ConcentrationType = "edp"
	ConcentrationEDT     ConcentrationType = "edt"
	ConcentrationEDC     ConcentrationType = "edc"
	ConcentrationUnknown ConcentrationType = ""
)

// Gender is the target gender extracted from a product name
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = ""
)

// ProductRecord is one row read from a merchant or competitor file.
// Immutable once read; derived attributes are computed, never stored by the source.
type ProductRecord struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`      // 0 = unknown
	ExternalID string  `json:"externalId"` // opaque, may be empty
	Catalog    string  `json:"catalog"`    // source catalog name
}

// Attributes is the tuple derived deterministically from a normalized name.
// Absence of a signal is the zero value, never a guess.
type Attributes struct {
	Brand  string            `json:"brand,omitempty"`
	SizeML float64           `json:"sizeMl,omitempty"`
	Type   ConcentrationType `json:"type,omitempty"`
	Gender Gender            `json:"gender,omitempty"`
}

// CandidateMatch is one scored competitor candidate for a merchant item.
// Ephemeral, produced per query, ranked descending by score.
type CandidateMatch struct {
	Record     ProductRecord `json:"record"`
	Score      float64       `json:"score"` // 0-100
	Competitor string        `json:"competitor"`
}
