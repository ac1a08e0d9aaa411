package internal

type InputSource string

const (
	SourceText      InputSource = "text"
	SourceHTMLTable InputSource = "html_table"
	SourceXLSX      InputSource = "xlsx"
	SourcePDF       InputSource = "pdf"
)

// TokenSet is the normalized attribute set extracted from one order line,
// either by the rule-based parser or by the NLP oracle. Units are stripped
// from Diameter and Length at extraction time ("40 мм" is stored as "40").
type TokenSet struct {
	Type       *string  `json:"type"`
	Subtype    *string  `json:"subtype,omitempty"`
	Diameter   *string  `json:"diameter"`
	Length     *string  `json:"length"`
	Material   *string  `json:"material"`
	Coating    *string  `json:"coating"`
	Standard   *string  `json:"standard"`
	Grade      *string  `json:"grade,omitempty"`
	Quantity   *float64 `json:"quantity"`
	Confidence float64  `json:"confidence"`
}

// OrderLine is one detected line of a multi-item order. Position is 1-based
// and stable for the lifetime of the request.
type OrderLine struct {
	Position          int
	RawText           string
	Source            InputSource
	Tokens            TokenSet
	RequestedQuantity float64
}

type ItemAttributes struct {
	Diameter *string `json:"diameter,omitempty"`
	Length   *string `json:"length,omitempty"`
	Material *string `json:"material,omitempty"`
	Coating  *string `json:"coating,omitempty"`
	Standard *string `json:"standard,omitempty"`
}

// CatalogItem is a single SKU row of the catalog. Read-only to the matching
// core; writes belong to the import tooling.
type CatalogItem struct {
	SKU      string
	Name     string
	PackSize float64
	Unit     string
	Price    *float64
	IsActive bool
	Attrs    ItemAttributes
	RawJSON  string
}

// AliasEntry maps a known exact-text synonym to a SKU.
type AliasEntry struct {
	Alias string
	SKU   string
}

type CandidateSource string

const (
	CandidateRules    CandidateSource = "rules"
	CandidateFuzzy    CandidateSource = "fuzzy"
	CandidateExternal CandidateSource = "external"
)

// Candidate is one catalog item proposed for an order line, with the fuzzy
// retrieval score in [0,1]. The 0-100 ranking probability is computed later.
type Candidate struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	PackSize    float64         `json:"packSize"`
	Unit        string          `json:"unit"`
	Price       *float64        `json:"price"`
	Score       float64         `json:"score"`
	Explanation string          `json:"explanation"`
	Source      CandidateSource `json:"source"`
}

type ValidationStatus string

const (
	StatusApproved           ValidationStatus = "APPROVED"
	StatusNeedsRefinement    ValidationStatus = "NEEDS_REFINEMENT"
	StatusNeedsClarification ValidationStatus = "NEEDS_CLARIFICATION"
	StatusError              ValidationStatus = "ERROR"
)

// Sentinel values for lines that matched nothing in the catalog. The line is
// still reported, never dropped.
const (
	NotFoundSKU  = "НЕ НАЙДЕНО"
	NotFoundName = "Деталь не найдена в каталоге"
)

// RankedResult is the terminal per-line entity consumed by the report
// renderer. Exactly one RankedResult exists per OrderLine.Position.
type RankedResult struct {
	Line               OrderLine
	SearchQuery        string
	Chosen             *Candidate
	ProbabilityPercent int
	MatchReason        string
	Explanation        string
	Status             ValidationStatus
	Candidates         []Candidate
	Clarification      *string
}

// ReportRow is the row schema handed to the spreadsheet renderer. The
// renderer may add presentation columns but must not alter these values.
type ReportRow struct {
	OrderPosition      int
	SearchQuery        string
	FullQuery          string
	RequestedQuantity  float64
	SKU                string
	Name               string
	PackSize           float64
	Unit               string
	ProbabilityPercent int
	MatchReason        string
	Status             string
}

// RequestRow is a stored processing request, one per incoming order message
// or document.
type RequestRow struct {
	ID        int
	TraceID   string
	Source    string
	RawText   string
	Status    string
	CreatedAt string
}
