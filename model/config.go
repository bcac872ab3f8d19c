package model

import "time"

// FusionWeight holds the per-type weighting of the two retrieval paths
type FusionWeight struct {
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
}

// DosageGuideline is one row of the configured dosage reference table. It
// drives both the structured DOSAGE lookup and the safe-range validation.
type DosageGuideline struct {
	Medication string  `json:"medication"` // matched case-insensitively
	Indication string  `json:"indication,omitempty"`
	Dose       float64 `json:"dose"`
	Unit       string  `json:"unit"` // mg, mcg, g, units, meq
	Route      string  `json:"route"`
	Frequency  string  `json:"frequency"`
	MinDose    float64 `json:"min_dose"`
	MaxDose    float64 `json:"max_dose"`
	Source     string  `json:"source"` // filename of the backing document
}

// PipelineConfig represents configuration for the query pipeline. All
// threshold constants are empirically chosen and overridable; the defaults
// preserve the values the pipeline was tuned with.
type PipelineConfig struct {
	// Classification
	RuleConfidenceThreshold float64       `json:"rule_confidence_threshold"` // accept a rule match without the LLM above this
	FallbackConfidence      float64       `json:"fallback_confidence"`       // confidence when defaulting to SUMMARY
	ClassifyTimeout         time.Duration `json:"classify_timeout"`

	// Curated fact matching
	CuratedThreshold       float64 `json:"curated_threshold"`        // token-overlap acceptance threshold
	CuratedConfidenceBase  float64 `json:"curated_confidence_base"`  // confidence = base + score * slope
	CuratedConfidenceSlope float64 `json:"curated_confidence_slope"`
	RerouteMargin          float64 `json:"reroute_margin"` // curated score must beat classification confidence by this to re-route

	// Retrieval
	TopK                int                        `json:"top_k"`
	SimilarityThreshold float64                    `json:"similarity_threshold"`
	FusionWeights       map[QueryType]FusionWeight `json:"fusion_weights"`
	RetrieveTimeout     time.Duration              `json:"retrieve_timeout"`

	// Synthesis
	SynthesizeTimeout time.Duration     `json:"synthesize_timeout"`
	MaxOutputTokens   map[QueryType]int `json:"max_output_tokens"`

	// Responses
	InsufficientMessage    string  `json:"insufficient_message"`
	InsufficientConfidence float64 `json:"insufficient_confidence"`
	DegradedConfidenceCap  float64 `json:"degraded_confidence_cap"` // ceiling after LLM fallback or dosage warning

	// Dosage safety
	DosageTable []DosageGuideline `json:"dosage_table,omitempty"`

	// Caching. A zero TTL means the type is never cached.
	CacheTTLs    map[QueryType]time.Duration `json:"cache_ttls"`
	CacheTimeout time.Duration               `json:"cache_timeout"`
}

// DefaultPipelineConfig returns the configuration the pipeline was tuned with
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RuleConfidenceThreshold: 0.9,
		FallbackConfidence:      0.25,
		ClassifyTimeout:         5 * time.Second,

		CuratedThreshold:       0.35,
		CuratedConfidenceBase:  0.6,
		CuratedConfidenceSlope: 0.4,
		RerouteMargin:          0.15,

		TopK:                5,
		SimilarityThreshold: 0.3,
		FusionWeights: map[QueryType]FusionWeight{
			QueryTypeContact:  {Lexical: 0.7, Semantic: 0.3},
			QueryTypeForm:     {Lexical: 0.8, Semantic: 0.2},
			QueryTypeProtocol: {Lexical: 0.6, Semantic: 0.4},
			QueryTypeCriteria: {Lexical: 0.3, Semantic: 0.7},
			QueryTypeDosage:   {Lexical: 0.6, Semantic: 0.4},
			QueryTypeSummary:  {Lexical: 0.2, Semantic: 0.8},
		},
		RetrieveTimeout: 5 * time.Second,

		SynthesizeTimeout: 30 * time.Second,
		MaxOutputTokens: map[QueryType]int{
			QueryTypeContact:  128,
			QueryTypeForm:     128,
			QueryTypeProtocol: 1024,
			QueryTypeCriteria: 512,
			QueryTypeDosage:   256,
			QueryTypeSummary:  1024,
		},

		InsufficientMessage:    "I don't have enough information in the reference documents to answer that question.",
		InsufficientConfidence: 0.2,
		DegradedConfidenceCap:  0.5,

		CacheTTLs: map[QueryType]time.Duration{
			QueryTypeContact:  0, // never cached, on-call schedules change
			QueryTypeForm:     0, // never cached, must resolve to the live registry
			QueryTypeProtocol: 24 * time.Hour,
			QueryTypeCriteria: 24 * time.Hour,
			QueryTypeDosage:   4 * time.Hour,
			QueryTypeSummary:  30 * time.Minute,
		},
		CacheTimeout: 2 * time.Second,
	}
}

// FusionWeightFor returns the fusion weights for a query type, falling back
// to an even split for unknown types
func (c *PipelineConfig) FusionWeightFor(t QueryType) FusionWeight {
	if w, ok := c.FusionWeights[t]; ok {
		return w
	}
	return FusionWeight{Lexical: 0.5, Semantic: 0.5}
}

// Cacheable reports whether responses of the given type may be cached
func (c *PipelineConfig) Cacheable(t QueryType) bool {
	return c.CacheTTLs[t] > 0
}
