// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Record holds one harvested bibliographic item. The JSON keys are the
// on-disk corpus schema shared by the harvester and the annotator; files
// written by one are read back by the other.
type Record struct {
	// ScopusID is the stable unique identifier within one bucket file.
	ScopusID string `json:"Scopus_ID"`

	// Title is the article title.
	Title string `json:"Title"`

	// Abstract is the article abstract, or "N/A" when unavailable.
	Abstract string `json:"Abstract"`

	// Authors lists indexed author names in source order.
	Authors []string `json:"Authors"`

	// AffiliationName and AffiliationCountry describe the first listed
	// affiliation.
	AffiliationName    string `json:"Affiliation_Name"`
	AffiliationCountry string `json:"Affiliation_Country"`

	// PublicationDate is the cover date (YYYY-MM-DD).
	PublicationDate string `json:"Publication_Date"`

	// DOI is the document identifier, or "N/A".
	DOI string `json:"DOI"`

	// Keywords is the author keyword string, or "N/A".
	Keywords string `json:"Keywords"`

	// CitedByCount is the number of citing articles at harvest time.
	CitedByCount int `json:"Cited_By_Count"`

	// Source is the publication name.
	Source string `json:"Source"`

	// Citations lists citing-article summaries. Populated only when
	// CitedByCount is positive.
	Citations []Citation `json:"Citations"`

	// Score is the detector score. Nil until the annotator has
	// processed the record; a non-nil value short-circuits re-scoring.
	Score *float64 `json:"Score,omitempty"`

	// AccuracyPrediction and FPRPrediction are derived from Score by
	// thresholding: 0 means human-written, 1 means machine-generated.
	AccuracyPrediction *int `json:"Accuracy_Prediction,omitempty"`
	FPRPrediction      *int `json:"FPR_Prediction,omitempty"`
}

// Citation summarizes one citing article.
type Citation struct {
	CitingArticleScopusID    string `json:"Citing_Article_Scopus_ID"`
	CitingArticleURL         string `json:"Citing_Article_URL"`
	CitedDate                string `json:"Cited_Date"`
	CitingCitationCount      string `json:"Citing_Citation_Count"`
	CitingAffiliationCountry string `json:"Citing_Affiliation_Country"`
}

// NotAvailable is the sentinel the corpus schema uses for missing text
// fields. Records whose abstract equals it are never sent to the scorer.
const NotAvailable = "N/A"

// HasScore reports whether the record already carries a detector score.
func (r *Record) HasScore() bool {
	return r.Score != nil
}

// Scorable reports whether the record's abstract can be scored: present,
// non-empty, and not the N/A sentinel.
func (r *Record) Scorable() bool {
	return r.Abstract != "" && r.Abstract != NotAvailable
}
