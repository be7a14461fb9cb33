package models

// RetrievedDocument is a Content Store match handed to the answer generator.
type RetrievedDocument struct {
	Content  string            `json:"content"`
	URL      string            `json:"url"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Record is one chunk of site content as written by ingestion.
type Record struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata"`
}

// URL returns the record's source URL metadata, or "" when absent.
func (r Record) URL() string {
	return r.Metadata["url"]
}
