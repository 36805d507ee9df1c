package fhir

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ehr/clinic/pkg/pagination"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// Identified is implemented by resources that can be placed in a bundle.
type Identified interface {
	FHIRType() string
	FHIRID() string
}

func (o *Observation) FHIRType() string { return o.ResourceType }
func (o *Observation) FHIRID() string   { return o.ID }

// NewSearchBundle creates a searchset Bundle, setting fullUrl on each entry
// and self/next/previous links from the page parameters.
func NewSearchBundle[T Identified](resources []T, total int, basePath, query string, page pagination.Params) (*Bundle, error) {
	now := time.Now().UTC()
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal %s/%s: %w", r.FHIRType(), r.FHIRID(), err)
		}
		entries = append(entries, BundleEntry{
			FullURL:  basePath + "/" + r.FHIRID(),
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		})
	}

	var links []BundleLink
	for _, l := range page.FHIRLinks(basePath, query, total) {
		links = append(links, BundleLink{Relation: l.Relation, URL: l.URL})
	}

	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Timestamp:    &now,
		Link:         links,
		Entry:        entries,
	}, nil
}
