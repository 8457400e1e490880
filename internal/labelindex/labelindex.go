// Package labelindex builds a transient, in-memory full-text index
// over stored labels so `list --grep` can filter records without
// touching the vector search path. It is rebuilt per invocation, the
// same rebuild-per-session posture as the LSH index.
package labelindex

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

type labelDoc struct {
	Label string `json:"label"`
}

// Match returns the set of labels (from labels) whose text contains
// pattern as a case-sensitive substring. An empty pattern matches
// every label.
func Match(labels []string, pattern string) (map[string]bool, error) {
	matched := make(map[string]bool, len(labels))
	if pattern == "" {
		for _, l := range labels {
			matched[l] = true
		}
		return matched, nil
	}

	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("build label index: %w", err)
	}
	defer idx.Close()

	for i, label := range labels {
		if err := idx.Index(strconv.Itoa(i), labelDoc{Label: label}); err != nil {
			return nil, fmt.Errorf("index label %q: %w", label, err)
		}
	}

	q := bleve.NewWildcardQuery("*" + pattern + "*")
	q.SetField("label")
	req := bleve.NewSearchRequest(q)
	req.Size = len(labels)
	if req.Size == 0 {
		req.Size = 1
	}

	result, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search labels: %w", err)
	}
	for _, hit := range result.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		matched[labels[i]] = true
	}
	return matched, nil
}

func buildMapping() mapping.IndexMapping {
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("label", keyword)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}
