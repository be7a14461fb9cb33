package milvus

import (
	"strings"
	"testing"

	"github.com/pario-ai/folio/pkg/models"
)

func TestSchema(t *testing.T) {
	sch := schema("portfolio", 1536)
	if sch.CollectionName != "portfolio" {
		t.Errorf("collection name = %s", sch.CollectionName)
	}
	if len(sch.Fields) != 5 {
		t.Fatalf("expected 5 fields, got %d", len(sch.Fields))
	}
	if !sch.Fields[0].PrimaryKey || sch.Fields[0].Name != fieldID {
		t.Errorf("first field should be the primary key, got %+v", sch.Fields[0])
	}
	if sch.Fields[4].TypeParams["dim"] != "1536" {
		t.Errorf("vector dim = %s, want 1536", sch.Fields[4].TypeParams["dim"])
	}
}

func TestColumns(t *testing.T) {
	records := []models.Record{
		{ID: "about-0", Text: "hello", Vector: []float32{1, 0}, Metadata: map[string]string{"url": "/about"}},
		{ID: "resume-0", Text: strings.Repeat("x", maxTextLength+10), Vector: []float32{0, 1}, Metadata: map[string]string{"url": "/resume"}},
	}
	cols, err := columns(records, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(cols))
	}
	for _, c := range cols {
		if c.Len() != 2 {
			t.Errorf("column %s has %d rows, want 2", c.Name(), c.Len())
		}
	}
	url, err := cols[2].GetAsString(1)
	if err != nil || url != "/resume" {
		t.Errorf("url column row 1 = %q, %v", url, err)
	}
	text, _ := cols[1].GetAsString(1)
	if len(text) != maxTextLength {
		t.Errorf("expected text truncated to %d, got %d", maxTextLength, len(text))
	}
}
