package keyword

import (
	"context"
	"errors"
	"testing"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
)

type mapFinder map[string]*models.Record

func (m mapFinder) FindByIDs(_ context.Context, ids []string) ([]*models.Record, error) {
	var out []*models.Record
	for _, id := range ids {
		if rec, ok := m[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestLookup(t *testing.T) {
	idx, err := NewMemoryBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	kept := &models.Record{ID: "kept", DistrictName: "Pune", ServiceType: "water", UserFeedback: "No water supply since Monday"}
	gone := &models.Record{ID: "gone", DistrictName: "Pune", ServiceType: "water", UserFeedback: "Water supply is dirty"}
	indexAll(t, idx, kept, gone)

	resp, err := Lookup(context.Background(), idx, mapFinder{"kept": kept}, &models.SearchQuery{Query: "supply"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("Total = %d, want 2", resp.Total)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].Record.ID != "kept" || resp.Hits[0].Rank != 1 {
		t.Errorf("hits = %+v", resp.Hits)
	}
	if resp.Query != "supply" {
		t.Errorf("Query = %q", resp.Query)
	}
}

func TestLookup_emptyQuery(t *testing.T) {
	idx, err := NewMemoryBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	_, err = Lookup(context.Background(), idx, mapFinder{}, &models.SearchQuery{Query: "  "})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
