package catalog

import (
	"errors"
	"math"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestNew_DropsDuplicatesAndEmptyTitles(t *testing.T) {
	c, dropped := New([]Title{
		{ID: 1, Title: "Inception"},
		{ID: 2, Title: "  "},
		{ID: 3, Title: "inception"},
		{ID: 4, Title: " Interstellar "},
	})

	if c.Len() != 2 {
		t.Fatalf("expected 2 titles, got %d", c.Len())
	}
	if dropped != 2 {
		t.Errorf("expected 2 dropped entries, got %d", dropped)
	}
	if c.At(0).ID != 1 {
		t.Errorf("expected first occurrence to win, got ID %d", c.At(0).ID)
	}
	if c.At(1).Title != "Interstellar" {
		t.Errorf("expected trimmed title, got %q", c.At(1).Title)
	}
}

func TestCatalog_Lookups(t *testing.T) {
	c, _ := New([]Title{
		{ID: 27205, Title: "Inception"},
		{ID: 157336, Title: "Interstellar"},
	})

	tests := []struct {
		name    string
		lookup  func() (Title, error)
		wantID  int64
		wantErr error
	}{
		{name: "by title exact", lookup: func() (Title, error) { return c.ByTitle("Inception") }, wantID: 27205},
		{name: "by title case-insensitive", lookup: func() (Title, error) { return c.ByTitle(" INTERSTELLAR ") }, wantID: 157336},
		{name: "by title missing", lookup: func() (Title, error) { return c.ByTitle("Tenet") }, wantErr: ErrTitleNotFound},
		{name: "by id", lookup: func() (Title, error) { return c.ByID(157336) }, wantID: 157336},
		{name: "by id missing", lookup: func() (Title, error) { return c.ByID(1) }, wantErr: ErrTitleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lookup()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("expected ID %d, got %d", tt.wantID, got.ID)
			}
		})
	}
}

func TestCatalog_NilIsEmpty(t *testing.T) {
	var c *Catalog
	if c.Len() != 0 {
		t.Error("expected nil catalog to be empty")
	}
	if _, err := c.ByTitle("x"); !errors.Is(err, ErrTitleNotFound) {
		t.Errorf("expected ErrTitleNotFound, got %v", err)
	}
	if _, err := c.ByID(1); !errors.Is(err, ErrTitleNotFound) {
		t.Errorf("expected ErrTitleNotFound, got %v", err)
	}
	if c.Titles() != nil {
		t.Error("expected nil titles")
	}
}

func TestCatalog_TitlesIsCopy(t *testing.T) {
	c, _ := New([]Title{{ID: 1, Title: "Up"}})
	titles := c.Titles()
	titles[0].Title = "Down"
	if c.At(0).Title != "Up" {
		t.Error("mutating Titles() result must not change the catalog")
	}
}

func TestTitle_PopularityValue(t *testing.T) {
	tests := []struct {
		name   string
		pop    *float64
		wantOK bool
	}{
		{name: "present", pop: ptr(12.5), wantOK: true},
		{name: "zero", pop: ptr(0.0), wantOK: true},
		{name: "missing", pop: nil, wantOK: false},
		{name: "nan", pop: ptr(math.NaN()), wantOK: false},
		{name: "negative", pop: ptr(-1.0), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Title{Popularity: tt.pop}.PopularityValue()
			if ok != tt.wantOK {
				t.Errorf("expected ok=%v, got %v", tt.wantOK, ok)
			}
		})
	}
}
