package core

import (
	"errors"
	"testing"
)

func TestValidateHierarchy(t *testing.T) {
	tree := map[int64]Category{
		1: {ID: 1, UserID: 1, Name: "Home"},
		2: {ID: 2, UserID: 1, Name: "Utilities", ParentID: 1},
		3: {ID: 3, UserID: 1, Name: "Power", ParentID: 2},
		9: {ID: 9, UserID: 2, Name: "Foreign"},
	}
	lookup := func(id int64) (Category, bool) {
		c, ok := tree[id]
		return c, ok
	}

	if err := ValidateHierarchy(Category{UserID: 1, Name: "Water", ParentID: 2}, lookup); err != nil {
		t.Fatalf("new leaf should be valid, got %v", err)
	}

	// Re-parenting Home under Power closes a loop.
	if err := ValidateHierarchy(Category{ID: 1, UserID: 1, Name: "Home", ParentID: 3}, lookup); !errors.Is(err, ErrCategoryCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}

	if err := ValidateHierarchy(Category{ID: 4, UserID: 1, Name: "Self", ParentID: 4}, lookup); !errors.Is(err, ErrCategoryCycle) {
		t.Fatalf("expected self-parent cycle error, got %v", err)
	}

	if err := ValidateHierarchy(Category{UserID: 1, Name: "Orphan", ParentID: 77}, lookup); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing parent, got %v", err)
	}

	if err := ValidateHierarchy(Category{UserID: 1, Name: "Stolen", ParentID: 9}, lookup); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for another user's parent, got %v", err)
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Name: " "}).Validate(); !errors.Is(err, ErrEmptyCategoryName) {
		t.Fatalf("expected empty name error, got %v", err)
	}
}
