package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"expenses/internal/core"
	"expenses/internal/ledger"
	applog "expenses/internal/log"
)

// CategoryNode is one category with its children, for tree rendering.
type CategoryNode struct {
	Category core.Category
	Children []*CategoryNode
}

type CategoryService struct {
	store ledger.CategoryStore
}

func NewCategoryService(store ledger.CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = 0
	if err := s.validate(ctx, c); err != nil {
		return core.Category{}, err
	}
	saved, err := s.store.SaveCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	slog.InfoContext(ctx, "Category created",
		applog.FieldCategoryID, saved.ID,
		applog.FieldUserID, saved.UserID,
		"parent_id", saved.ParentID)
	return saved, nil
}

// UpdateCategory renames or moves a category. Moving it below one of its own
// descendants is rejected as a cycle.
func (s *CategoryService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	existing, err := s.store.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	c.UserID = existing.UserID
	if err := s.validate(ctx, c); err != nil {
		return core.Category{}, err
	}
	saved, err := s.store.SaveCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return saved, nil
}

// DeleteCategory removes a category and attaches its children to its parent.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	all, err := s.store.ListCategories(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, child := range all {
		if child.ParentID != id {
			continue
		}
		child.ParentID = c.ParentID
		if _, err := s.store.SaveCategory(ctx, child); err != nil {
			return fmt.Errorf("reparent category %d: %w", child.ID, err)
		}
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

// Tree returns the user's categories as a forest, siblings sorted by name.
// A category whose parent is missing is shown as a root.
func (s *CategoryService) Tree(ctx context.Context, userID int64) ([]*CategoryNode, error) {
	all, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	nodes := make(map[int64]*CategoryNode, len(all))
	for _, c := range all {
		nodes[c.ID] = &CategoryNode{Category: c}
	}

	var roots []*CategoryNode
	for _, c := range all {
		n := nodes[c.ID]
		if parent, ok := nodes[c.ParentID]; ok && c.ParentID != 0 {
			parent.Children = append(parent.Children, n)
			continue
		}
		roots = append(roots, n)
	}

	sortNodes(roots)
	return roots, nil
}

func sortNodes(nodes []*CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Category.Name < nodes[j].Category.Name
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// Descendants returns every category below id, breadth first.
func (s *CategoryService) Descendants(ctx context.Context, id int64) ([]core.Category, error) {
	root, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListCategories(ctx, root.UserID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	children := map[int64][]core.Category{}
	for _, c := range all {
		children[c.ParentID] = append(children[c.ParentID], c)
	}

	var out []core.Category
	seen := map[int64]bool{id: true}
	queue := []int64{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, c := range children[next] {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			queue = append(queue, c.ID)
		}
	}
	return out, nil
}

func (s *CategoryService) validate(ctx context.Context, c core.Category) error {
	if c.UserID <= 0 {
		return core.NewValidationError("user_id", fmt.Errorf("must be positive, got %d", c.UserID))
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ParentID == 0 {
		return nil
	}
	all, err := s.store.ListCategories(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	byID := make(map[int64]core.Category, len(all))
	for _, existing := range all {
		byID[existing.ID] = existing
	}
	return core.ValidateHierarchy(c, func(id int64) (core.Category, bool) {
		found, ok := byID[id]
		return found, ok
	})
}
