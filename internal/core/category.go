package core

import "strings"

// Category is a node of a user's category tree. Parent links are ids only;
// children are derived by scanning, never stored on the node.
type Category struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	ParentID    int64 // 0 for a root category
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", ErrEmptyCategoryName)
	}
	return nil
}

// ValidateHierarchy walks the parent chain of c and rejects it if c itself
// reappears or the chain loops. lookup resolves existing categories by id.
func ValidateHierarchy(c Category, lookup func(id int64) (Category, bool)) error {
	seen := map[int64]bool{}
	if c.ID != 0 {
		seen[c.ID] = true
	}
	parentID := c.ParentID
	for parentID != 0 {
		if seen[parentID] {
			return invalid("parent_id", ErrCategoryCycle)
		}
		seen[parentID] = true
		parent, ok := lookup(parentID)
		if !ok {
			return NotFound("category", parentID)
		}
		if c.UserID != 0 && parent.UserID != c.UserID {
			return NotFound("category", parentID)
		}
		parentID = parent.ParentID
	}
	return nil
}
