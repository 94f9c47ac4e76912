package services

import (
	"context"
	"fmt"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/validate"
)

type CategoryService struct {
	Cats    *repos.CategoryRepo
	Catalog *CatalogService
}

func NewCategoryService(cats *repos.CategoryRepo, catalog *CatalogService) *CategoryService {
	return &CategoryService{Cats: cats, Catalog: catalog}
}

// CategoryForm is the admin create/edit form. An empty slug is derived from the name.
type CategoryForm struct {
	Name      string `form:"name" validate:"required,max=120"`
	Slug      string `form:"slug" validate:"omitempty,slug,max=80"`
	ParentID  int64  `form:"parent_id" validate:"gte=0"`
	SortOrder int    `form:"sort_order" validate:"gte=0,lte=1000"`
}

func (f CategoryForm) category() (domain.Category, error) {
	if f.Slug == "" {
		f.Slug = validate.Slugify(f.Name)
	}
	if err := validate.Struct(f); err != nil {
		return domain.Category{}, err
	}
	if f.Slug == "" {
		return domain.Category{}, fmt.Errorf("%w: name has no usable characters", domain.ErrInvalidInput)
	}
	return domain.Category{ParentID: f.ParentID, Slug: f.Slug, Name: f.Name, SortOrder: f.SortOrder}, nil
}

func (s *CategoryService) Create(ctx context.Context, f CategoryForm) (int64, error) {
	c, err := f.category()
	if err != nil {
		return 0, err
	}
	if c.ParentID != 0 {
		if _, err := s.Cats.ByID(ctx, c.ParentID); err != nil {
			return 0, fmt.Errorf("parent %d: %w", c.ParentID, err)
		}
	}
	id, err := s.Cats.Create(ctx, c)
	if err != nil {
		return 0, err
	}
	s.Catalog.TreeChanged(ctx)
	return id, nil
}

// Update rejects moving a category under itself or any of its descendants.
func (s *CategoryService) Update(ctx context.Context, id int64, f CategoryForm) error {
	c, err := f.category()
	if err != nil {
		return err
	}
	c.ID = id
	if c.ParentID != 0 {
		if c.ParentID == id {
			return fmt.Errorf("%w: a category cannot be its own parent", domain.ErrInvalidInput)
		}
		tree, err := s.Catalog.Tree(ctx)
		if err != nil {
			return err
		}
		if _, ok := tree.ByID(c.ParentID); !ok {
			return fmt.Errorf("parent %d: %w", c.ParentID, domain.ErrNotFound)
		}
		for _, d := range tree.Descendants(id) {
			if d == c.ParentID {
				return fmt.Errorf("%w: parent is inside this category", domain.ErrInvalidInput)
			}
		}
	}
	if err := s.Cats.Update(ctx, c); err != nil {
		return err
	}
	s.Catalog.TreeChanged(ctx)
	return nil
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.Cats.Delete(ctx, id); err != nil {
		return err
	}
	s.Catalog.TreeChanged(ctx)
	return nil
}
