package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadline/internal/cache"
	"threadline/internal/domain"
	"threadline/internal/services"
)

func TestCategoryService_CreateDerivesSlug(t *testing.T) {
	catalogSvc, cats := newCatalog(t, cache.NewMemoryTreeCache(time.Minute))
	svc := services.NewCategoryService(cats, catalogSvc)
	ctx := context.Background()

	id, err := svc.Create(ctx, services.CategoryForm{Name: "Rain Jackets", ParentID: 1})
	require.NoError(t, err)

	c, err := cats.ByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "rain-jackets", c.Slug)

	tree, err := catalogSvc.Tree(ctx)
	require.NoError(t, err)
	_, ok := tree.BySlug("rain-jackets")
	assert.True(t, ok, "a write must not leave a stale cached tree")

	_, err = svc.Create(ctx, services.CategoryForm{Name: "Orphan", ParentID: 999})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Create(ctx, services.CategoryForm{Name: "Shirts again", Slug: "shirts"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)

	_, err = svc.Create(ctx, services.CategoryForm{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCategoryService_UpdateRejectsCycles(t *testing.T) {
	catalogSvc, cats := newCatalog(t, cache.NewMemoryTreeCache(time.Minute))
	svc := services.NewCategoryService(cats, catalogSvc)
	ctx := context.Background()

	tests := []struct {
		name   string
		id     int64
		parent int64
		want   error
	}{
		{"self", 3, 3, domain.ErrInvalidInput},
		{"child", 3, 4, domain.ErrInvalidInput},
		{"grandchild", 1, 4, domain.ErrInvalidInput},
		{"unknown parent", 3, 99, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Update(ctx, tt.id, services.CategoryForm{Name: "Moved", Slug: "moved", ParentID: tt.parent})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// moving jeans under women is fine
	require.NoError(t, svc.Update(ctx, 4, services.CategoryForm{Name: "Jeans", Slug: "jeans", ParentID: 5}))
	tree, err := catalogSvc.Tree(ctx)
	require.NoError(t, err)
	n, ok := tree.BySlug("jeans")
	require.True(t, ok)
	assert.Equal(t, int64(5), n.ParentID)
}

func TestCategoryService_DeleteReparents(t *testing.T) {
	catalogSvc, cats := newCatalog(t, cache.NewMemoryTreeCache(time.Minute))
	svc := services.NewCategoryService(cats, catalogSvc)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, 3))
	tree, err := catalogSvc.Tree(ctx)
	require.NoError(t, err)
	n, ok := tree.BySlug("jeans")
	require.True(t, ok)
	assert.Equal(t, int64(1), n.ParentID)

	assert.ErrorIs(t, svc.Delete(ctx, 8), domain.ErrInvalidInput, "root with products")
}
