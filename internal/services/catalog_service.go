package services

import (
	"context"
	"time"

	"threadline/internal/cache"
	"threadline/internal/catalog"
	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/metrics"
	"threadline/internal/repos"
)

// treeRefreshWait batches bursts of admin edits into one cache re-prime.
const treeRefreshWait = 250 * time.Millisecond

type CatalogService struct {
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
	Cache cache.TreeCache

	refresh *catalog.Debouncer
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo, tc cache.TreeCache) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods, Cache: tc, refresh: catalog.NewDebouncer(treeRefreshWait)}
}

// Listing is one page of shop results with what the page needs to render
// pagers and the filter sidebar.
type Listing struct {
	Filters    catalog.ShopFilters
	Query      catalog.QueryDescriptor
	Products   []domain.Product
	Total      int
	Page       int
	PerPage    int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	Tree       *catalog.Tree
}

// PageURL is the canonical shop URL for page n of the same filters.
func (l Listing) PageURL(n int) string {
	return l.Filters.WithPage(n).URL("/shop")
}

func (l Listing) PrevURL() string { return l.PageURL(l.Page - 1) }
func (l Listing) NextURL() string { return l.PageURL(l.Page + 1) }

type ProductPage struct {
	Product     domain.Product
	Options     []domain.ProductOption
	Variants    []domain.Variant
	Breadcrumbs []catalog.Node
}

// Tree returns the category tree, from the cache when it holds a snapshot.
// Cache failures fall through to the database.
func (s *CatalogService) Tree(ctx context.Context) (*catalog.Tree, error) {
	if s.Cache != nil {
		cats, ok, err := s.Cache.Get(ctx)
		switch {
		case err != nil:
			metrics.CategoryCacheLookups.WithLabelValues("error").Inc()
			applog.Event("catalog.tree.cache.get", err, nil)
		case ok:
			metrics.CategoryCacheLookups.WithLabelValues("hit").Inc()
			return catalog.NewTree(cats), nil
		default:
			metrics.CategoryCacheLookups.WithLabelValues("miss").Inc()
		}
	}
	return s.loadTree(ctx)
}

func (s *CatalogService) loadTree(ctx context.Context) (*catalog.Tree, error) {
	cats, err := s.Cats.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, cats); err != nil {
			applog.Event("catalog.tree.cache.set", err, nil)
		}
	}
	return catalog.NewTree(cats), nil
}

// TreeChanged drops the cached tree now and re-primes it once edits settle.
func (s *CatalogService) TreeChanged(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		applog.Event("catalog.tree.cache.invalidate", err, nil)
	}
	s.refresh.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		t, err := s.loadTree(ctx)
		if err != nil {
			applog.Event("catalog.tree.refresh", err, nil)
			return
		}
		applog.Event("catalog.tree.refresh", nil, map[string]any{"nodes": t.Len()})
	})
}

// Close stops a pending re-prime.
func (s *CatalogService) Close() {
	s.refresh.Stop()
}

// Browse resolves applied filters against the tree and runs the listing query.
func (s *CatalogService) Browse(ctx context.Context, applied catalog.ShopFilters) (Listing, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return Listing{}, err
	}
	q := catalog.NormalizeQuery(tree, applied)
	products, total, err := s.Prods.List(ctx, q)
	if err != nil {
		return Listing{}, err
	}

	f := applied.Clone()
	f.Page, f.PerPage = q.Page, q.PerPage
	pages := (total + q.PerPage - 1) / q.PerPage
	return Listing{
		Filters:    f,
		Query:      q,
		Products:   products,
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: pages,
		HasPrev:    q.Page > 1,
		HasNext:    q.Page < pages,
		Tree:       tree,
	}, nil
}

// Newest returns the latest active products for the home page.
func (s *CatalogService) Newest(ctx context.Context, n int) ([]domain.Product, error) {
	f := catalog.DefaultFilters()
	f.PerPage = n
	products, _, err := s.Prods.List(ctx, catalog.NormalizeQuery(nil, f))
	return products, err
}

// Product loads an active product with its options and purchasable variants.
func (s *CatalogService) Product(ctx context.Context, slug string) (ProductPage, error) {
	p, err := s.Prods.BySlug(ctx, slug)
	if err != nil {
		return ProductPage{}, err
	}
	opts, err := s.Prods.Options(ctx, p.ID)
	if err != nil {
		return ProductPage{}, err
	}
	vs, err := s.Prods.Variants(ctx, p.ID, true)
	if err != nil {
		return ProductPage{}, err
	}
	page := ProductPage{Product: p, Options: opts, Variants: vs}
	if tree, err := s.Tree(ctx); err == nil {
		page.Breadcrumbs = tree.Ancestors(p.CategoryID)
		if n, ok := tree.ByID(p.CategoryID); ok {
			page.Breadcrumbs = append(page.Breadcrumbs, n)
		}
	}
	return page, nil
}
