package handlers

import (
	"github.com/jmoiron/sqlx"

	"threadline/internal/cache"
	"threadline/internal/config"
	"threadline/internal/repos"
	"threadline/internal/services"
)

type Deps struct {
	Catalog *services.CatalogService

	ShopHandler      *ShopHandler
	ProductHandler   *ProductHandler
	SearchHandler    *SearchHandler
	APIHandler       *APIHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler

	AdminHandler         *AdminHandler
	AdminProductHandler  *AdminProductHandler
	AdminCategoryHandler *AdminCategoryHandler
	ReferenceHandler     *ReferenceHandler
	BannerHandler        *BannerHandler
}

// NewDeps wires repositories, services and handlers over one database. A
// nil tc disables category tree caching.
func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService, tc cache.TreeCache) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	variantRepo := repos.NewVariantRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	sizeRepo := repos.NewSizeRepo(db)
	courierRepo := repos.NewCourierRepo(db)
	bannerRepo := repos.NewBannerRepo(db)

	catalogSvc := services.NewCatalogService(catRepo, prodRepo, tc)
	categorySvc := services.NewCategoryService(catRepo, catalogSvc)
	productAdminSvc := services.NewProductAdminService(prodRepo, variantRepo, catalogSvc, cfg.VariantKeepEdits)
	invSvc := services.NewInventoryService(invRepo)
	cartSvc := services.NewCartService(cartRepo, variantRepo)
	orderSvc := services.NewOrderService(cartRepo, invRepo, orderRepo, courierRepo)
	orderSvc.Postal = repos.NewPostalRepo(db)
	bannerSvc := services.NewBannerService(bannerRepo)
	refSvc := services.NewAdminCatalogService(sizeRepo, courierRepo)

	if auth != nil && auth.Carts == nil {
		auth.Carts = cartRepo
	}
	pageSize := cfg.AdminPageSize
	if pageSize < 1 {
		pageSize = 25
	}

	return &Deps{
		Catalog: catalogSvc,

		ShopHandler:      &ShopHandler{Catalog: catalogSvc, Banners: bannerSvc},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		SearchHandler:    &SearchHandler{},
		APIHandler:       &APIHandler{Catalog: catalogSvc, Orders: orderSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		CartHandler:      &CartHandler{Cart: cartSvc, SecureCookies: cfg.CookieSecure},
		OrderHandler: &OrderHandler{
			Cart:          cartSvc,
			Order:         orderSvc,
			Ref:           refSvc,
			Auth:          auth,
			SecureCookies: cfg.CookieSecure,
		},

		AdminHandler: &AdminHandler{
			Orders: orderSvc,
			Inv:    invSvc,
			Users:  repos.NewUserRepo(db),
			Recent: orderRepo,
		},
		AdminProductHandler: &AdminProductHandler{
			Products: productAdminSvc,
			List:     prodRepo,
			Catalog:  catalogSvc,
			Ref:      refSvc,
			PerPage:  pageSize,
		},
		AdminCategoryHandler: &AdminCategoryHandler{Categories: categorySvc, Catalog: catalogSvc},
		ReferenceHandler:     &ReferenceHandler{Ref: refSvc},
		BannerHandler:        &BannerHandler{Banners: bannerSvc},
	}
}
