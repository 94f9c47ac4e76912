package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/services"
)

func newBanners(t *testing.T, today string) *services.BannerService {
	t.Helper()
	svc := services.NewBannerService(repos.NewBannerRepo(memdb(t)))
	day, err := time.Parse(time.DateOnly, today)
	require.NoError(t, err)
	svc.Now = func() time.Time { return day.Add(15 * time.Hour) }
	return svc
}

func TestBannerService_CreateAndSchedule(t *testing.T) {
	svc := newBanners(t, "2026-10-18")
	ctx := context.Background()

	id, err := svc.Create(ctx, services.BannerForm{
		Title:     "  Autumn knits ",
		ImageURL:  "https://cdn.threadline.test/knits.jpg",
		LinkURL:   "/category/women",
		SortOrder: 5,
		StartsAt:  "2026-10-01",
		EndsAt:    "2026-11-01",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, services.BannerForm{
		Title: "Winter coats", ImageURL: "/media/banners/coats.jpg", StartsAt: "2026-12-01",
	})
	require.NoError(t, err)

	showing, err := svc.Showing(ctx)
	require.NoError(t, err)
	titles := make([]string, len(showing))
	for i, b := range showing {
		titles[i] = b.Title
	}
	assert.Equal(t, []string{"New season linen", "Denim, made to last", "Autumn knits"}, titles)

	active, err := svc.Toggle(ctx, id)
	require.NoError(t, err)
	assert.False(t, active)
	showing, err = svc.Showing(ctx)
	require.NoError(t, err)
	assert.Len(t, showing, 2)

	require.NoError(t, svc.Delete(ctx, id))
	_, err = svc.Toggle(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 0), domain.ErrInvalidInput)
}

func TestBannerService_CreateRejections(t *testing.T) {
	svc := newBanners(t, "2026-10-18")
	ok := services.BannerForm{Title: "Sale", ImageURL: "/media/banners/sale.jpg"}

	tests := []struct {
		name  string
		edit  func(f *services.BannerForm)
		field string
	}{
		{"missing title", func(f *services.BannerForm) { f.Title = "   " }, "title"},
		{"missing image", func(f *services.BannerForm) { f.ImageURL = "" }, "image_url"},
		{"plain http image", func(f *services.BannerForm) { f.ImageURL = "http://cdn.test/a.jpg" }, "image_url"},
		{"script link", func(f *services.BannerForm) { f.LinkURL = "javascript:alert(1)" }, "link_url"},
		{"protocol-relative link", func(f *services.BannerForm) { f.LinkURL = "//evil.test/" }, "link_url"},
		{"bad date", func(f *services.BannerForm) { f.StartsAt = "18/10/2026" }, "starts_at"},
		{"ends before start", func(f *services.BannerForm) { f.StartsAt, f.EndsAt = "2026-10-10", "2026-10-10" }, "ends_at"},
		{"negative order", func(f *services.BannerForm) { f.SortOrder = -1 }, "sort_order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ok
			tt.edit(&f)
			_, err := svc.Create(context.Background(), f)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			var fe *services.FormError
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, fe.Fields, tt.field)
		})
	}
}
