package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/validate"
)

// BannerForm is the admin banner form as submitted.
type BannerForm struct {
	Title     string `form:"title" validate:"required,max=80"`
	Subtitle  string `form:"subtitle" validate:"max=120"`
	ImageURL  string `form:"image_url" validate:"required,max=255"`
	LinkURL   string `form:"link_url" validate:"max=255"`
	SortOrder int    `form:"sort_order" validate:"gte=0,lte=1000"`
	StartsAt  string `form:"starts_at" validate:"omitempty,datetime=2006-01-02"`
	EndsAt    string `form:"ends_at" validate:"omitempty,datetime=2006-01-02"`
}

// BannerService manages the home page carousel.
type BannerService struct {
	Banners *repos.BannerRepo
	Now     func() time.Time
}

func NewBannerService(banners *repos.BannerRepo) *BannerService {
	return &BannerService{Banners: banners, Now: time.Now}
}

// Showing is what the carousel displays today.
func (s *BannerService) Showing(ctx context.Context) ([]domain.Banner, error) {
	return s.Banners.Showing(ctx, s.Now().Format(time.DateOnly))
}

func (s *BannerService) List(ctx context.Context) ([]domain.Banner, error) {
	return s.Banners.List(ctx)
}

// linkTarget accepts a site path or an https URL. Protocol-relative and
// script URLs are refused.
func linkTarget(s string) bool {
	if strings.HasPrefix(s, "//") {
		return false
	}
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "https://")
}

// Create validates f and stores an active banner. Field problems come back
// as a *FormError keyed by form field.
func (s *BannerService) Create(ctx context.Context, f BannerForm) (int64, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Subtitle = strings.TrimSpace(f.Subtitle)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.LinkURL = strings.TrimSpace(f.LinkURL)

	fields := map[string]string{}
	if err := validate.Struct(f); err != nil {
		var verr *validate.ValidationError
		if !errors.As(err, &verr) {
			return 0, err
		}
		for k, v := range verr.Fields() {
			fields[k] = v
		}
	}
	if _, bad := fields["image_url"]; !bad && !linkTarget(f.ImageURL) {
		fields["image_url"] = "must be a site path or an https URL"
	}
	if f.LinkURL != "" && !linkTarget(f.LinkURL) {
		fields["link_url"] = "must be a site path or an https URL"
	}
	if f.StartsAt != "" && f.EndsAt != "" && f.EndsAt <= f.StartsAt {
		fields["ends_at"] = "must be after the start date"
	}
	if len(fields) > 0 {
		return 0, &FormError{Fields: fields}
	}

	return s.Banners.Create(ctx, domain.Banner{
		Title:     f.Title,
		Subtitle:  f.Subtitle,
		ImageURL:  f.ImageURL,
		LinkURL:   f.LinkURL,
		SortOrder: f.SortOrder,
		Active:    true,
		StartsAt:  f.StartsAt,
		EndsAt:    f.EndsAt,
	})
}

// Toggle flips a banner between shown and hidden.
func (s *BannerService) Toggle(ctx context.Context, id int64) (bool, error) {
	b, err := s.Banners.ByID(ctx, id)
	if err != nil {
		return false, err
	}
	if err := s.Banners.SetActive(ctx, id, !b.Active); err != nil {
		return false, err
	}
	return !b.Active, nil
}

func (s *BannerService) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return fmt.Errorf("%w: banner id", domain.ErrInvalidInput)
	}
	return s.Banners.Delete(ctx, id)
}
