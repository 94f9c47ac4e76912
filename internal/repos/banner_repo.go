package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

type BannerRepo struct{ db *sqlx.DB }

func NewBannerRepo(db *sqlx.DB) *BannerRepo { return &BannerRepo{db: db} }

const bannerCols = `id, title, subtitle, image_url, link_url, sort_order, active, starts_at, ends_at, COALESCE(created_at,'') AS created_at`

// List returns every banner in carousel order.
func (r *BannerRepo) List(ctx context.Context) ([]domain.Banner, error) {
	out := []domain.Banner{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+bannerCols+` FROM banners ORDER BY sort_order, id`)
	return out, err
}

// Showing returns the active banners whose date window contains day
// (YYYY-MM-DD). Empty bounds are open.
func (r *BannerRepo) Showing(ctx context.Context, day string) ([]domain.Banner, error) {
	out := []domain.Banner{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+bannerCols+` FROM banners
	  WHERE active = 1
	    AND (starts_at = '' OR starts_at <= ?)
	    AND (ends_at = '' OR ends_at > ?)
	  ORDER BY sort_order, id
	`, day, day)
	return out, err
}

func (r *BannerRepo) ByID(ctx context.Context, id int64) (domain.Banner, error) {
	var b domain.Banner
	err := r.db.GetContext(ctx, &b, `SELECT `+bannerCols+` FROM banners WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return b, domain.ErrNotFound
	}
	return b, err
}

func (r *BannerRepo) Create(ctx context.Context, b domain.Banner) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	  INSERT INTO banners(title, subtitle, image_url, link_url, sort_order, active, starts_at, ends_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, b.Title, b.Subtitle, b.ImageURL, b.LinkURL, b.SortOrder, b.Active, b.StartsAt, b.EndsAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SetActive shows or hides a banner without deleting it.
func (r *BannerRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE banners SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BannerRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM banners WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
