package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"threadline/internal/domain"
	"threadline/internal/metrics"
	"threadline/internal/repos"
	"threadline/internal/validate"
	"threadline/internal/variants"
)

const (
	// MaxVariants caps how many rows one product form may generate.
	MaxVariants = 500
	// MaxOptions caps the option fields one product form may carry.
	MaxOptions = 5
)

// ProductForm is the admin product editor. Options arrive as parallel
// option_name/option_values fields, values comma separated. The row_* fields
// carry the variant table as the admin last saw it, one entry per row.
type ProductForm struct {
	ID           string   `form:"id"`
	Name         string   `form:"name" validate:"required,max=120"`
	Slug         string   `form:"slug" validate:"omitempty,slug,max=80"`
	Description  string   `form:"description" validate:"max=2000"`
	CategoryID   int64    `form:"category_id" validate:"gt=0"`
	BasePrice    string   `form:"base_price" validate:"required"`
	Active       bool     `form:"active"`
	OptionNames  []string `form:"option_name" validate:"max=5"`
	OptionValues []string `form:"option_values" validate:"max=5"`

	RowCombination []string `form:"row_combination"`
	RowSKU         []string `form:"row_sku"`
	RowPrice       []string `form:"row_price"`
	RowStock       []string `form:"row_stock"`
	RowActive      []string `form:"row_active"`
}

// FormError carries per-field messages for re-rendering an admin form.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func (e *FormError) Unwrap() error { return domain.ErrInvalidInput }

// Options turns the option fields into generator input, in form order.
func (f ProductForm) Options() []variants.Option {
	out := make([]variants.Option, 0, len(f.OptionNames))
	for i, name := range f.OptionNames {
		o := variants.Option{Name: name}
		if i < len(f.OptionValues) {
			for _, v := range strings.Split(f.OptionValues[i], ",") {
				o.Values = append(o.Values, variants.OptionValue{Value: v})
			}
		}
		out = append(out, o)
	}
	return out
}

// Rows reads the posted variant table. Unparseable cells keep zero values and
// are reported by Save.
func (f ProductForm) Rows() []variants.GeneratedVariant {
	out := make([]variants.GeneratedVariant, 0, len(f.RowCombination))
	for i, combo := range f.RowCombination {
		row := variants.GeneratedVariant{Combination: combo, IsActive: true}
		if i < len(f.RowSKU) {
			row.SKU = strings.TrimSpace(f.RowSKU[i])
		}
		if i < len(f.RowPrice) {
			row.Price, _ = validate.Price(f.RowPrice[i])
		}
		if i < len(f.RowStock) {
			row.Stock, _ = validate.Stock(f.RowStock[i])
		}
		if i < len(f.RowActive) {
			row.IsActive = f.RowActive[i] == "1" || f.RowActive[i] == "on" || f.RowActive[i] == "true"
		}
		out = append(out, row)
	}
	return out
}

func (f ProductForm) slug() string {
	if s := strings.TrimSpace(f.Slug); s != "" {
		return s
	}
	return validate.Slugify(f.Name)
}

// ProductEditor is what the admin form renders: the inputs plus the variant table.
type ProductEditor struct {
	Form   ProductForm
	Rows   []variants.GeneratedVariant
	Errors map[string]string
	Policy string
}

type ProductAdminService struct {
	Prods    *repos.ProductRepo
	Variants *repos.VariantRepo
	Catalog  *CatalogService
	Policy   variants.EditPolicy
}

func NewProductAdminService(prods *repos.ProductRepo, vr *repos.VariantRepo, catalog *CatalogService, keepEdits bool) *ProductAdminService {
	policy := variants.KeepEdits
	if !keepEdits {
		policy = variants.DiscardEdits
	}
	return &ProductAdminService{Prods: prods, Variants: vr, Catalog: catalog, Policy: policy}
}

// Preview regenerates the variant table for the current option set, applying
// the configured edit policy to the rows the form posted. Invalid fields are
// reported but never stop the preview.
func (s *ProductAdminService) Preview(f ProductForm) ProductEditor {
	ed := ProductEditor{Form: f, Errors: map[string]string{}, Policy: s.Policy.String()}
	base, ok := validate.Price(f.BasePrice)
	if !ok {
		ed.Errors["base_price"] = "Enter a price like 45 or 45.50"
	}
	if msg := optionsError(f); msg != "" {
		ed.Errors["options"] = msg
		return ed
	}
	ed.Rows = variants.Regenerate(f.Rows(), f.Options(), f.slug(), base, s.Policy)
	metrics.VariantsGenerated.Add(float64(len(ed.Rows)))
	return ed
}

// Save validates the form and persists product, options and variants. The
// posted rows override generated ones by combination, so what the admin saw
// in the preview is what gets stored. A *FormError reports bad input.
func (s *ProductAdminService) Save(ctx context.Context, f ProductForm) (string, error) {
	errs := map[string]string{}
	if err := validate.Struct(f); err != nil {
		var verr *validate.ValidationError
		if !errors.As(err, &verr) {
			return "", err
		}
		for k, v := range verr.Fields() {
			errs[k] = v
		}
	}
	base, ok := validate.Price(f.BasePrice)
	if !ok {
		errs["base_price"] = "Enter a price like 45 or 45.50"
	}
	slug := f.slug()
	if _, ok := validate.Slug(slug); !ok {
		errs["slug"] = "must be lowercase letters, digits and hyphens"
	}
	if msg := optionsError(f); msg != "" {
		errs["options"] = msg
	}
	if len(errs) > 0 {
		return "", &FormError{Fields: errs}
	}

	opts, err := s.assignValueIDs(ctx, f.ID, f.Options())
	if err != nil {
		return "", err
	}
	rows := variants.MergeEdits(variants.Generate(opts, slug, base), f.Rows())
	metrics.VariantsGenerated.Add(float64(len(rows)))
	if err := checkRows(f, rows); err != nil {
		return "", err
	}

	draft := repos.ProductDraft{
		Product: domain.Product{
			ID:          f.ID,
			CategoryID:  f.CategoryID,
			Name:        strings.TrimSpace(f.Name),
			Slug:        slug,
			Description: strings.TrimSpace(f.Description),
			BasePrice:   base,
			Active:      f.Active,
		},
		Options:  toProductOptions(opts),
		Variants: toVariants(rows),
	}
	if f.ID != "" {
		if cur, err := s.Prods.ByID(ctx, f.ID); err == nil {
			draft.Product.ImagesJSON = cur.ImagesJSON
		}
	}

	id, err := s.Variants.SaveProduct(ctx, draft)
	switch {
	case errors.Is(err, domain.ErrDuplicateSKU):
		return "", &FormError{Fields: map[string]string{"sku": err.Error()}}
	case errors.Is(err, domain.ErrDuplicateSlug):
		return "", &FormError{Fields: map[string]string{"slug": "another product already uses this slug"}}
	case err != nil:
		return "", err
	}
	// product counts per category may have moved
	s.Catalog.TreeChanged(ctx)
	return id, nil
}

// optionsError rejects option sets too large to expand.
func optionsError(f ProductForm) string {
	if len(f.OptionNames) > MaxOptions || len(f.OptionValues) > MaxOptions {
		return fmt.Sprintf("Use at most %d options", MaxOptions)
	}
	if variants.Count(f.Options()) > MaxVariants {
		return fmt.Sprintf("These options make more than %d combinations", MaxVariants)
	}
	return ""
}

// checkRows validates the posted cells the generator could not fix up.
func checkRows(f ProductForm, rows []variants.GeneratedVariant) error {
	errs := map[string]string{}
	for i := range f.RowCombination {
		if i < len(f.RowPrice) {
			if _, ok := validate.Price(f.RowPrice[i]); !ok {
				errs["rows"] = fmt.Sprintf("row %d: invalid price", i+1)
				break
			}
		}
		if i < len(f.RowStock) {
			if _, ok := validate.Stock(f.RowStock[i]); !ok {
				errs["rows"] = fmt.Sprintf("row %d: invalid stock", i+1)
				break
			}
		}
	}
	for _, r := range rows {
		if _, ok := validate.SKU(r.SKU); !ok {
			errs["sku"] = fmt.Sprintf("invalid SKU %q", r.SKU)
			break
		}
	}
	if dups := variants.DuplicateSKUs(rows); len(dups) > 0 {
		errs["sku"] = "duplicate SKU: " + strings.Join(dups, ", ")
	}
	if len(errs) > 0 {
		return &FormError{Fields: errs}
	}
	return nil
}

// assignValueIDs reuses the stored ids of values that already exist on the
// product and mints new ones for the rest.
func (s *ProductAdminService) assignValueIDs(ctx context.Context, productID string, opts []variants.Option) ([]variants.Option, error) {
	known := map[string]string{}
	if productID != "" {
		stored, err := s.Prods.Options(ctx, productID)
		if err != nil {
			return nil, err
		}
		for _, o := range stored {
			for _, v := range o.Values {
				known[valueKey(o.Name, v.Value)] = v.ID
			}
		}
	}
	usable := variants.Usable(opts)
	for i := range usable {
		for j := range usable[i].Values {
			v := &usable[i].Values[j]
			if id, ok := known[valueKey(usable[i].Name, v.Value)]; ok {
				v.ID = id
			} else {
				v.ID = uuid.NewString()
			}
		}
	}
	return usable, nil
}

func valueKey(option, value string) string {
	return strings.ToLower(option) + "\x00" + strings.ToLower(value)
}

func toProductOptions(opts []variants.Option) []domain.ProductOption {
	out := make([]domain.ProductOption, len(opts))
	for i, o := range opts {
		po := domain.ProductOption{Name: o.Name, Position: i}
		for j, v := range o.Values {
			po.Values = append(po.Values, domain.OptionValue{ID: v.ID, Value: v.Value, Position: j})
		}
		out[i] = po
	}
	return out
}

func toVariants(rows []variants.GeneratedVariant) []domain.Variant {
	out := make([]domain.Variant, len(rows))
	for i, r := range rows {
		ids, _ := json.Marshal(r.OptionValueIDs)
		out[i] = domain.Variant{
			SKU:            r.SKU,
			Price:          r.Price,
			Stock:          r.Stock,
			Combination:    r.Combination,
			OptionValueIDs: string(ids),
			IsActive:       r.IsActive,
			Position:       i,
		}
	}
	return out
}

// Load rebuilds the editor for a stored product.
func (s *ProductAdminService) Load(ctx context.Context, id string) (ProductEditor, error) {
	p, err := s.Prods.ByID(ctx, id)
	if err != nil {
		return ProductEditor{}, err
	}
	opts, err := s.Prods.Options(ctx, id)
	if err != nil {
		return ProductEditor{}, err
	}
	vs, err := s.Prods.Variants(ctx, id, false)
	if err != nil {
		return ProductEditor{}, err
	}

	f := ProductForm{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		BasePrice:   formatCents(p.BasePrice),
		Active:      p.Active,
	}
	for _, o := range opts {
		vals := make([]string, len(o.Values))
		for i, v := range o.Values {
			vals[i] = v.Value
		}
		f.OptionNames = append(f.OptionNames, o.Name)
		f.OptionValues = append(f.OptionValues, strings.Join(vals, ", "))
	}

	rows := make([]variants.GeneratedVariant, len(vs))
	for i, v := range vs {
		rows[i] = variants.GeneratedVariant{
			SKU:            v.SKU,
			Price:          v.Price,
			Stock:          v.Stock,
			OptionValueIDs: v.ValueIDs(),
			Combination:    v.Combination,
			IsActive:       v.IsActive,
		}
		f.RowCombination = append(f.RowCombination, v.Combination)
		f.RowSKU = append(f.RowSKU, v.SKU)
		f.RowPrice = append(f.RowPrice, formatCents(v.Price))
		f.RowStock = append(f.RowStock, strconv.Itoa(v.Stock))
		f.RowActive = append(f.RowActive, boolFlag(v.IsActive))
	}
	return ProductEditor{Form: f, Rows: rows, Errors: map[string]string{}, Policy: s.Policy.String()}, nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// formatCents renders 4550 as "45.50".
func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}
