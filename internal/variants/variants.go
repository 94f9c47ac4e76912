// Package variants expands product options into purchasable SKU rows.
//
// Input comes straight from an admin form and may be half-edited, so nothing
// here returns an error: options that are not usable yet are skipped and the
// caller simply gets fewer (or no) variants.
package variants

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const labelSeparator = " • "

// Option is one axis of variation, e.g. Size with values S, M, L.
type Option struct {
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

// OptionValue carries an ID once the value has been persisted or assigned.
type OptionValue struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
}

// Pick is the value chosen for a single option inside a combination.
type Pick struct {
	Option string
	Value  OptionValue
}

// Combination holds one pick per usable option, in option order.
type Combination []Pick

// Label renders "Size: S • Color: Red".
func (c Combination) Label() string {
	parts := make([]string, len(c))
	for i, p := range c {
		parts[i] = p.Option + ": " + p.Value.Value
	}
	return strings.Join(parts, labelSeparator)
}

type GeneratedVariant struct {
	SKU            string   `json:"sku"`
	Price          int64    `json:"price"`
	Stock          int      `json:"stock"`
	OptionValueIDs []string `json:"option_value_ids"`
	Combination    string   `json:"combination"`
	IsActive       bool     `json:"is_active"`
}

// EditPolicy decides what happens to per-row edits when the option set changes.
type EditPolicy int

const (
	// KeepEdits carries SKU, price, stock and active flag over for every row
	// whose combination label still exists after regeneration.
	KeepEdits EditPolicy = iota
	// DiscardEdits reseeds every row from the base price.
	DiscardEdits
)

func (p EditPolicy) String() string {
	if p == DiscardEdits {
		return "discard"
	}
	return "keep"
}

// Usable returns the options that take part in expansion: trimmed non-empty
// name and at least two trimmed non-empty values.
func Usable(options []Option) []Option {
	var out []Option
	for _, o := range options {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			continue
		}
		var vals []OptionValue
		for _, v := range o.Values {
			text := strings.TrimSpace(v.Value)
			if text == "" {
				continue
			}
			vals = append(vals, OptionValue{ID: v.ID, Value: text})
		}
		if len(vals) < 2 {
			continue
		}
		out = append(out, Option{Name: name, Values: vals})
	}
	return out
}

// Count is the number of combinations ExpandOptions would return. It
// saturates at math.MaxInt instead of wrapping.
func Count(options []Option) int {
	opts := Usable(options)
	if len(opts) == 0 {
		return 0
	}
	n := 1
	for _, o := range opts {
		k := len(o.Values)
		if n > math.MaxInt/k {
			return math.MaxInt
		}
		n *= k
	}
	return n
}

// preallocLimit bounds the capacity ExpandOptions reserves up front.
const preallocLimit = 1024

// ExpandOptions returns the cartesian product of the usable options in
// nested-loop order: the first option varies slowest, the last fastest.
func ExpandOptions(options []Option) []Combination {
	opts := Usable(options)
	if len(opts) == 0 {
		return nil
	}

	out := make([]Combination, 0, min(Count(opts), preallocLimit))
	idx := make([]int, len(opts))
	for {
		c := make(Combination, len(opts))
		for i, o := range opts {
			c[i] = Pick{Option: o.Name, Value: o.Values[idx[i]]}
		}
		out = append(out, c)

		// odometer step, rightmost digit first
		i := len(opts) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(opts[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}

// BuildVariant seeds the row for the index-th (1-based) combination.
func BuildVariant(c Combination, index int, baseSlug string, basePrice int64) GeneratedVariant {
	ids := make([]string, len(c))
	var initials strings.Builder
	for i, p := range c {
		ids[i] = p.Value.ID
		initials.WriteString(initialsOf(p.Value.Value))
	}
	return GeneratedVariant{
		SKU:            fmt.Sprintf("%s-%s-%03d", baseSlug, initials.String(), index),
		Price:          basePrice,
		Stock:          0,
		OptionValueIDs: ids,
		Combination:    c.Label(),
		IsActive:       true,
	}
}

func initialsOf(v string) string {
	r := []rune(v)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// Generate expands the options and seeds one row per combination.
func Generate(options []Option, baseSlug string, basePrice int64) []GeneratedVariant {
	combos := ExpandOptions(options)
	if len(combos) == 0 {
		return nil
	}
	out := make([]GeneratedVariant, len(combos))
	for i, c := range combos {
		out[i] = BuildVariant(c, i+1, baseSlug, basePrice)
	}
	return out
}

// Regenerate rebuilds the rows for options and applies policy to prev.
func Regenerate(prev []GeneratedVariant, options []Option, baseSlug string, basePrice int64, policy EditPolicy) []GeneratedVariant {
	next := Generate(options, baseSlug, basePrice)
	if policy == DiscardEdits {
		return next
	}
	return MergeEdits(next, prev)
}

// MergeEdits copies the editable fields of prev onto next, matching rows by
// combination label. Rows of prev with no match are dropped.
func MergeEdits(next, prev []GeneratedVariant) []GeneratedVariant {
	if len(prev) == 0 {
		return next
	}
	byLabel := make(map[string]GeneratedVariant, len(prev))
	for _, v := range prev {
		byLabel[v.Combination] = v
	}
	for i := range next {
		old, ok := byLabel[next[i].Combination]
		if !ok {
			continue
		}
		if strings.TrimSpace(old.SKU) != "" {
			next[i].SKU = strings.TrimSpace(old.SKU)
		}
		next[i].Price = old.Price
		next[i].Stock = old.Stock
		next[i].IsActive = old.IsActive
	}
	return next
}

// DuplicateSKUs lists SKUs used by more than one row, sorted. Comparison
// ignores case; each duplicate is reported as first spelled.
func DuplicateSKUs(rows []GeneratedVariant) []string {
	seen := make(map[string]int, len(rows))
	first := make(map[string]string, len(rows))
	for _, r := range rows {
		key := strings.ToUpper(r.SKU)
		if _, ok := first[key]; !ok {
			first[key] = r.SKU
		}
		seen[key]++
	}
	var dups []string
	for key, n := range seen {
		if n > 1 {
			dups = append(dups, first[key])
		}
	}
	sort.Strings(dups)
	return dups
}
