package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"45", 4500, true},
		{"45.5", 4550, true},
		{"$45.05", 4505, true},
		{" 0 ", 0, true},
		{"45.555", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := Price(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSlugAndSlugify(t *testing.T) {
	assert.Equal(t, "oxford-shirt", Slugify("Oxford Shirt"))
	assert.Equal(t, "cafe-creme", Slugify("Café  Crème!"))
	assert.Equal(t, "t-shirts-tops", Slugify("T-Shirts & Tops"))
	assert.Equal(t, "", Slugify("!!!"))

	_, ok := Slug("oxford-shirt")
	assert.True(t, ok)
	for _, bad := range []string{"", "Oxford", "a--b", "-a", "a b"} {
		_, ok := Slug(bad)
		assert.False(t, ok, bad)
	}
}

func TestSmallHelpers(t *testing.T) {
	_, ok := PostalCode("12345-6789")
	assert.True(t, ok)
	_, ok = PostalCode("1234")
	assert.False(t, ok)

	m, ok := PaymentMethod(" PayPal ")
	assert.True(t, ok)
	assert.Equal(t, "paypal", m)
	_, ok = PaymentMethod("bitcoin")
	assert.False(t, ok)

	s, ok := OrderStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, "SHIPPED", s)

	_, ok = SKU("tee-SRE-001")
	assert.True(t, ok)
	_, ok = SKU("tee SRE")
	assert.False(t, ok)

	n, ok := IntID("42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
	_, ok = IntID("0")
	assert.False(t, ok)

	assert.Equal(t, 1, Qty("nope"))
	assert.Equal(t, 50, Qty("5000"))

	st, ok := Stock("12")
	assert.True(t, ok)
	assert.Equal(t, 12, st)
	_, ok = Stock("-3")
	assert.False(t, ok)

	q, ok := Q("  linen & co ")
	assert.True(t, ok)
	assert.Equal(t, "linen & co", q)
	_, ok = Q("<script>")
	assert.False(t, ok)

	assert.True(t, Password("Passw0rd!"))
	assert.False(t, Password("password"))
}

type filterBody struct {
	SortBy  string `json:"sortBy" validate:"sortby"`
	PerPage int    `json:"perPage" validate:"gte=0,lte=100"`
	Slug    string `json:"slug" validate:"required,slug"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(filterBody{SortBy: "price", PerPage: 12, Slug: "men"}))

	err := Struct(filterBody{SortBy: "hot", PerPage: 500, Slug: "Men"})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := verr.Fields()
	assert.Equal(t, "must be one of: name price date", fields["sortBy"])
	assert.Equal(t, "must be less than or equal to 100", fields["perPage"])
	assert.Contains(t, fields["slug"], "lowercase")
	assert.Contains(t, err.Error(), "field 'perPage'")
}
