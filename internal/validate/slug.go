package validate

import (
	"regexp"
	"strings"
)

var reNonSlug = regexp.MustCompile(`[^a-z0-9]+`)

var accents = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n", "ß", "ss",
)

// Slugify turns a display name into a URL slug.
//
//	"Oxford Shirt"     -> "oxford-shirt"
//	"Café  Crème!"     -> "cafe-creme"
//	"T-Shirts & Tops"  -> "t-shirts-tops"
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = accents.Replace(s)
	s = reNonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
