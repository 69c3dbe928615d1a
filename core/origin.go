package core

import "strings"

// OriginSeparator splits a brewery identifier into country prefix and site.
const OriginSeparator = "_"

// OriginCountry derives the supplier country from an origin identifier:
// "NL_ZOE" yields "NL", "MX" yields "MX". An identifier that starts with the
// separator yields "", which matches no tariff or filter entry.
func OriginCountry(origin string) string {
	country, _, _ := strings.Cut(origin, OriginSeparator)
	return country
}
