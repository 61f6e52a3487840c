package dataset

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Listing pages embed their data as a JSON.parse call assigned to
// window.__INITIAL_PROPS__. The payload is an escaped JSON string; each
// offer inside it runs from its offerType object to its price field.
var (
	jsonParseRe = regexp.MustCompile(`JSON\.parse\((.*)\)`)
	offerRe     = regexp.MustCompile(`\\"offerType\\":\{\\"id\\".*?\\"price\\":\d+,`)
)

// ExtractListings pulls every offer fragment out of one listing page.
// Pages without the initial-props script yield no listings and no error;
// they are simply not listing pages.
func ExtractListings(r io.Reader) ([]RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	var payload string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "window.__INITIAL_PROPS__ = JSON.parse") {
			return true
		}
		if m := jsonParseRe.FindStringSubmatch(text); m != nil {
			payload = m[1]
		}
		return false
	})
	if payload == "" {
		return nil, nil
	}

	var listings []RawListing
	for _, fragment := range offerRe.FindAllString(payload, -1) {
		unescaped := strings.ReplaceAll(fragment, `\`, "")
		listings = append(listings, RawListing{
			Title:          field(unescaped, "title"),
			Year:           field(unescaped, "year"),
			KM:             field(unescaped, "km"),
			FuelTypeID:     field(unescaped, "fuelTypeId"),
			IsProfessional: field(unescaped, "isProfessional"),
			MainProvince:   field(unescaped, "mainProvince"),
			HasWarranty:    field(unescaped, "hasWarranty"),
			WarrantyMonths: field(unescaped, "warrantyMonths"),
			IncludesTaxes:  field(unescaped, "includesTaxes"),
			Price:          field(unescaped, "price"),
		})
	}
	return listings, nil
}

// field reads one value from an unescaped offer fragment. The fragment
// usually re-forms valid JSON once wrapped in braces, so gjson does the
// work; fragments that do not re-form cleanly fall back to a raw string
// scan for the key.
func field(fragment, name string) string {
	wrapped := "{" + strings.TrimSuffix(fragment, ",") + "}"
	if v := gjson.Get(wrapped, name); v.Exists() {
		return v.String()
	}
	return scanField(fragment, name)
}

func scanField(fragment, name string) string {
	target := `"` + name + `":`
	_, rest, found := strings.Cut(fragment, target)
	if !found {
		return ""
	}
	value, _, _ := strings.Cut(rest, ",")
	return strings.Trim(value, `"`)
}
