package dataset

import (
	"regexp"
	"strconv"
	"strings"
)

// fuelTypes maps the portal's numeric fuel type ids to display names.
var fuelTypes = map[string]string{
	"1": "gasolina",
	"2": "diesel",
	"3": "electrico",
	"4": "hibrido",
	"5": "hibrido ench.",
	"6": "glp",
	"7": "cng",
}

var (
	cvRe = regexp.MustCompile(`(?i)(\d+)CV`)
	kwRe = regexp.MustCompile(`(?i)(\d+)KW`)
)

const kwToCV = 1.36

// minListingPrice drops rows priced at or below the threshold; they are
// overwhelmingly damaged cars, parts, or mispriced ads.
const minListingPrice = 2000

// Clean converts raw fragments into dataset rows for the given current
// year, applying the full rule set:
//
//   - deduplicate on (title, year, km), then drop rows missing any of
//     title, year, km or price
//   - map fuel type ids to names, recover engine power from the title
//   - age = currentYear - year
//   - normalize price to taxes-included: listings without taxes pay
//     +21% VAT from professional sellers, +5% transfer tax privately
//   - drop near-zero-km rows older than three years (reimports and
//     odometer errors) and rows at or below the minimum price
//   - final deduplication on (title, km)
func Clean(raw []RawListing, currentYear int) []Listing {
	raw = dedupeRaw(raw)

	var cleaned []Listing
	for _, r := range raw {
		l, ok := convert(r, currentYear)
		if !ok {
			continue
		}
		if l.KM < 1000 && l.Age > 3 {
			continue
		}
		if l.Price <= minListingPrice {
			continue
		}
		cleaned = append(cleaned, l)
	}
	return dedupeCleaned(cleaned)
}

func convert(r RawListing, currentYear int) (Listing, bool) {
	if r.Title == "" {
		return Listing{}, false
	}

	// Fragment boundaries occasionally leave trailing close tokens on
	// the last field before a cut.
	yearText := strings.NewReplacer("}", "", "]", "").Replace(r.Year)

	year, err := strconv.Atoi(yearText)
	if err != nil {
		return Listing{}, false
	}
	km, err := strconv.Atoi(r.KM)
	if err != nil {
		return Listing{}, false
	}
	price, err := strconv.ParseFloat(r.Price, 64)
	if err != nil {
		return Listing{}, false
	}

	professional := r.IsProfessional == "true"
	includesTaxes := r.IncludesTaxes == "true"
	warrantyMonths, _ := strconv.Atoi(r.WarrantyMonths)

	l := Listing{
		Title:          r.Title,
		Year:           year,
		KM:             km,
		FuelType:       fuelTypes[r.FuelTypeID],
		MainProvince:   r.MainProvince,
		HasWarranty:    r.HasWarranty == "true",
		WarrantyMonths: warrantyMonths,
		IsProfessional: professional,
		IncludesTaxes:  includesTaxes,
		Price:          price,
		AdjustedPrice:  adjustPrice(price, professional, includesTaxes),
		CV:             powerFromTitle(r.Title),
		Age:            currentYear - year,
		SourceFolder:   r.SourceFolder,
	}
	return l, true
}

func adjustPrice(price float64, professional, includesTaxes bool) float64 {
	if includesTaxes {
		return price
	}
	if professional {
		return price * 1.21
	}
	return price * 1.05
}

// powerFromTitle recovers engine power in CV from the listing title,
// converting from KW when only that is advertised. Zero means unknown.
func powerFromTitle(title string) float64 {
	if m := cvRe.FindStringSubmatch(title); m != nil {
		cv, _ := strconv.ParseFloat(m[1], 64)
		return cv
	}
	if m := kwRe.FindStringSubmatch(title); m != nil {
		kw, _ := strconv.ParseFloat(m[1], 64)
		return kw * kwToCV
	}
	return 0
}

func dedupeRaw(raw []RawListing) []RawListing {
	seen := make(map[[3]string]bool, len(raw))
	out := raw[:0:0]
	for _, r := range raw {
		key := [3]string{r.Title, r.Year, r.KM}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// dedupeCleaned keeps the first row per (title, km): the same car is
// often listed by several dealers at slightly different prices.
func dedupeCleaned(listings []Listing) []Listing {
	type key struct {
		title string
		km    int
	}
	seen := make(map[key]bool, len(listings))
	out := listings[:0:0]
	for _, l := range listings {
		k := key{l.Title, l.KM}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	return out
}

// Join attaches per-source vehicle metadata to cleaned rows by their
// harvest folder. Rows from folders absent from the metadata are
// dropped; without brand and segment they cannot feed the model.
func Join(listings []Listing, meta map[string]Meta) []Listing {
	out := listings[:0:0]
	for _, l := range listings {
		m, ok := meta[l.SourceFolder]
		if !ok {
			continue
		}
		l.Brand = m.Brand
		l.Model = m.Model
		l.Segment = m.Segment
		l.BodyType = m.BodyType
		out = append(out, l)
	}
	return out
}
