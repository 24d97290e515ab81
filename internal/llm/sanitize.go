package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tungarlabs/fuelbills/constants"
)

// StripCodeFence removes a surrounding markdown code block (```json ... ```
// or ``` ... ```) that models wrap JSON answers in.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop a language tag on the opening fence ("json", "JSON", ...)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first != "" && !strings.ContainsAny(first, "{}") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var (
	reBillDate = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	reDecimal  = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// keySynonyms renames variants the model emits onto the canonical prompt keys.
var keySynonyms = map[string]string{
	"pump name":         "Petrol Pump Name",
	"petrol pump":       "Petrol Pump Name",
	"petrol pump name":  "Petrol Pump Name",
	"date":              "Date",
	"bill date":         "Date",
	"product":           "Product",
	"fuel":              "Product",
	"fuel type":         "Product",
	"volume":            "Volume(L)",
	"volume(l)":         "Volume(L)",
	"volume (l)":        "Volume(L)",
	"rate":              "Rate per Litre",
	"rate per litre":    "Rate per Litre",
	"rate per liter":    "Rate per Litre",
	"total":             "Total Amount (Rs)",
	"amount":            "Total Amount (Rs)",
	"total amount":      "Total Amount (Rs)",
	"total amount (rs)": "Total Amount (Rs)",
}

var numericKeys = []string{"Volume(L)", "Rate per Litre", "Total Amount (Rs)"}

// SanitizeFields normalizes a raw model answer so it validates against the
// bill schema:
//   - renames known key synonyms onto the canonical keys
//   - coerces JSON numbers to strings, nulls to empty strings
//   - normalizes split/decorated decimals ("91\n74", "Rs 1,500.00")
//   - canonicalizes Product to Petrol/Diesel or empty
//   - reformats recognizable date layouts to DD/MM/YYYY
//   - drops unknown keys
//
// It returns the cleaned JSON and the list of keys it touched.
func SanitizeFields(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var touched []string

	// 1) rename synonyms (case-insensitive match on trimmed key). Exact
	// canonical keys are taken first so a stray synonym alongside the real
	// key never shadows it, whatever the map iteration order.
	out := make(map[string]any, len(m))
	for k, v := range m {
		canon, ok := keySynonyms[strings.ToLower(strings.TrimSpace(k))]
		if ok && canon == strings.TrimSpace(k) {
			out[canon] = v
		}
	}
	for k, v := range m {
		canon, ok := keySynonyms[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			touched = append(touched, k+"(unknown)")
			continue
		}
		if _, exists := out[canon]; exists {
			continue
		}
		if canon != k {
			touched = append(touched, k+"->"+canon)
		}
		out[canon] = v
	}

	// 2) everything becomes a string; null/absent -> ""
	str := func(k string) string {
		switch t := out[k].(type) {
		case string:
			return strings.TrimSpace(t)
		case float64:
			touched = append(touched, k+"(number)")
			return strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
			return ""
		default:
			touched = append(touched, k+"(type)")
			return ""
		}
	}

	pump := str("Petrol Pump Name")
	date := normalizeDate(str("Date"))
	product := ""
	if p, ok := constants.CanonicalProduct(str("Product")); ok {
		product = string(p)
	}
	fields := map[string]string{
		"Petrol Pump Name": pump,
		"Date":             date,
		"Product":          product,
	}
	for _, k := range numericKeys {
		fields[k] = NormalizeDecimal(str(k))
	}

	final := make(map[string]any, len(fields))
	for k, v := range fields {
		final[k] = v
	}
	b, err := json.Marshal(final)
	if err != nil {
		return nil, touched, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, touched, nil
}

// NormalizeDecimal cleans currency decoration and line-split digits from a
// numeric field. Returns "" when nothing numeric remains.
func NormalizeDecimal(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return ""
	}
	// "91\n74" is a rate printed digit-group per line
	if parts := strings.Split(s, "\n"); len(parts) == 2 &&
		!strings.Contains(s, ".") {
		s = strings.TrimSpace(parts[0]) + "." + strings.TrimSpace(parts[1])
	}
	repl := strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", "INR", "", ",", "", " ", "", "\n", "")
	s = repl.Replace(s)
	if s == "" {
		return ""
	}
	if reDecimal.MatchString(s) {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", f)
}

// dateLayouts are alternates the model falls back to despite the prompt.
var dateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006", "02.01.2006", "2/1/2006"}

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if reBillDate.MatchString(s) {
		return s
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return ""
}

// EstimateTotal fills Total Amount from Volume x Rate when the model left it
// blank but read both factors. Mirrors the tabular-layout fallback the
// prompt describes.
func EstimateTotal(f *BillFields) bool {
	if strings.TrimSpace(f.Total) != "" || f.Volume == "" || f.Rate == "" {
		return false
	}
	volume, err := strconv.ParseFloat(f.Volume, 64)
	if err != nil {
		return false
	}
	rate, err := strconv.ParseFloat(f.Rate, 64)
	if err != nil {
		return false
	}
	f.Total = fmt.Sprintf("%.2f", volume*rate)
	return true
}
