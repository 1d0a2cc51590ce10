// Package inventory loads the dealership's vehicle feeds and runs the local
// keyword search shown next to assistant replies.
package inventory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// Feeds name the same attribute many ways; keys are compared after
// normalizeKey, in the order listed.
var (
	stockKeys     = []string{"stocknumber", "stock", "stockno", "stocknum", "stockid"}
	vinKeys       = []string{"vin"}
	yearKeys      = []string{"year", "modelyear"}
	makeKeys      = []string{"make", "manufacturer"}
	modelKeys     = []string{"model", "modelname"}
	trimKeys      = []string{"trim", "series", "trimlevel"}
	colorKeys     = []string{"color", "exteriorcolor", "extcolor", "colour"}
	bodyKeys      = []string{"bodystyle", "body", "bodytype", "style"}
	conditionKeys = []string{"condition", "newused", "type", "status"}
	// price, Price, sellingPrice, selling_price, internetPrice,
	// internet_price, salePrice, listPrice, msrp, MSRP
	priceKeys = []string{"price", "sellingprice", "internetprice", "saleprice", "listprice", "msrp"}
)

func normalizeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// fields is one raw feed record with normalized keys.
type fields map[string]any

func newFields(raw map[string]any) fields {
	f := make(fields, len(raw))
	for k, v := range raw {
		nk := normalizeKey(k)
		if _, exists := f[nk]; !exists {
			f[nk] = v
		}
	}
	return f
}

func (f fields) str(keys []string) string {
	for _, k := range keys {
		v, ok := f[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (f fields) num(keys []string) float64 {
	for _, k := range keys {
		if v, ok := toNumber(f[k]); ok && v > 0 {
			return v
		}
	}
	return 0
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func normalizeCondition(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "new":
		return "new"
	case "u", "used", "pre-owned", "preowned":
		return "used"
	case "cpo", "certified", "certified pre-owned":
		return "cpo"
	}
	return ""
}

// FromRecord converts one raw feed record. ok is false when the record has
// neither a stock number nor a make and model.
func FromRecord(raw map[string]any) (v model.Vehicle, ok bool) {
	f := newFields(raw)
	v = model.Vehicle{
		StockNumber: f.str(stockKeys),
		VIN:         f.str(vinKeys),
		Year:        int(f.num(yearKeys)),
		Make:        f.str(makeKeys),
		Model:       f.str(modelKeys),
		Trim:        f.str(trimKeys),
		Color:       f.str(colorKeys),
		BodyStyle:   f.str(bodyKeys),
		Condition:   normalizeCondition(f.str(conditionKeys)),
		Price:       f.num(priceKeys),
	}
	if v.StockNumber == "" && v.VIN != "" {
		v.StockNumber = v.VIN
	}
	ok = v.StockNumber != "" || (v.Make != "" && v.Model != "")
	return v, ok
}
