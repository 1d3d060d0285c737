package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const rubleSign = "₽"

// FormatPrice renders an amount the way the shop shows it: whole rubles
// without a fraction, kopecks with two digits, thousands separated.
func FormatPrice(amount decimal.Decimal) string {
	var s string
	if amount.Equal(amount.Truncate(0)) {
		s = amount.StringFixed(0)
	} else {
		s = amount.StringFixed(2)
	}

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString("," + frac)
	}
	return sign + b.String() + " " + rubleSign
}

// FormatCountdown renders d as mm:ss, rounding partial seconds up so that
// the display reaches 00:00 only when nothing is left.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// PluralDays picks the Russian form of "day" for n.
func PluralDays(n int) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs%100 >= 11 && abs%100 <= 14:
		return "дней"
	case abs%10 == 1:
		return "день"
	case abs%10 >= 2 && abs%10 <= 4:
		return "дня"
	default:
		return "дней"
	}
}

func FormatDays(n int) string {
	return fmt.Sprintf("%d %s", n, PluralDays(n))
}

func WriteJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, map[string]string{"error": message}, code)
}
