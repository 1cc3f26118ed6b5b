package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Towns are the delivery points Buyza serves
var Towns = []string{"Harare", "Bulawayo", "Gweru", "Mutare", "Masvingo", "Chinhoyi"}

// ErrInvalidAmount is returned when an amount cannot be parsed
var ErrInvalidAmount = errors.New("invalid amount")

const (
	// OnlineRate is the service fee in percent for online orders
	OnlineRate = 10
	// AssistedRate is the service fee in percent for assisted orders
	AssistedRate = 20
)

var deliveryFees = map[string]int64{
	"harare":   15000,
	"bulawayo": 20000,
	"gweru":    18000,
}

const defaultDeliveryFee int64 = 25000

var deliveryTimelines = map[string]string{
	"harare":   "3 business days",
	"bulawayo": "4 business days",
	"gweru":    "3-5 business days",
}

const defaultTimeline = "up to 7 business days"

// Amounts are capped below R10 trillion so cents always fit in an int64
const (
	maxWholeDigits = 13
	maxAmount      = 1e13
)

var (
	// the R must not end a word, as in "Charger 20W" or "Order 2"
	randPattern  = regexp.MustCompile(`(?:^|[^A-Za-z0-9])[Rr]\s*([0-9]+(?:\.[0-9]+)?)`)
	totalPattern = regexp.MustCompile(`(?i)total[:\s]*([0-9]+(?:\.[0-9]+)?)`)
	townPattern  = regexp.MustCompile(`(?i)delivery\s*[:\-]?\s*(\w+)`)
)

// Quote is the price breakdown sent to a customer
type Quote struct {
	Goods       int64  `json:"goods"`
	ServiceFee  int64  `json:"service_fee"`
	DeliveryFee int64  `json:"delivery_fee"`
	Subtotal    int64  `json:"subtotal"`
	Rate        int    `json:"rate"`
	Town        string `json:"town"`
}

// NewQuote prices goods for an order type and delivery town
func NewQuote(goods int64, orderType, town string) Quote {
	rate := ServiceFeeRate(orderType)
	fee := percentOf(goods, rate)
	delivery := DeliveryFee(town)
	return Quote{
		Goods:       goods,
		ServiceFee:  fee,
		DeliveryFee: delivery,
		Subtotal:    goods + fee + delivery,
		Rate:        rate,
		Town:        town,
	}
}

// percentOf returns pct percent of cents, rounded half up
func percentOf(cents int64, pct int) int64 {
	return (cents*int64(pct) + 50) / 100
}

// ServiceFeeRate returns the service fee percentage for an order type
func ServiceFeeRate(orderType string) int {
	if strings.Contains(strings.ToLower(orderType), "assisted") {
		return AssistedRate
	}
	return OnlineRate
}

// DeliveryFee returns the delivery fee in cents for a town
func DeliveryFee(town string) int64 {
	if fee, ok := deliveryFees[strings.ToLower(strings.TrimSpace(town))]; ok {
		return fee
	}
	return defaultDeliveryFee
}

// DeliveryTimeline returns the expected delivery time for a town
func DeliveryTimeline(town string) string {
	if tl, ok := deliveryTimelines[strings.ToLower(strings.TrimSpace(town))]; ok {
		return tl
	}
	return defaultTimeline
}

// ParseAmount parses a rand amount such as "R1,250.50" or "850" into cents
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimSpace(strings.TrimLeft(s, "Rr"))
	if s == "" {
		return 0, ErrInvalidAmount
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(whole) > maxWholeDigits {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, s)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var cents int64
	if hasFrac {
		if frac == "" || len(frac) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	return units*100 + cents, nil
}

// ExtractTotal finds the goods total in an order message
func ExtractTotal(text string) (int64, bool) {
	clean := strings.ReplaceAll(text, ",", "")
	for _, p := range []*regexp.Regexp{randPattern, totalPattern} {
		m := p.FindStringSubmatch(clean)
		if m == nil {
			continue
		}
		if amount, err := parseLoose(m[1]); err == nil {
			return amount, true
		}
	}
	return 0, false
}

// parseLoose accepts more than two decimals and rounds to the cent
func parseLoose(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f >= maxAmount {
		return 0, ErrInvalidAmount
	}
	return int64(f*100 + 0.5), nil
}

// ExtractTown finds the delivery town named after "Delivery:" in a message
func ExtractTown(text string) (string, bool) {
	m := townPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return capitalize(m[1]), true
}

// DetectTown returns the first known town mentioned anywhere in text
func DetectTown(text string) string {
	lower := strings.ToLower(text)
	for _, t := range Towns {
		if strings.Contains(lower, strings.ToLower(t)) {
			return t
		}
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// Format renders cents as a rand amount, e.g. R850.00
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR%d.%02d", sign, cents/100, cents%100)
}
