package pipeline

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const currencyPattern = `R\$|US\$|CA\$|C\$|AU\$|A\$|MX\$|€|£|\$|\b(?:USD|EUR|GBP|BRL|CAD|AUD|MXN|CHF)\b`

var (
	freeRe     = regexp.MustCompile(`(?i)\b(?:free|gratis|gratuito|gratuita|no\s+cover|entrada\s+(?:franca|livre))\b|grátis`)
	priceRe    = regexp.MustCompile(`(?i)(` + currencyPattern + `)?\s?(\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)(?:\s?(` + currencyPattern + `))?`)
	notPriceRe = regexp.MustCompile(`(?i)^\s*(?:[ap]\.?\s?m\b|h\b|:|hrs?\b|hours?\b|min|%|st\b|nd\b|rd\b|th\b)`)

	hundred = decimal.NewFromInt(100)
)

var currencySymbols = map[string]string{
	"R$":  "BRL",
	"US$": "USD",
	"CA$": "CAD",
	"C$":  "CAD",
	"AU$": "AUD",
	"A$":  "AUD",
	"MX$": "MXN",
	"€":   "EUR",
	"£":   "GBP",
}

// parsePrice 解析自由文本价格；免费返回 0；区间取最小值；无法解析返回 nil
// 出现币种符号时只采纳带币种的金额，避免把 "9 PM" 之类误当价格
func parsePrice(raw *string, countryCode string) (*int64, *string) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}

	type amount struct {
		value    decimal.Decimal
		currency string
	}
	var plain, withCurrency []amount
	for _, idx := range priceRe.FindAllStringSubmatchIndex(s, -1) {
		if notPriceRe.MatchString(s[idx[1]:]) {
			continue
		}
		v, ok := parseAmount(s[idx[4]:idx[5]])
		if !ok {
			continue
		}
		cur := ""
		if idx[2] >= 0 {
			cur = currencyCode(s[idx[2]:idx[3]], countryCode)
		} else if idx[6] >= 0 {
			cur = currencyCode(s[idx[6]:idx[7]], countryCode)
		}
		if cur != "" {
			withCurrency = append(withCurrency, amount{v, cur})
		} else {
			plain = append(plain, amount{v, ""})
		}
	}

	candidates := withCurrency
	if len(candidates) == 0 {
		candidates = plain
	}

	if freeRe.MatchString(s) {
		var zero int64
		if len(withCurrency) > 0 {
			c := withCurrency[0].currency
			return &zero, &c
		}
		return &zero, nil
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.value.LessThan(best.value) {
			best = c
		}
	}
	cents := best.value.Mul(hundred).Round(0).IntPart()
	if best.currency == "" {
		return &cents, nil
	}
	cur := best.currency
	return &cents, &cur
}

// parseAmount 根据分隔符位置区分千分位与小数点：1.234,56 / 1,234.56 / 12,50 / 1.500
func parseAmount(s string) (decimal.Decimal, bool) {
	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if len(s)-lastComma-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// currencyCode 符号或代码转 ISO 4217；裸 "$" 按国家推断
func currencyCode(token, countryCode string) string {
	token = strings.TrimSpace(token)
	if code, ok := currencySymbols[strings.ToUpper(token)]; ok {
		return code
	}
	if token == "$" {
		switch strings.ToUpper(countryCode) {
		case "CA":
			return "CAD"
		case "AU":
			return "AUD"
		case "NZ":
			return "NZD"
		case "MX":
			return "MXN"
		default:
			return "USD"
		}
	}
	return strings.ToUpper(token)
}
