package model

import "strings"

// modelRate holds USD pricing per million tokens.
type modelRate struct {
	inPerM  float64
	outPerM float64
}

// Published list prices. Unknown models fall back to defaultRate so cost
// accounting never silently records zero for a priced call.
var modelRates = map[string]modelRate{
	"gpt-4o":                     {inPerM: 2.50, outPerM: 10.00},
	"gpt-4o-mini":                {inPerM: 0.15, outPerM: 0.60},
	"gpt-4-turbo":                {inPerM: 10.00, outPerM: 30.00},
	"gpt-3.5-turbo":              {inPerM: 0.50, outPerM: 1.50},
	"claude-3-5-sonnet-20241022": {inPerM: 3.00, outPerM: 15.00},
	"claude-3-5-haiku-20241022":  {inPerM: 0.80, outPerM: 4.00},
	"claude-3-opus-20240229":     {inPerM: 15.00, outPerM: 75.00},
	"mistral-small-latest":       {inPerM: 0.20, outPerM: 0.60},
	"mistral-large-latest":       {inPerM: 2.00, outPerM: 6.00},
}

var defaultRate = modelRate{inPerM: 1.00, outPerM: 3.00}

// CostUSD computes the USD cost of a completion from token usage. Exact model
// names are matched first, then a prefix match so dated snapshot names price
// like their base model.
func CostUSD(model string, tokensIn, tokensOut int) float64 {
	rate, ok := modelRates[model]
	if !ok {
		for name, r := range modelRates {
			if strings.HasPrefix(model, name) {
				rate, ok = r, true
				break
			}
		}
	}
	if !ok {
		rate = defaultRate
	}
	return float64(tokensIn)/1e6*rate.inPerM + float64(tokensOut)/1e6*rate.outPerM
}
