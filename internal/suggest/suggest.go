// Package suggest picks one add-on item (an accessory or a safety item) to
// offer at the till for what the active transaction already holds.
package suggest

import (
	"math"
	"sort"

	"lpgpos/internal/domain"
)

type Suggestion struct {
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	PriceCents int64   `json:"price_cents"`
	ReasonCode string  `json:"reason_code"`
	Confidence float64 `json:"confidence"`
}

// Pairings maps what is being sold to how well each add-on category goes
// with it, from 0 to 1.
type Pairings map[domain.ProductCategory]map[domain.ProductCategory]float64

func DefaultPairings() Pairings {
	return Pairings{
		domain.CategoryCylinder: {
			domain.CategoryAccessory:  0.9,
			domain.CategorySafetyItem: 0.7,
		},
		domain.CategoryBulkLPG: {
			domain.CategorySafetyItem: 0.8,
			domain.CategoryAccessory:  0.2,
		},
		domain.CategoryAccessory: {
			domain.CategorySafetyItem: 0.6,
		},
	}
}

type Advisor struct {
	pairings      Pairings
	minConfidence float64
	fullStock     int
}

func NewAdvisor(pairings Pairings) *Advisor {
	if pairings == nil {
		pairings = DefaultPairings()
	}
	return &Advisor{
		pairings:      pairings,
		minConfidence: 0.35,
		fullStock:     50,
	}
}

// Suggest scores every add-on product against the transaction. Products
// already in the cart, inactive, or at or below their reorder threshold are
// never offered.
func (a *Advisor) Suggest(tx domain.Transaction, products []domain.Product) (Suggestion, bool) {
	triggers := a.triggers(tx, products)
	if len(triggers) == 0 {
		return Suggestion{}, false
	}

	inCart := make(map[string]struct{}, len(tx.Items))
	for _, line := range tx.Items {
		inCart[line.SKU] = struct{}{}
	}

	candidates := append([]domain.Product(nil), products...)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	var best Suggestion
	found := false
	for _, product := range candidates {
		if product.Category != domain.CategoryAccessory && product.Category != domain.CategorySafetyItem {
			continue
		}
		if _, ok := inCart[product.ID]; ok {
			continue
		}
		if !product.Active || product.StockLevel <= 0 || product.BelowReorderThreshold() {
			continue
		}

		pairing, source := 0.0, domain.ProductCategory("")
		for _, trigger := range triggers {
			if v := a.pairings[trigger][product.Category]; v > pairing {
				pairing, source = v, trigger
			}
		}
		stockScore := clamp(float64(product.StockLevel)/float64(a.fullStock), 0, 1)

		confidence := clamp(0.75*pairing+0.25*stockScore, 0, 1)
		if confidence < a.minConfidence || pairing == 0 {
			continue
		}
		if !found || confidence > best.Confidence {
			best = Suggestion{
				ProductID:  product.ID,
				Name:       product.Name,
				PriceCents: product.BasePriceCents,
				ReasonCode: "pairs_with_" + string(source),
				Confidence: confidence,
			}
			found = true
		}
	}

	best.Confidence = round2(best.Confidence)
	return best, found
}

// triggers lists the categories being sold. Sale modes count even when
// their line SKU is not a catalog product.
func (a *Advisor) triggers(tx domain.Transaction, products []domain.Product) []domain.ProductCategory {
	byID := make(map[string]domain.ProductCategory, len(products))
	for _, product := range products {
		byID[product.ID] = product.Category
	}

	seen := make(map[domain.ProductCategory]struct{})
	switch tx.Type {
	case domain.TransactionExchange, domain.TransactionRefill:
		seen[domain.CategoryCylinder] = struct{}{}
	case domain.TransactionBulk, domain.TransactionCustomWeight:
		seen[domain.CategoryBulkLPG] = struct{}{}
	}
	for _, line := range tx.Items {
		if category, ok := byID[line.SKU]; ok {
			seen[category] = struct{}{}
		}
	}

	out := make([]domain.ProductCategory, 0, len(seen))
	for category := range seen {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
