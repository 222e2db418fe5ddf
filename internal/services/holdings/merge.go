package holdings

import (
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

type holdingTotals struct {
	ticker           string
	name             string
	quantity         float64
	invested         float64
	currentValue     float64
	dailyChangeValue float64
}

// MergeHoldings collapses holdings that share a ticker into one row with
// quantity-weighted prices. Rows are emitted in order of first occurrence.
// Zero-quantity groups are kept with zero-valued derived fields. Merged rows
// carry no account id or label.
func MergeHoldings(list []models.Holding) []models.Holding {
	if len(list) == 0 {
		return []models.Holding{}
	}

	index := make(map[string]int, len(list))
	groups := make([]*holdingTotals, 0, len(list))

	for _, h := range list {
		currentValue := h.LastTradedPrice * h.Quantity
		i, ok := index[h.Ticker]
		if !ok {
			i = len(groups)
			index[h.Ticker] = i
			groups = append(groups, &holdingTotals{ticker: h.Ticker, name: h.Name})
		}
		g := groups[i]
		g.quantity += h.Quantity
		g.invested += h.AverageBuyPrice * h.Quantity
		g.currentValue += currentValue
		g.dailyChangeValue += h.DailyChangePercentage / 100 * currentValue
	}

	merged := make([]models.Holding, 0, len(groups))
	for _, g := range groups {
		averageBuyPrice := safeDiv(g.invested, g.quantity)
		unrealized := g.currentValue - g.invested

		merged = append(merged, models.Holding{
			Ticker:                 g.ticker,
			Name:                   g.name,
			BuyPrice:               averageBuyPrice,
			Quantity:               g.quantity,
			LastTradedPrice:        safeDiv(g.currentValue, g.quantity),
			DailyChange:            safeDiv(g.dailyChangeValue, g.quantity),
			DailyChangePercentage:  safeDiv(g.dailyChangeValue, g.currentValue) * 100,
			DayRange:               NotAvailable,
			Volume:                 0,
			AverageBuyPrice:        averageBuyPrice,
			UnrealizedPL:           unrealized,
			UnrealizedPLPercentage: safeDiv(unrealized, g.invested) * 100,
		})
	}
	return merged
}

type positionTotals struct {
	ticker            string
	product           string
	exchange          string
	quantity          float64
	overnightQuantity float64
	averagePriceTotal float64
	lastPriceTotal    float64
	pnl               float64
}

// MergePositions collapses positions sharing exchange, product and ticker.
// Quantity, overnight quantity and P&L are summed; prices are
// quantity-weighted. Merged rows belong to models.CombinedAccountID.
func MergePositions(list []models.Position) []models.Position {
	if len(list) == 0 {
		return []models.Position{}
	}

	index := make(map[string]int, len(list))
	groups := make([]*positionTotals, 0, len(list))

	for _, p := range list {
		key := p.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, &positionTotals{ticker: p.Ticker, product: p.Product, exchange: p.Exchange})
		}
		g := groups[i]
		g.quantity += p.Quantity
		g.overnightQuantity += p.OvernightQuantity
		g.averagePriceTotal += p.AveragePrice * p.Quantity
		g.lastPriceTotal += p.LastTradedPrice * p.Quantity
		g.pnl += p.PnL
	}

	merged := make([]models.Position, 0, len(groups))
	for _, g := range groups {
		merged = append(merged, models.Position{
			AccountID:         models.CombinedAccountID,
			Ticker:            g.ticker,
			Product:           g.product,
			Exchange:          g.exchange,
			Quantity:          g.quantity,
			OvernightQuantity: g.overnightQuantity,
			AveragePrice:      safeDiv(g.averagePriceTotal, g.quantity),
			LastTradedPrice:   safeDiv(g.lastPriceTotal, g.quantity),
			PnL:               g.pnl,
		})
	}
	return merged
}

// Combine merges the books of every account and stamps the latest fetch time.
func Combine(accounts []models.AccountPortfolio) models.CombinedPortfolio {
	var allHoldings []models.Holding
	var allPositions []models.Position
	var latest *time.Time

	for i := range accounts {
		allHoldings = append(allHoldings, accounts[i].Holdings...)
		allPositions = append(allPositions, accounts[i].Positions...)
		if t := accounts[i].FetchedAt; !t.IsZero() && (latest == nil || t.After(*latest)) {
			latest = &t
		}
	}

	return models.CombinedPortfolio{
		Holdings:  MergeHoldings(allHoldings),
		Positions: MergePositions(allPositions),
		FetchedAt: latest,
	}
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
