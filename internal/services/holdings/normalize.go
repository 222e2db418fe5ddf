// Package holdings converts broker records into canonical holdings and
// positions, and merges them across accounts.
package holdings

import (
	"fmt"

	"github.com/bobmcallan/folio/internal/models"
)

// NotAvailable is the placeholder for fields the broker does not supply.
const NotAvailable = "N/A"

// NormalizeHolding maps a Kite holding to a Holding. Pending settlement (T1)
// quantity counts toward the position. Until a live quote is applied the
// holding is valued at cost, so unrealized P&L starts at zero.
func NormalizeHolding(raw models.KiteHolding, accountID, accountLabel string) models.Holding {
	quantity := raw.Quantity.Float() + raw.T1Quantity.Float()
	averagePrice := raw.AveragePrice.Float()

	return models.Holding{
		Ticker:                 raw.TradingSymbol,
		Name:                   raw.TradingSymbol,
		BuyPrice:               averagePrice,
		Quantity:               quantity,
		LastTradedPrice:        averagePrice,
		DailyChange:            0,
		DailyChangePercentage:  0,
		DayRange:               NotAvailable,
		Volume:                 0,
		AverageBuyPrice:        averagePrice,
		UnrealizedPL:           0,
		UnrealizedPLPercentage: 0,
		AccountID:              accountID,
		AccountLabel:           accountLabel,
	}
}

// NormalizePosition maps a Kite position to a Position.
func NormalizePosition(raw models.KitePosition, accountID string) models.Position {
	return models.Position{
		AccountID:         accountID,
		Ticker:            raw.TradingSymbol,
		Product:           raw.Product,
		Exchange:          raw.Exchange,
		Quantity:          raw.Quantity.Float(),
		OvernightQuantity: raw.OvernightQuantity.Float(),
		AveragePrice:      raw.AveragePrice.Float(),
		LastTradedPrice:   raw.LastPrice.Float(),
		PnL:               raw.PnL.Float(),
	}
}

// NormalizeAccount normalizes one account's books. Every record must carry a
// trading symbol; a record without one fails the whole batch with
// models.ErrMalformedResponse.
func NormalizeAccount(holdings []models.KiteHolding, positions []models.KitePosition, accountID, accountLabel string) ([]models.Holding, []models.Position, error) {
	outHoldings := make([]models.Holding, 0, len(holdings))
	for i, raw := range holdings {
		if raw.TradingSymbol == "" {
			return nil, nil, fmt.Errorf("holding %d for %s: missing tradingsymbol: %w", i, accountID, models.ErrMalformedResponse)
		}
		outHoldings = append(outHoldings, NormalizeHolding(raw, accountID, accountLabel))
	}

	outPositions := make([]models.Position, 0, len(positions))
	for i, raw := range positions {
		if raw.TradingSymbol == "" {
			return nil, nil, fmt.Errorf("position %d for %s: missing tradingsymbol: %w", i, accountID, models.ErrMalformedResponse)
		}
		outPositions = append(outPositions, NormalizePosition(raw, accountID))
	}

	return outHoldings, outPositions, nil
}
