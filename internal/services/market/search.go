package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// searchExchanges and searchTypes bound the search to Indian listed
// equities and ETFs.
var (
	searchExchanges = map[string]bool{"NSE": true, "BSE": true}
	searchTypes     = map[string]string{"COMMON STOCK": "EQUITY", "ETF": "ETF"}
)

// providerSearchLimit is how many raw matches are requested before filtering.
const providerSearchLimit = 50

// Search finds NSE and BSE stocks and ETFs matching query. Matches whose
// code or name equals the query come first, the rest keep the provider's
// relevance order. Results are priced on a best-effort basis.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.ErrEmptyQuery
	}
	if s.client == nil {
		return nil, models.ErrMarketDataUnavailable
	}

	matches, err := s.client.SearchSymbols(ctx, query, providerSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search stocks: %w", err)
	}

	results := make([]models.SearchResult, 0, len(matches))
	exact := make(map[string]bool)
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		exchange := strings.ToUpper(m.Exchange)
		quoteType, ok := searchTypes[strings.ToUpper(m.Type)]
		if !ok || !searchExchanges[exchange] {
			continue
		}
		symbol := strings.ToUpper(m.Code) + "." + exchange
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		if strings.EqualFold(m.Code, query) || strings.EqualFold(m.Name, query) {
			exact[symbol] = true
		}
		results = append(results, models.SearchResult{
			Symbol:   symbol,
			Name:     m.Name,
			Exchange: exchange,
			Type:     quoteType,
			ISIN:     m.ISIN,
			Currency: m.Currency,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return exact[results[i].Symbol] && !exact[results[j].Symbol]
	})

	limit := s.config.SearchLimit
	if limit <= 0 {
		limit = 20
	}
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return results, nil
	}

	symbols := make([]string, len(results))
	for i, r := range results {
		symbols[i] = r.Symbol
	}
	quotes, err := s.quotes(ctx, symbols)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("Search pricing failed, returning unpriced results")
	}
	for i := range results {
		if q := quotes[results[i].Symbol]; q != nil {
			results[i].Price = q.LastPrice
			results[i].Change = q.Change
			results[i].ChangePercent = q.ChangePercent
		}
	}
	return results, nil
}
