package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/logistix/vintedsync/internal/market"
	"github.com/logistix/vintedsync/internal/store"
)

var historyHeaders = []string{
	"analysis_timestamp", "search_text", "items_found", "sellers_count",
	"price_min", "price_max", "price_average", "price_median",
	"recommended_price", "competitiveness_score", "price_trend_30d",
}

// WriteHistoryCSV renders persisted market analyses as CSV, one row per
// analysis, newest first. Cells are escaped against formula injection.
func WriteHistoryCSV(w io.Writer, records []store.AnalysisRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, rec := range records {
		var a market.Analysis
		if err := json.Unmarshal(rec.Data, &a); err != nil {
			return fmt.Errorf("decode analysis from %s: %w", rec.Timestamp, err)
		}

		row := []string{
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.SearchText,
			strconv.Itoa(a.Summary.ItemsFound),
			strconv.Itoa(a.Summary.SellersCount),
			formatFloat(a.PriceAnalysis.Min),
			formatFloat(a.PriceAnalysis.Max),
			formatFloat(a.PriceAnalysis.Average),
			formatFloat(a.PriceAnalysis.Median),
			formatFloat(a.KPIs.RecommendedPrice),
			formatFloat(a.KPIs.CompetitivenessScore),
			formatFloat(a.KPIs.PriceTrend30d),
		}
		if err := cw.Write(EscapeCSVRow(row)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
