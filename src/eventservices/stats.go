package eventservices

import (
	"github.com/montanaflynn/stats"

	"optionsedge/src/eventmodels"
)

// ComputePerformanceStats aggregates closed trades into win rate and pnl
// distribution figures. An empty trade list yields all zeros.
func ComputePerformanceStats(trades []eventmodels.TradeRecord) eventmodels.PerformanceStats {
	if len(trades) == 0 {
		return eventmodels.PerformanceStats{}
	}

	pnls := make([]float64, 0, len(trades))

	var wins, losses int
	for _, trade := range trades {
		pnls = append(pnls, trade.PnlPercent)

		if trade.PnlPercent > 0 {
			wins++
		} else {
			losses++
		}
	}

	mean, _ := stats.Mean(pnls)
	median, _ := stats.Median(pnls)
	best, _ := stats.Max(pnls)
	worst, _ := stats.Min(pnls)

	return eventmodels.PerformanceStats{
		TotalTrades:      len(trades),
		Wins:             wins,
		Losses:           losses,
		WinRate:          float64(wins) / float64(len(trades)),
		MeanPnlPercent:   mean,
		MedianPnlPercent: median,
		BestPnlPercent:   best,
		WorstPnlPercent:  worst,
	}
}
