package eventservices

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"optionsedge/src/eventmodels"
)

func Test_ComputePerformanceStats(t *testing.T) {
	t.Run("empty trade list yields zeros", func(t *testing.T) {
		result := ComputePerformanceStats(nil)

		assert.Equal(t, eventmodels.PerformanceStats{}, result)
	})

	t.Run("aggregates wins, losses and pnl distribution", func(t *testing.T) {
		// arrange
		trades := []eventmodels.TradeRecord{
			{PnlPercent: 0.40},
			{PnlPercent: 0.20},
			{PnlPercent: -0.25},
			{PnlPercent: 0.10},
		}

		// act
		result := ComputePerformanceStats(trades)

		// assert
		assert.Equal(t, 4, result.TotalTrades)
		assert.Equal(t, 3, result.Wins)
		assert.Equal(t, 1, result.Losses)
		assert.InDelta(t, 0.75, result.WinRate, 1e-9)
		assert.InDelta(t, 0.1125, result.MeanPnlPercent, 1e-9)
		assert.InDelta(t, 0.15, result.MedianPnlPercent, 1e-9)
		assert.InDelta(t, 0.40, result.BestPnlPercent, 1e-9)
		assert.InDelta(t, -0.25, result.WorstPnlPercent, 1e-9)
	})

	t.Run("breakeven counts as a loss", func(t *testing.T) {
		trades := []eventmodels.TradeRecord{{PnlPercent: 0}}

		result := ComputePerformanceStats(trades)

		assert.Equal(t, 0, result.Wins)
		assert.Equal(t, 1, result.Losses)
	})
}
