package api

import (
	"net/http"

	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
	"optionsedge/src/eventservices"
	"optionsedge/src/utils"
)

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

type exportTradesQuery struct {
	Limit  int    `schema:"limit"`
	Format string `schema:"format"`
}

func (s *ApiServer) handleExportTrades(w http.ResponseWriter, r *http.Request) {
	query := exportTradesQuery{Limit: 1000, Format: "csv"}
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid query parameters"})
		return
	}

	trades, err := s.store.ListTrades(r.Context(), query.Limit)
	if err != nil {
		respondError(w, err)
		return
	}

	if query.Format == "json" {
		if trades == nil {
			trades = []eventmodels.TradeRecord{}
		}

		respondJSON(w, http.StatusOK, trades)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)

	if err := utils.WriteTradesCsv(w, trades); err != nil {
		log.Errorf("handleExportTrades: %v", err)
	}
}

func (s *ApiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.ListTrades(r.Context(), 0)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, eventservices.ComputePerformanceStats(trades))
}
