package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"optionsedge/src/eventmodels"
)

// WriteTradesCsv renders the trade journal as CSV for the export endpoint
// and the positions CLI.
func WriteTradesCsv(w io.Writer, trades []eventmodels.TradeRecord) error {
	if err := gocsv.Marshal(&trades, w); err != nil {
		return fmt.Errorf("WriteTradesCsv: failed to marshal trades: %w", err)
	}

	return nil
}

func ExportTradesToFile(path string, trades []eventmodels.TradeRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ExportTradesToFile: failed to create %s: %w", path, err)
	}

	defer f.Close()

	return WriteTradesCsv(f, trades)
}
