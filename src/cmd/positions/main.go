package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"optionsedge/src/eventservices"
	"optionsedge/src/store"
	"optionsedge/src/utils"
)

var rootCmd = &cobra.Command{
	Use:   "go run src/cmd/positions/main.go --database-url postgres://...",
	Short: "Inspect tracked positions and the closed-trade journal",
	Run: func(cmd *cobra.Command, args []string) {
		databaseURL, err := cmd.Flags().GetString("database-url")
		if err != nil {
			log.Fatalf("error getting database-url: %v", err)
		}

		exportPath, err := cmd.Flags().GetString("export")
		if err != nil {
			log.Fatalf("error getting export: %v", err)
		}

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			log.Fatalf("error getting limit: %v", err)
		}

		if databaseURL == "" {
			if err := utils.InitEnvironmentVariables(); err != nil {
				log.Debugf("no env file loaded: %v", err)
			}

			databaseURL, err = utils.GetEnv("DATABASE_URL")
			if err != nil {
				log.Fatalf("--database-url not given and $DATABASE_URL not set")
			}
		}

		if err := Run(databaseURL, exportPath, limit); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func Run(databaseURL, exportPath string, limit int) error {
	db, err := store.InitPostgresWithUrl(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	positionStore := store.NewPostgresStore(db)
	ctx := context.Background()

	if exportPath != "" {
		trades, err := positionStore.ListTrades(ctx, limit)
		if err != nil {
			return err
		}

		if err := utils.ExportTradesToFile(exportPath, trades); err != nil {
			return err
		}

		fmt.Println("CSV file written to: ", exportPath)

		return nil
	}

	positions, err := positionStore.ListOpen(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Open positions:")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Ticker", "Strike", "Exp", "Right", "Qty", "Entry", "PnL", "TP", "SL"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnSeparator("")

	for _, position := range positions {
		table.Append([]string{
			position.ID,
			position.Ticker,
			fmt.Sprintf("$%.2f", position.Contract.Strike),
			position.Contract.Expiration,
			string(position.Contract.Right),
			fmt.Sprintf("%d", position.Contracts),
			fmt.Sprintf("$%.2f", position.EntryPrice),
			fmt.Sprintf("%.1f%%", position.PnlPercent*100),
			formatThreshold(position.TakeProfit),
			formatThreshold(position.StopLoss),
		})
	}

	table.Render()

	trades, err := positionStore.ListTrades(ctx, limit)
	if err != nil {
		return err
	}

	stats := eventservices.ComputePerformanceStats(trades)

	fmt.Printf("\nClosed trades: %d (win rate %.1f%%, mean pnl %.1f%%)\n", stats.TotalTrades, stats.WinRate*100, stats.MeanPnlPercent*100)

	return nil
}

func formatThreshold(value *float64) string {
	if value == nil {
		return "-"
	}

	return fmt.Sprintf("%.1f%%", *value*100)
}

func main() {
	start := time.Now()
	defer func() {
		log.Debugf("done in %v", time.Since(start))
	}()

	rootCmd.Flags().String("database-url", "", "Postgres connection string; falls back to $DATABASE_URL")
	rootCmd.Flags().String("export", "", "Write the closed-trade journal to this CSV file instead of printing tables")
	rootCmd.Flags().Int("limit", 0, "Maximum number of trades to read (0 for all)")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
