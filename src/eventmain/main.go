package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"optionsedge/src/brokerage"
	"optionsedge/src/eventconsumers"
	"optionsedge/src/eventmodels"
	"optionsedge/src/eventproducers/api"
	"optionsedge/src/eventpubsub"
	"optionsedge/src/eventservices"
	"optionsedge/src/store"
	"optionsedge/src/utils"
)

func main() {
	run()
}

func run() {
	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Warnf("continuing without env file: %v", err)
	}

	log.SetLevel(log.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(log.DebugLevel)
	}

	port, err := utils.GetEnv("PORT")
	if err != nil {
		log.Fatalf("$PORT not set: %v", err)
	}

	cfg, err := eventmodels.LoadRiskConfig(os.Getenv("RISK_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("failed to load risk config: %v", err)
	}

	dryRun := os.Getenv("DRY_RUN") == "true"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := sync.WaitGroup{}

	// Setup the brokerage gateway
	var gateway brokerage.Gateway
	if dryRun {
		log.Info("DRY_RUN set: using the brokerage simulator")

		sim := brokerage.NewSimulator()
		sim.AddAccount(os.Getenv("DRY_RUN_USERNAME"), os.Getenv("DRY_RUN_PASSWORD"))
		gateway = sim
	} else {
		brokerageURL, urlErr := utils.GetEnv("BROKERAGE_URL")
		if urlErr != nil {
			log.Fatalf("$BROKERAGE_URL not set: %v", urlErr)
		}

		gateway = brokerage.NewRobinhoodClient(brokerageURL, os.Getenv("BROKERAGE_BEARER_TOKEN"))
	}

	// Setup the position store
	var positionStore store.PositionStore
	if dryRun {
		positionStore = store.NewMemoryStore()
	} else {
		databaseURL, dbErr := utils.GetEnv("DATABASE_URL")
		if dbErr != nil {
			log.Fatalf("$DATABASE_URL not set: %v", dbErr)
		}

		db, dbErr := store.InitPostgresWithUrl(databaseURL)
		if dbErr != nil {
			log.Fatalf("failed to connect to postgres: %v", dbErr)
		}

		positionStore = store.NewPostgresStore(db)
	}

	// Setup services
	hub := eventpubsub.NewHub()
	trades := eventservices.NewTradeService(gateway, positionStore, hub)

	analystURL := os.Getenv("ANALYST_URL")
	var analyst eventservices.Analyst
	if analystURL != "" {
		analyst = eventservices.NewHttpAnalyst(analystURL)
	} else {
		log.Warn("$ANALYST_URL not set: analysis requests will return hold")
		analyst = eventservices.AnalystFunc(func(ctx context.Context, ticker string) (*eventmodels.AnalysisResult, error) {
			return &eventmodels.AnalysisResult{Ticker: ticker, Decision: "hold", Reasoning: "no analyst configured"}, nil
		})
	}

	analysis := eventservices.NewAnalysisJobService(analyst, hub, cfg.JobStaleness)

	// the monitor arms on the first session issued
	var monitor *eventconsumers.PositionMonitorWorker

	auth := eventservices.NewAuthService(gateway, cfg.SessionTTL, cfg.ChallengeTTL, func(identity string) {
		log.Infof("session issued for %s", identity)
		monitor.Arm()
	})

	monitor = eventconsumers.NewPositionMonitorWorker(&wg, auth, gateway, positionStore, trades, hub, cfg)
	monitor.Start(ctx)

	// Setup web server
	router := mux.NewRouter()
	api.NewApiServer(auth, positionStore, trades, analysis, hub, cfg).SetupHandler(router)

	srv := &http.Server{
		Handler: router,
		Addr:    fmt.Sprintf(":%s", port),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		log.Infof("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}
	}()

	// Create channel for shutdown signals.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	log.Info("Main: init complete")

	// Block here until program is shut down
	<-stop

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Errorf("server shutdown: %v", err)
	}

	cancel()

	wg.Wait()

	log.Info("Main: gracefully stopped!")
}
