package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
	"github.com/ethogram-labs/affect.monitor/internal/api"
	"github.com/ethogram-labs/affect.monitor/internal/config"
	"github.com/ethogram-labs/affect.monitor/internal/db"
	"github.com/ethogram-labs/affect.monitor/internal/ingest"
	"github.com/ethogram-labs/affect.monitor/internal/session"
)

var (
	listen     = flag.String("listen", ":8080", "HTTP listen address")
	udpAddr    = flag.String("udp", ":9999", "UDP listen address for the perception stream")
	udpSource  = flag.String("udp-source", "udp", "Source name recorded for sessions fed over UDP")
	dbPath     = flag.String("db-path", "affect.db", "Path to the SQLite database file")
	configPath = flag.String("config", "", "Path to a tuning config JSON file (defaults applied when empty)")
)

// streamRouter feeds decoded datagrams into the session matching their
// model, starting a new session when none is live. This lets perception
// processes come and go without carrying session IDs on the wire.
type streamRouter struct {
	registry *session.Registry
	database *db.DB
	tuning   *config.TuningConfig
	source   string
}

func (sr *streamRouter) HandleReading(r ingest.Reading) error {
	sess := sr.registry.BySource(sr.source, r.Model)
	if sess == nil {
		sess = session.New(sr.source, r.Model, sr.tuning.AnalystConfig(), sr.tuning.GetNaiveWindow())
		sr.registry.Add(sess)
		log.Printf("started session %s for %s/%s", sess.ID, sr.source, r.Model)

		if sr.database != nil {
			rec := db.SessionRecord{
				SessionID:                     sess.ID,
				Source:                        sess.Source,
				Model:                         sess.Model,
				StartedAt:                     sess.StartedAt.Unix(),
				Sensitivity:                   sess.Tuning.Sensitivity,
				MovingAverageWindow:           sess.Tuning.MovingAverageWindow,
				DerivativeMovingAverageWindow: sess.Tuning.DerivativeMovingAverageWindow,
				WarmupSeconds:                 sess.Tuning.WarmupDelay.Seconds(),
				NominalFPS:                    int(sr.tuning.GetNominalFPS()),
				MinimumFPS:                    int(sr.tuning.GetMinimumFPS()),
			}
			if err := sr.database.InsertSession(rec); err != nil {
				return err
			}
		}
	}

	seq := sess.Seq()
	fresh, err := sess.Feed(affect.Reading{Valence: r.Affect.Valence, Arousal: r.Affect.Arousal}, r.Elapsed)
	if err != nil {
		return err
	}

	if sr.database != nil {
		rec := db.ReadingRecord{
			SessionID:      sess.ID,
			Seq:            seq,
			ElapsedSeconds: r.Elapsed.Seconds(),
			Valence:        r.Affect.Valence,
			Arousal:        r.Affect.Arousal,
		}
		if err := sr.database.InsertReading(rec); err != nil {
			return err
		}
		for _, e := range fresh {
			if _, err := sr.database.InsertEvent(sess.ID, string(e.Kind), e.Elapsed.Seconds()); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	flag.Parse()

	// `affectd migrate <cmd>` manages the schema and exits.
	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbPath)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	} else {
		tuning = config.MustLoadDefaultConfig()
	}
	if err := tuning.Validate(); err != nil {
		log.Fatalf("Invalid tuning config: %v", err)
	}

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	migrationsFS, err := db.MigrationsFS()
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}
	if needed, err := database.CheckAndPromptMigrations(migrationsFS); needed {
		log.Fatalf("%v", err)
	} else if err != nil {
		log.Fatalf("Failed to check migrations: %v", err)
	}

	registry := session.NewRegistry()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// UDP ingest routine
	stats := ingest.NewDatagramStats()
	listener := ingest.NewUDPListener(ingest.UDPListenerConfig{
		Address: *udpAddr,
		Stats:   stats,
		Handler: &streamRouter{
			registry: registry,
			database: database,
			tuning:   tuning,
			source:   *udpSource,
		},
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("UDP listener error: %v", err)
		}
		log.Print("UDP listener routine terminated")
	}()

	// Summary worker routine
	worker := db.NewSummaryWorker(database, tuning.GetSummaryInterval(), tuning.GetSummaryWindow())
	controller := db.NewSummaryController(worker)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controller.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("summary worker error: %v", err)
		}
		log.Print("summary worker routine terminated")
	}()

	// HTTP server routine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, registry, tuning, controller).ServeMux()
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("HTTP server listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
