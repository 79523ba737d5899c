// session-replay drives a recorded affect stream (CSV export or UDP
// packet capture) through a fresh session and writes the detection
// artifacts: BORIS annotation files, raw series, and an optional
// detection plot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
	"github.com/ethogram-labs/affect.monitor/internal/boris"
	"github.com/ethogram-labs/affect.monitor/internal/charts"
	"github.com/ethogram-labs/affect.monitor/internal/config"
	"github.com/ethogram-labs/affect.monitor/internal/db"
	"github.com/ethogram-labs/affect.monitor/internal/ingest"
	"github.com/ethogram-labs/affect.monitor/internal/security"
	"github.com/ethogram-labs/affect.monitor/internal/session"
)

var (
	csvPath    = flag.String("csv", "", "CSV recording to replay (elapsed,valence,arousal)")
	pcapPath   = flag.String("pcap", "", "UDP packet capture to replay")
	udpPort    = flag.Int("udp-port", 0, "Only replay capture packets addressed to this port (0 = any)")
	model      = flag.String("model", "replay", "Model name recorded for the session")
	source     = flag.String("source", "", "Source name (defaults to the input file name)")
	dbFile     = flag.String("db-path", "", "Persist the session into this SQLite database (optional)")
	outDir     = flag.String("out", ".", "Directory for exported annotation and series files")
	pngPlot    = flag.Bool("png", false, "Also write a detection plot PNG")
	configPath = flag.String("config", "", "Tuning config JSON file (defaults applied when empty)")
)

// sessionSink feeds replayed readings into one session and optionally
// persists them.
type sessionSink struct {
	sess     *session.Session
	database *db.DB
}

func (ss *sessionSink) HandleReading(r ingest.Reading) error {
	seq := ss.sess.Seq()
	fresh, err := ss.sess.Feed(affect.Reading{Valence: r.Affect.Valence, Arousal: r.Affect.Arousal}, r.Elapsed)
	if err != nil {
		return err
	}

	if ss.database != nil {
		rec := db.ReadingRecord{
			SessionID:      ss.sess.ID,
			Seq:            seq,
			ElapsedSeconds: r.Elapsed.Seconds(),
			Valence:        r.Affect.Valence,
			Arousal:        r.Affect.Arousal,
		}
		if err := ss.database.InsertReading(rec); err != nil {
			return err
		}
		for _, e := range fresh {
			if _, err := ss.database.InsertEvent(ss.sess.ID, string(e.Kind), e.Elapsed.Seconds()); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	flag.Parse()

	if (*csvPath == "") == (*pcapPath == "") {
		log.Fatal("exactly one of -csv or -pcap is required")
	}

	input := *csvPath
	if input == "" {
		input = *pcapPath
	}
	if *source == "" {
		*source = filepath.Base(input)
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

	var database *db.DB
	if *dbFile != "" {
		var err error
		database, err = db.OpenDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		migrationsFS, err := db.MigrationsFS()
		if err != nil {
			log.Fatalf("Failed to load migrations: %v", err)
		}
		if err := database.MigrateUp(migrationsFS); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	sess := session.New(*source, *model, tuning.AnalystConfig(), tuning.GetNaiveWindow())
	if database != nil {
		rec := db.SessionRecord{
			SessionID:                     sess.ID,
			Source:                        sess.Source,
			Model:                         sess.Model,
			StartedAt:                     sess.StartedAt.Unix(),
			Sensitivity:                   sess.Tuning.Sensitivity,
			MovingAverageWindow:           sess.Tuning.MovingAverageWindow,
			DerivativeMovingAverageWindow: sess.Tuning.DerivativeMovingAverageWindow,
			WarmupSeconds:                 sess.Tuning.WarmupDelay.Seconds(),
			NominalFPS:                    int(tuning.GetNominalFPS()),
			MinimumFPS:                    int(tuning.GetMinimumFPS()),
		}
		if err := database.InsertSession(rec); err != nil {
			log.Fatalf("Failed to persist session: %v", err)
		}
	}

	sink := &sessionSink{sess: sess, database: database}

	var delivered int
	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			log.Fatalf("Failed to open CSV file: %v", err)
		}
		defer f.Close()

		delivered, err = ingest.ReplayCSV(f, *model, sink)
		if err != nil {
			log.Fatalf("CSV replay failed after %d readings: %v", delivered, err)
		}
	} else {
		stats := ingest.NewDatagramStats()
		var err error
		delivered, err = ingest.ReplayPCAP(context.Background(), *pcapPath, *udpPort, stats, sink)
		if err != nil {
			log.Fatalf("pcap replay failed after %d readings: %v", delivered, err)
		}
		stats.LogStats()
	}

	sess.Finish()

	a := sess.Analyst()
	log.Printf("session %s: %d readings over %s, %d events", sess.ID, delivered, a.Elapsed(), a.Timeline().Count())
	for _, span := range a.Timeline().Intervals(a.Elapsed()) {
		log.Printf("  %-26s %8.3fs .. %.3fs", span.Kind, span.Start.Seconds(), span.End.Seconds())
	}

	base := security.SanitizeFilename(sess.Source)
	if err := security.ValidateExportPath(filepath.Join(*outDir, base)); err != nil {
		log.Fatalf("Invalid export path: %v", err)
	}

	exporter := boris.NewExporter()
	if err := exporter.Export(*outDir, base, a); err != nil {
		log.Fatalf("Failed to export annotations: %v", err)
	}
	log.Printf("wrote %s.boris.tsv, %s.valence.txt, %s.arousal.txt to %s", base, base, base, *outDir)

	if *pngPlot {
		plotPath := filepath.Join(*outDir, fmt.Sprintf("%s.detection.png", base))
		if err := charts.SaveDetectionPNG(plotPath, sess.Source, sess.ElapsedSeconds(), a); err != nil {
			log.Fatalf("Failed to write detection plot: %v", err)
		}
		log.Printf("wrote %s", plotPath)
	}
}
