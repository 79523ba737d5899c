// detector-compare replays a recorded affect stream through the full
// analyst and the naive baseline and reports how their timelines
// differ.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/go-cmp/cmp"

	"github.com/ethogram-labs/affect.monitor/internal/analyst"
	"github.com/ethogram-labs/affect.monitor/internal/config"
	"github.com/ethogram-labs/affect.monitor/internal/ingest"
	"github.com/ethogram-labs/affect.monitor/internal/session"
)

var (
	csvPath    = flag.String("csv", "", "CSV recording to replay (elapsed,valence,arousal)")
	pcapPath   = flag.String("pcap", "", "UDP packet capture to replay")
	udpPort    = flag.Int("udp-port", 0, "Only replay capture packets addressed to this port (0 = any)")
	detector   = flag.String("detector", "dual", "Detector to run: analyst, naive, or dual")
	jsonOut    = flag.Bool("json", false, "Emit the full result as JSON")
	configPath = flag.String("config", "", "Tuning config JSON file (defaults applied when empty)")
)

// runSink feeds replayed readings into a comparison run.
type runSink struct {
	run *session.ComparisonRun
}

func (rs *runSink) HandleReading(r ingest.Reading) error {
	rs.run.Ingest(r.Affect, r.Elapsed)
	return nil
}

func main() {
	flag.Parse()

	if (*csvPath == "") == (*pcapPath == "") {
		log.Fatal("exactly one of -csv or -pcap is required")
	}

	kind := session.DetectorKind(*detector)
	if !kind.IsValid() {
		log.Fatalf("unknown detector %q (want analyst, naive, or dual)", *detector)
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

	run := session.NewComparisonRun(session.ComparisonConfig{
		Active:      kind,
		Analyst:     tuning.AnalystConfig(),
		NaiveWindow: tuning.GetNaiveWindow(),
	})
	sink := &runSink{run: run}

	var delivered int
	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			log.Fatalf("Failed to open CSV file: %v", err)
		}
		defer f.Close()

		delivered, err = ingest.ReplayCSV(f, "compare", sink)
		if err != nil {
			log.Fatalf("CSV replay failed after %d readings: %v", delivered, err)
		}
	} else {
		var err error
		delivered, err = ingest.ReplayPCAP(context.Background(), *pcapPath, *udpPort, nil, sink)
		if err != nil {
			log.Fatalf("pcap replay failed after %d readings: %v", delivered, err)
		}
	}

	result := run.Result()

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		return
	}

	fmt.Printf("replayed %d readings (last elapsed %s)\n", delivered, result.Stats.LastElapsed)
	if run.Full() != nil {
		fmt.Println("\nfull analyst events:")
		printCounts(result.Stats.FullEventCounts)
	}
	if run.Naive() != nil {
		fmt.Println("\nnaive baseline events:")
		printCounts(result.Stats.NaiveEventCounts)
	}

	// In dual mode show where the two timelines disagree on trouble
	// intervals: deviation crossings vs the windowed-mean baseline.
	if run.Full() != nil && run.Naive() != nil {
		full := run.Full().Timeline().Intervals(run.Full().Elapsed())
		naive := run.Naive().Timeline().Intervals(run.Naive().Elapsed())
		if diff := cmp.Diff(filterKind(full, analyst.GlobalDeviation), filterKind(naive, analyst.LongTermTrouble)); diff != "" {
			fmt.Printf("\ninterval disagreement (-full +naive):\n%s", diff)
		} else {
			fmt.Println("\ndetectors agree on trouble intervals")
		}
	}
}

func printCounts(counts map[analyst.EventKind]int) {
	if len(counts) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, kind := range analyst.Kinds {
		if n, ok := counts[kind]; ok {
			fmt.Printf("  %-26s %d\n", kind, n)
		}
	}
}

func filterKind(spans []analyst.DetectionInterval, kind analyst.EventKind) []analyst.DetectionInterval {
	var out []analyst.DetectionInterval
	for _, span := range spans {
		if span.Kind == kind {
			span.Kind = "" // compare spans, not labels
			out = append(out, span)
		}
	}
	return out
}
