// Package ingest moves affect readings from the perception boundary
// into sessions: a UDP datagram codec and listener for live pipelines,
// plus CSV and pcap replay sources for recorded streams.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
)

// Reading is one decoded perception sample: which model produced it,
// its sequence number within the stream, the elapsed session time, and
// the affect vector itself.
type Reading struct {
	Model   string
	Seq     int64
	Elapsed time.Duration
	Affect  affect.Reading
}

// Handler consumes decoded readings. Implementations route them into
// the session registry and storage.
type Handler interface {
	HandleReading(Reading) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(Reading) error

// HandleReading calls f(r).
func (f HandlerFunc) HandleReading(r Reading) error {
	return f(r)
}

// ParseDatagram decodes the ASCII wire format one perception process
// emits per frame:
//
//	<model>,<seq>,<elapsed-seconds>,<valence>,<arousal>
//
// Elapsed seconds is a decimal number of seconds from session start.
func ParseDatagram(payload []byte) (Reading, error) {
	fields := strings.Split(strings.TrimSpace(string(payload)), ",")
	if len(fields) != 5 {
		return Reading{}, fmt.Errorf("datagram has %d fields, expected 5", len(fields))
	}

	model := strings.TrimSpace(fields[0])
	if model == "" {
		return Reading{}, fmt.Errorf("datagram has empty model field")
	}

	seq, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to parse seq: %w", err)
	}

	elapsedSec, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to parse elapsed seconds: %w", err)
	}

	valence, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to parse valence: %w", err)
	}

	arousal, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to parse arousal: %w", err)
	}

	return Reading{
		Model:   model,
		Seq:     seq,
		Elapsed: time.Duration(elapsedSec * float64(time.Second)),
		Affect:  affect.Reading{Valence: valence, Arousal: arousal},
	}, nil
}
