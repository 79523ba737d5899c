package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
)

// ReplayCSV feeds a recorded stream of `elapsed,valence,arousal` rows
// through the handler, one reading per row in file order. A header row
// is skipped if the first field does not parse as a number. Returns the
// number of readings delivered.
func ReplayCSV(r io.Reader, model string, handler Handler) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	var seq int64
	delivered := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return delivered, nil
		}
		if err != nil {
			return delivered, fmt.Errorf("read csv row: %w", err)
		}

		elapsedSec, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			if seq == 0 && delivered == 0 {
				continue // header row
			}
			return delivered, fmt.Errorf("row %d: failed to parse elapsed seconds: %w", seq, err)
		}
		valence, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return delivered, fmt.Errorf("row %d: failed to parse valence: %w", seq, err)
		}
		arousal, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return delivered, fmt.Errorf("row %d: failed to parse arousal: %w", seq, err)
		}

		reading := Reading{
			Model:   model,
			Seq:     seq,
			Elapsed: time.Duration(elapsedSec * float64(time.Second)),
			Affect:  affect.Reading{Valence: valence, Arousal: arousal},
		}
		seq++

		if err := handler.HandleReading(reading); err != nil {
			return delivered, fmt.Errorf("row %d: %w", seq-1, err)
		}
		delivered++
	}
}
