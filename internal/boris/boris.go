// Package boris renders detection timelines into the tab-separated
// annotation format consumed by behavioural-coding tools, and writes
// the companion valence/arousal series files.
package boris

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/analyst"
	"github.com/ethogram-labs/affect.monitor/internal/fsutil"
)

// EventLabel is the freeform label column attached to every exported
// annotation row.
const EventLabel = "foo"

// FormatSeconds renders an elapsed time as seconds with millisecond
// precision, truncated rather than rounded. Downstream annotation tools
// compare these values against video timecodes, so truncation must
// match the exporter that produced the ground truth.
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%d.%03d", d/time.Second, (d%time.Second)/time.Millisecond)
}

// AnnotationLine renders one event as a single annotation row:
// seconds, blank, kind, blank, label, tab-separated.
func AnnotationLine(e analyst.Event) string {
	return fmt.Sprintf("%s\t\t%s\t\t%s", FormatSeconds(e.Elapsed), e.Kind, EventLabel)
}

// WriteAnnotations writes one annotation row per event, in the order
// given. Callers pass the flattened timeline; per-kind order is
// preserved and no cross-kind sort is applied.
func WriteAnnotations(w io.Writer, events []analyst.Event) error {
	for _, e := range events {
		if _, err := fmt.Fprintln(w, AnnotationLine(e)); err != nil {
			return fmt.Errorf("write annotation: %w", err)
		}
	}
	return nil
}

// WriteSeries writes one value per line in the shortest round-trippable
// decimal form.
func WriteSeries(w io.Writer, values []float64) error {
	for _, v := range values {
		if _, err := fmt.Fprintln(w, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return fmt.Errorf("write series value: %w", err)
		}
	}
	return nil
}

// Exporter writes the full artifact set for a finished detector run:
// the annotation file plus plain-text valence and arousal series.
type Exporter struct {
	FS fsutil.FileSystem
}

// NewExporter returns an Exporter backed by the OS filesystem.
func NewExporter() *Exporter {
	return &Exporter{FS: fsutil.OSFileSystem{}}
}

// Export writes <base>.boris.tsv, <base>.valence.txt and
// <base>.arousal.txt under dir for the given detector.
func (ex *Exporter) Export(dir, base string, det analyst.Detector) error {
	if err := ex.FS.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	var annotations bytes.Buffer
	if err := WriteAnnotations(&annotations, det.Events()); err != nil {
		return err
	}
	if err := ex.FS.WriteFile(filepath.Join(dir, base+".boris.tsv"), annotations.Bytes(), os.FileMode(0o644)); err != nil {
		return fmt.Errorf("write annotations: %w", err)
	}

	var valence bytes.Buffer
	if err := WriteSeries(&valence, det.Valence()); err != nil {
		return err
	}
	if err := ex.FS.WriteFile(filepath.Join(dir, base+".valence.txt"), valence.Bytes(), os.FileMode(0o644)); err != nil {
		return fmt.Errorf("write valence series: %w", err)
	}

	var arousal bytes.Buffer
	if err := WriteSeries(&arousal, det.Arousal()); err != nil {
		return err
	}
	if err := ex.FS.WriteFile(filepath.Join(dir, base+".arousal.txt"), arousal.Bytes(), os.FileMode(0o644)); err != nil {
		return fmt.Errorf("write arousal series: %w", err)
	}

	return nil
}
