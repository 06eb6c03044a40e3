// Package alertlog implements the single-consumer append-only CSV alert
// sink (spec.md §5 C6): worker goroutines enqueue AlertRecords onto a
// dedicated bounded channel, and one background loop is the sole writer of
// the output file, per spec.md §251 "one task for the CSV writer,
// communicating via bounded channels." Header-once/append semantics are
// grounded on original_source's certstream/listener.py: the header row is
// written only when the output file is absent or empty, then one row per
// surviving alert.
package alertlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/rawblock/phishsentry/internal/queue"
	"github.com/rawblock/phishsentry/internal/sentryerr"
	"github.com/rawblock/phishsentry/pkg/types"
)

var header = []string{
	"timestamp", "domain", "brand_match", "similarity_score",
	"issuer", "tld", "tld_suspicious", "has_keyword", "entropy",
	"registration_days", "cn_mismatch", "ocsp_missing", "short_lived",
	"brand_in_subdomain", "score",
}

// defaultQueueCapacity bounds the channel between alert producers and the
// single writer loop when callers leave Config.QueueCapacity unset; a
// saturated log queue drops the newest alert rather than blocking the
// worker pool (mirrors C2's "drop with a logged warning").
const defaultQueueCapacity = 1000

// Config tunes the Writer.
type Config struct {
	QueueCapacity int
	// OnDrop, if non-nil, is called once per record dropped for a
	// saturated queue, so callers can surface it as a stat.
	OnDrop func()
}

// Writer is the producer-facing handle: Write enqueues a record for the
// single background consumer to append. Safe for concurrent use by the
// worker pool's goroutines.
type Writer struct {
	path   string
	q      *queue.Queue[types.AlertRecord]
	log    zerolog.Logger
	onDrop func()
}

// New prepares a Writer for path, creating its parent directory and the
// header row if the file is new or empty. Call Run in its own goroutine to
// start the consumer loop.
func New(path string, log zerolog.Logger, cfg Config) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}

	w := &Writer{path: path, q: queue.New[types.AlertRecord](cfg.QueueCapacity), log: log, onDrop: cfg.OnDrop}
	if err := w.ensureHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) ensureHeader() error {
	info, err := os.Stat(w.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Write hands rec to the single-consumer writer loop. Returns an error
// (logged by the caller, never retried per §5 C6) only when the queue is
// saturated and the record is dropped; successful enqueue never implies
// the row has reached disk yet.
func (w *Writer) Write(rec types.AlertRecord) error {
	if !w.q.TryPush(rec) {
		if w.onDrop != nil {
			w.onDrop()
		}
		return fmt.Errorf("alert log queue saturated, dropping record for %s", rec.Domain)
	}
	return nil
}

// Run is the sole writer of the output file: it drains the queue until
// ctx is cancelled and the queue empties, appending one CSV row per
// record. Write errors are logged and do not abort the loop (§5 C6).
func (w *Writer) Run(ctx context.Context) {
	for {
		rec, ok := w.q.Pop(ctx)
		if !ok {
			// Cancelled or closed: keep appending whatever is still
			// buffered. This loop is the sole consumer, so a non-empty
			// queue means Pop returns at once.
			if w.q.Len() == 0 {
				return
			}
			rec, ok = w.q.Pop(context.Background())
			if !ok {
				return
			}
		}
		if err := w.appendRow(rec); err != nil {
			w.log.Error().Err(sentryerr.New(sentryerr.IOFailure, "alertlog.write", err)).
				Str("domain", rec.Domain).Msg("alert append failed")
		}
	}
}

func (w *Writer) appendRow(rec types.AlertRecord) error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	row := []string{
		rec.SeenAt,
		rec.Domain,
		rec.BrandMatch,
		formatFloat(rec.SimilarityScore),
		rec.IssuerOrg,
		rec.TLD,
		formatBool(rec.TLDSuspicious),
		formatBool(rec.HasKeyword),
		formatFloat(rec.Entropy),
		strconv.Itoa(rec.RegistrationDays),
		formatBool(rec.CNMismatch),
		formatBool(rec.OCSPMissing),
		formatBool(rec.ShortLived),
		formatBool(rec.BrandInSubdomain),
		formatFloat(rec.Score),
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// formatBool renders booleans as Python-style "True"/"False" to match the
// original tool's CSV output (§9).
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
