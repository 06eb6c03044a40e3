package alertlog

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rawblock/phishsentry/pkg/types"
)

func TestNew_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "alerts.csv")

	w, err := New(path, zerolog.Nop(), Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := w.appendRow(types.AlertRecord{Domain: "paypa1.com", BrandMatch: "paypal.com", Score: 7.5}); err != nil {
		t.Fatalf("appendRow returned error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output file: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 data row, got %d rows", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Fatalf("expected header row, got %v", rows[0])
	}
	if rows[1][1] != "paypa1.com" {
		t.Fatalf("expected domain column paypa1.com, got %v", rows[1])
	}
}

func TestNew_DoesNotRewriteHeaderOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.csv")

	w1, err := New(path, zerolog.Nop(), Config{})
	if err != nil {
		t.Fatalf("first New returned error: %v", err)
	}
	w1.appendRow(types.AlertRecord{Domain: "a.com"})

	w2, err := New(path, zerolog.Nop(), Config{})
	if err != nil {
		t.Fatalf("second New returned error: %v", err)
	}
	w2.appendRow(types.AlertRecord{Domain: "b.com"})

	f, _ := os.Open(path)
	defer f.Close()
	rows, _ := csv.NewReader(f).ReadAll()
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows across reopen, got %d", len(rows))
	}
}

func TestWrite_BooleansRenderPythonStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.csv")
	w, _ := New(path, zerolog.Nop(), Config{})
	w.appendRow(types.AlertRecord{Domain: "a.com", CNMismatch: true, OCSPMissing: false})

	f, _ := os.Open(path)
	defer f.Close()
	rows, _ := csv.NewReader(f).ReadAll()
	row := rows[1]
	if row[10] != "True" {
		t.Fatalf("expected cn_mismatch column = True, got %q", row[10])
	}
	if row[11] != "False" {
		t.Fatalf("expected ocsp_missing column = False, got %q", row[11])
	}
}

func TestWrite_EnqueuesForSingleConsumerLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.csv")
	w, err := New(path, zerolog.Nop(), Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	if err := w.Write(types.AlertRecord{Domain: "consumer.com", Score: 9}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var rows [][]string
	for time.Now().Before(deadline) {
		f, err := os.Open(path)
		if err == nil {
			rows, _ = csv.NewReader(f).ReadAll()
			f.Close()
			if len(rows) >= 2 {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done

	if len(rows) < 2 {
		t.Fatalf("expected consumer loop to append row, got rows: %v", rows)
	}
	if rows[1][1] != "consumer.com" {
		t.Fatalf("expected domain column consumer.com, got %v", rows[1])
	}
}
