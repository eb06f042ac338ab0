package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rustyeddy/stepper/market"
)

var csvHeader = []string{
	"session_id", "trade_id", "entry_time", "exit_time", "play_hours", "direction",
	"entry_price", "exit_price", "leverage", "position_ratio", "entry_capital",
	"pnl_dollar", "balance_after", "reason",
}

// CSVStore keeps every session's log in one flat CSV file. Each append opens
// the file, writes one row and closes it again.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

func NewCSV(path string) (*CSVStore, error) {
	j := &CSVStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := j.rewrite(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return j, nil
}

// Append rejects a record whose id is not above the session's last stored
// id.
func (j *CSVStore) Append(ctx context.Context, t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readAll()
	if err != nil {
		return err
	}
	for _, rec := range all {
		if rec.SessionID == t.SessionID && rec.TradeID >= t.TradeID {
			return fmt.Errorf("append trade %d for %s: %w", t.TradeID, t.SessionID, ErrDuplicateTrade)
		}
	}

	fh, err := os.OpenFile(j.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(fh)
	if err := w.Write(csvRow(t)); err != nil {
		fh.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func (j *CSVStore) QueryAll(ctx context.Context, sessionID string) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readAll()
	if err != nil {
		return nil, err
	}
	var out []TradeRecord
	for _, rec := range all {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	sortByTradeID(out)
	return out, nil
}

// Delete rewrites the file without the session's rows.
func (j *CSVStore) Delete(ctx context.Context, sessionID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	all, err := j.readAll()
	if err != nil {
		return err
	}
	keep := all[:0]
	for _, rec := range all {
		if rec.SessionID != sessionID {
			keep = append(keep, rec)
		}
	}
	return j.rewrite(keep)
}

func (j *CSVStore) Close() error { return nil }

func (j *CSVStore) readAll() ([]TradeRecord, error) {
	fh, err := os.Open(j.path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1

	var out []TradeRecord
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && len(row) > 0 && row[0] == csvHeader[0] {
			continue
		}
		rec, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", j.path, line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *CSVStore) rewrite(recs []TradeRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".trades-*.csv")
	if err != nil {
		return err
	}
	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return err
	}
	for _, rec := range recs {
		if err := w.Write(csvRow(rec)); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), j.path)
}

func csvRow(t TradeRecord) []string {
	return []string{
		t.SessionID,
		strconv.FormatInt(t.TradeID, 10),
		t.EntryTime.UTC().Format(time.RFC3339Nano),
		t.ExitTime.UTC().Format(time.RFC3339Nano),
		f(t.PlayHours),
		string(t.Direction),
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.Leverage),
		strconv.Itoa(t.PositionRatioPct),
		f(t.EntryCapital),
		f(t.PnLDollar),
		f(t.BalanceAfter),
		t.Reason,
	}
}

func parseCSVRow(row []string) (TradeRecord, error) {
	if len(row) < len(csvHeader) {
		return TradeRecord{}, fmt.Errorf("want %d columns, got %d", len(csvHeader), len(row))
	}

	var (
		rec  TradeRecord
		errs []error
	)
	num := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	ts := func(s string) time.Time {
		v, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			errs = append(errs, err)
		}
		return v.UTC()
	}

	rec.SessionID = row[0]
	id, err := strconv.ParseInt(row[1], 10, 64)
	if err != nil {
		errs = append(errs, err)
	}
	rec.TradeID = id
	rec.EntryTime = ts(row[2])
	rec.ExitTime = ts(row[3])
	rec.PlayHours = num(row[4])
	rec.Direction = market.Side(row[5])
	rec.EntryPrice = num(row[6])
	rec.ExitPrice = num(row[7])
	rec.Leverage = num(row[8])
	pct, err := strconv.Atoi(row[9])
	if err != nil {
		errs = append(errs, err)
	}
	rec.PositionRatioPct = pct
	rec.EntryCapital = num(row[10])
	rec.PnLDollar = num(row[11])
	rec.BalanceAfter = num(row[12])
	rec.Reason = row[13]

	return rec, errors.Join(errs...)
}

// f formats without rounding so a restore sums exactly what was written.
func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
