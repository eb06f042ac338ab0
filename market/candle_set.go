package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// ErrInsufficientData is returned when a CandleSet is too short to hold an
// episode.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError reports how many candles were needed.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d candles, need %d", e.Have, e.Need)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// CandleSet is an immutable, time-ordered series of candles.
type CandleSet struct {
	Source  string
	Candles []Candle

	duplicates int
	badLines   int
}

// NewCandleSet loads a CSV file of candles. Files ending in .xz are
// decompressed on the fly.
func NewCandleSet(fname string) (*CandleSet, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(fname, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open xz %s: %w", fname, err)
		}
		r = xr
	}
	return ReadCandleSet(r, fname)
}

// ReadCandleSet parses rows of open_time,open,high,low,close[,volume].
// A header row is optional; when present it may order the columns freely.
// open_time is epoch milliseconds when above 1e12, epoch seconds otherwise,
// or an RFC3339 / "2006-01-02 15:04:05" string. Rows with an unparseable
// time or price are skipped and counted.
func ReadCandleSet(r io.Reader, source string) (*CandleSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	cols := columns{time: 0, open: 1, high: 2, low: 3, close: 4, volume: 5}
	var (
		candles  []Candle
		badLines int
		first    = true
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		if len(row) == 0 {
			continue
		}
		if first {
			first = false
			if h, ok := headerColumns(row); ok {
				cols = h
				continue
			}
		}
		c, ok := cols.parse(row)
		if !ok {
			badLines++
			continue
		}
		candles = append(candles, c)
	}

	cs, err := FromCandles(source, candles)
	if err != nil {
		return nil, err
	}
	cs.badLines = badLines
	return cs, nil
}

// FromCandles sorts a copy of candles by time and drops later duplicates of
// the same timestamp (keep-first).
func FromCandles(source string, candles []Candle) (*CandleSet, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s: no candles", source)
	}
	sorted := make([]Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	out := sorted[:1]
	dups := 0
	for _, c := range sorted[1:] {
		if c.Time.Equal(out[len(out)-1].Time) {
			dups++
			continue
		}
		out = append(out, c)
	}
	return &CandleSet{Source: source, Candles: out, duplicates: dups}, nil
}

func (cs *CandleSet) Len() int { return len(cs.Candles) }

func (cs *CandleSet) Candle(idx int) Candle { return cs.Candles[idx] }

// Window returns candles [start, start+n). The returned slice shares storage
// and must not be modified.
func (cs *CandleSet) Window(start, n int) []Candle {
	end := start + n
	if start < 0 {
		start = 0
	}
	if end > len(cs.Candles) {
		end = len(cs.Candles)
	}
	if start >= end {
		return nil
	}
	return cs.Candles[start:end:end]
}

// Duplicates is the number of rows dropped for repeating a timestamp.
func (cs *CandleSet) Duplicates() int { return cs.duplicates }

// BadLines is the number of rows that could not be parsed.
func (cs *CandleSet) BadLines() int { return cs.badLines }

// PickStart chooses a random start index that leaves at least need candles
// to the end of the set.
func (cs *CandleSet) PickStart(rng *rand.Rand, need int) (int, error) {
	if err := cs.Require(need); err != nil {
		return 0, err
	}
	return rng.Intn(len(cs.Candles) - need + 1), nil
}

// Require fails when fewer than need candles are loaded.
func (cs *CandleSet) Require(need int) error {
	if need <= 0 {
		return fmt.Errorf("invalid candle requirement %d", need)
	}
	if len(cs.Candles) < need {
		return &InsufficientDataError{Have: len(cs.Candles), Need: need}
	}
	return nil
}

type columns struct {
	time, open, high, low, close, volume int
}

func headerColumns(row []string) (columns, bool) {
	c := columns{time: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range row {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "open_time", "time", "timestamp", "date":
			c.time = i
		case "open":
			c.open = i
		case "high":
			c.high = i
		case "low":
			c.low = i
		case "close":
			c.close = i
		case "volume", "vol":
			c.volume = i
		}
	}
	if c.time < 0 || c.open < 0 || c.high < 0 || c.low < 0 || c.close < 0 {
		return columns{}, false
	}
	return c, true
}

func (c columns) parse(row []string) (Candle, bool) {
	get := func(i int) (float64, bool) {
		if i < 0 || i >= len(row) {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		return v, err == nil
	}
	if c.time >= len(row) {
		return Candle{}, false
	}
	ts, err := ParseOpenTime(row[c.time])
	if err != nil {
		return Candle{}, false
	}

	var out Candle
	var ok bool
	out.Time = ts
	if out.Open, ok = get(c.open); !ok {
		return Candle{}, false
	}
	if out.High, ok = get(c.high); !ok {
		return Candle{}, false
	}
	if out.Low, ok = get(c.low); !ok {
		return Candle{}, false
	}
	if out.Close, ok = get(c.close); !ok {
		return Candle{}, false
	}
	out.Volume, _ = get(c.volume)
	return out, true
}

// ParseOpenTime converts an epoch (ms or s) or a textual timestamp to UTC.
func ParseOpenTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n <= 0 {
			return time.Time{}, fmt.Errorf("bad epoch %q", s)
		}
		if n > 1e12 {
			return time.UnixMilli(int64(n)).UTC(), nil
		}
		return time.Unix(int64(n), 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
