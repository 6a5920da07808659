// Package telemetry decodes the raw per-request telemetry logs consumed by
// ratecast.
//
// Two input shapes are supported:
//   - request files: newline-delimited JSON objects, one rate sample per line,
//     parsed into [RawEvent] values by [ParseLine] and [ReadRequestFile]
//   - test records: one JSON document per file holding pre-aggregated rate
//     lists, parsed by [ParseTestRecord] and [ReadTestRecord]
//
// Decoding uses gjson so that individual malformed lines can be rejected
// cheaply without aborting the file they belong to.
package telemetry

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// maxLineBytes bounds a single request-file line. Longer lines are
// discarded and counted as skipped.
const maxLineBytes = 1 << 20

// maxTimestampSeconds bounds |timestamp|, keeping times inside the range
// of nanosecond Unix time.
const maxTimestampSeconds = 9.2e9

// RawEvent is one rate sample decoded from a request-file line.
type RawEvent struct {
	Timestamp time.Time
	Rate      float64
}

// ReadStats counts what happened to the lines of one request file.
type ReadStats struct {
	Lines   int // lines considered, excluding the trailing line
	Skipped int // lines rejected by ParseLine
}

// ParseLine decodes one request-file line.
//
// The line must be a JSON object with a numeric "timestamp" (seconds since
// the Unix epoch, fractional seconds allowed) and a numeric "rate". The rate
// is passed through unchanged: negative or absurd values are not filtered
// here. Timestamps that are not finite or lie beyond ±9.2e9 seconds are
// rejected. ok is false when the line cannot be used; callers skip it.
func ParseLine(line []byte) (RawEvent, bool) {
	if !gjson.ValidBytes(line) {
		return RawEvent{}, false
	}

	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return RawEvent{}, false
	}

	ts := doc.Get("timestamp")
	rate := doc.Get("rate")
	if ts.Type != gjson.Number || rate.Type != gjson.Number {
		return RawEvent{}, false
	}

	sec := ts.Float()
	if math.IsNaN(sec) || math.Abs(sec) > maxTimestampSeconds {
		return RawEvent{}, false
	}

	return RawEvent{
		Timestamp: unixSeconds(sec),
		Rate:      rate.Float(),
	}, true
}

// unixSeconds converts fractional epoch seconds to a UTC time.
func unixSeconds(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
}

// ReadRequestFile reads every usable event from a request file.
//
// The last line of the file is ignored unconditionally, whether or not it is
// complete: request logs are collected while still being written and their
// final record cannot be trusted. Malformed lines are skipped and counted.
// Only I/O failures are returned as errors.
func ReadRequestFile(path string, logger *slog.Logger) ([]RawEvent, ReadStats, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("open request file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)

	var (
		events           []RawEvent
		stats            ReadStats
		cur, pending     []byte
		pendingOversized bool
		havePending      bool
	)

	// Each line is held back by one iteration so the trailing one is never parsed.
	for {
		line, oversized, err := readLine(r, cur)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read request file %s: %w", path, err)
		}

		if havePending {
			stats.Lines++
			if pendingOversized {
				stats.Skipped++
				logger.Debug("skipping oversized telemetry line", "file", path, "line", stats.Lines)
			} else if ev, ok := ParseLine(pending); ok {
				events = append(events, ev)
			} else {
				stats.Skipped++
				logger.Debug("skipping malformed telemetry line", "file", path, "line", stats.Lines)
			}
		}
		cur, pending = pending, line
		pendingOversized = oversized
		havePending = true
	}

	return events, stats, nil
}

// readLine reads the next line into buf[:0] without its line ending.
// A line longer than maxLineBytes is consumed in full but returned empty
// with oversized set. io.EOF is returned only when no bytes remain.
func readLine(r *bufio.Reader, buf []byte) (line []byte, oversized bool, err error) {
	buf = buf[:0]
	read := 0
	for {
		chunk, err := r.ReadSlice('\n')
		read += len(chunk)
		if !oversized {
			if len(buf)+len(chunk) > maxLineBytes+1 {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case err == nil:
			return bytes.TrimRight(buf, "\r\n"), oversized, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if read == 0 {
				return nil, false, io.EOF
			}
			return bytes.TrimRight(buf, "\r\n"), oversized, nil
		default:
			return nil, false, err
		}
	}
}
