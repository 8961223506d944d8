package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/rp-tools/rp-relay/metrics"
)

// maxLineSize bounds a single event line. Log messages can carry sizeable
// payloads, so this is well above the bufio default.
const maxLineSize = 16 * 1024 * 1024

// Decoder reads lifecycle events from an NDJSON stream. Malformed lines are
// counted, logged and skipped; they never abort the stream.
type Decoder struct {
	scanner *bufio.Scanner
	log     zerolog.Logger
	now     func() time.Time
	line    int
	dropped int
}

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader, log zerolog.Logger) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Decoder{
		scanner: scanner,
		log:     log,
		now:     time.Now,
	}
}

// Next returns the next well-formed event from the stream, or io.EOF once
// the stream is exhausted.
func (d *Decoder) Next() (Event, error) {
	for d.scanner.Scan() {
		d.line++
		raw := d.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			d.dropped++
			metrics.RecordMalformedEvent()
			d.log.Warn().Int("line", d.line).Err(err).Msg("dropping malformed event")
			continue
		}
		if !ev.Action.known() {
			d.dropped++
			metrics.RecordMalformedEvent()
			d.log.Warn().Int("line", d.line).Str("event", string(ev.Action)).Msg("dropping event with unknown action")
			continue
		}

		ev.Normalize(d.now)
		metrics.RecordEvent(string(ev.Action))
		return ev, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("reading event stream: %w", err)
	}
	return Event{}, io.EOF
}

// Dropped returns the number of malformed lines skipped so far.
func (d *Decoder) Dropped() int {
	return d.dropped
}
