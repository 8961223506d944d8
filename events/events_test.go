package events

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rp-tools/rp-relay/types"
)

func TestDecoderReadsOrderedStream(t *testing.T) {
	stream := strings.Join([]string{
		`{"event":"suite_start","name":"Login","doc":"Login checks","tags":["smoke"]}`,
		`{"event":"test_start","name":"Valid Login"}`,
		`{"event":"log_message","message":"opening browser","level":"INFO"}`,
		`{"event":"test_end","name":"Valid Login","status":"PASS"}`,
		`{"event":"suite_end","name":"Login","status":"PASS"}`,
	}, "\n")

	d := NewDecoder(strings.NewReader(stream), zerolog.Nop())

	var actions []Action
	for {
		ev, err := d.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		actions = append(actions, ev.Action)
	}

	assert.Equal(t, []Action{
		ActionSuiteStart,
		ActionTestStart,
		ActionLogMessage,
		ActionTestEnd,
		ActionSuiteEnd,
	}, actions)
	assert.Zero(t, d.Dropped())
}

func TestDecoderSkipsMalformedLines(t *testing.T) {
	stream := strings.Join([]string{
		`{"event":"suite_start","name":"S"}`,
		`this is not json`,
		`{"event":"teleport","name":"nope"}`,
		``,
		`{"event":"suite_end","name":"S","status":"PASS"}`,
	}, "\n")

	d := NewDecoder(strings.NewReader(stream), zerolog.Nop())

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, ActionSuiteStart, ev.Action)

	// The garbage line and the unknown action are skipped, not fatal.
	ev, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, ActionSuiteEnd, ev.Action)

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, d.Dropped())
}

func TestNormalizeFillsDefaults(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ev := Event{Action: ActionLogMessage, Message: "hello"}
	ev.Normalize(func() time.Time { return fixed })

	assert.Equal(t, fixed, ev.Timestamp)
	assert.NotNil(t, ev.Tags)
	assert.Equal(t, "INFO", ev.Level)
}

func TestNormalizeKeepsProvidedFields(t *testing.T) {
	ts := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	ev := Event{
		Action:    ActionSuiteStart,
		Tags:      []string{"smoke"},
		Timestamp: ts,
	}
	ev.Normalize(time.Now)

	assert.Equal(t, ts, ev.Timestamp)
	assert.Equal(t, []string{"smoke"}, ev.Tags)
}

func TestKeywordDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		expected string
	}{
		{
			name:     "plain keyword",
			event:    Event{Action: ActionKeywordStart, Name: "Open Browser"},
			expected: "Open Browser",
		},
		{
			name: "keyword with arguments",
			event: Event{
				Action: ActionKeywordStart,
				Name:   "Open Browser",
				Args:   []string{"https://example.com", "chrome"},
			},
			expected: "Open Browser (https://example.com, chrome)",
		},
		{
			name: "keyword with assignment",
			event: Event{
				Action: ActionKeywordStart,
				Name:   "Get Text",
				Args:   []string{"id=title"},
				Assign: []string{"${title}"},
			},
			expected: "${title} = Get Text (id=title)",
		},
		{
			name:     "suite name passes through untouched",
			event:    Event{Action: ActionSuiteStart, Name: "Login", Args: []string{"ignored"}},
			expected: "Login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.event.DisplayName())
		})
	}
}

func TestKeywordDisplayNameTruncation(t *testing.T) {
	ev := Event{
		Action: ActionKeywordStart,
		Name:   strings.Repeat("x", 300),
	}
	assert.Len(t, ev.DisplayName(), maxKeywordNameLength)
}

func TestEventFixture(t *testing.T) {
	assert.Equal(t, types.FixtureSetup, (&Event{KeywordType: "Setup"}).Fixture())
	assert.Equal(t, types.FixtureTeardown, (&Event{KeywordType: "Teardown"}).Fixture())
	assert.Equal(t, types.FixtureNone, (&Event{KeywordType: "Keyword"}).Fixture())
}
