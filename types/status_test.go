package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusWorse(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Status
		expected Status
	}{
		{"failed dominates passed", StatusPassed, StatusFailed, StatusFailed},
		{"failed dominates skipped", StatusFailed, StatusSkipped, StatusFailed},
		{"skipped dominates passed", StatusPassed, StatusSkipped, StatusSkipped},
		{"passed dominates running", StatusRunning, StatusPassed, StatusPassed},
		{"equal statuses", StatusFailed, StatusFailed, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Worse(tt.b))
			assert.Equal(t, tt.expected, tt.b.Worse(tt.a), "Worse must be symmetric")
		})
	}
}

func TestRollup(t *testing.T) {
	tests := []struct {
		name     string
		explicit Status
		children []Status
		expected Status
	}{
		{
			name:     "all passed",
			explicit: StatusPassed,
			children: []Status{StatusPassed, StatusPassed},
			expected: StatusPassed,
		},
		{
			name:     "skipped child dominates passed",
			explicit: StatusPassed,
			children: []Status{StatusPassed, StatusSkipped, StatusPassed},
			expected: StatusSkipped,
		},
		{
			name:     "failed child dominates everything",
			explicit: StatusPassed,
			children: []Status{StatusPassed, StatusFailed},
			expected: StatusFailed,
		},
		{
			name:     "explicit failure with passing children",
			explicit: StatusFailed,
			children: []Status{StatusPassed, StatusPassed},
			expected: StatusFailed,
		},
		{
			name:     "no children and no explicit outcome defaults to passed",
			explicit: StatusRunning,
			children: nil,
			expected: StatusPassed,
		},
		{
			name:     "no children with explicit skip",
			explicit: StatusSkipped,
			children: nil,
			expected: StatusSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rollup(tt.explicit, tt.children))
		})
	}
}

func TestParseRunnerStatus(t *testing.T) {
	for input, expected := range map[string]Status{
		"PASS":    StatusPassed,
		"PASSED":  StatusPassed,
		"FAIL":    StatusFailed,
		"FAILED":  StatusFailed,
		"SKIP":    StatusSkipped,
		"SKIPPED": StatusSkipped,
		"NOT RUN": StatusSkipped,
		"":        StatusRunning,
	} {
		status, err := ParseRunnerStatus(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, expected, status, "input %q", input)
	}

	_, err := ParseRunnerStatus("EXPLODED")
	require.Error(t, err)
}

func TestItemType(t *testing.T) {
	assert.Equal(t, "SUITE", ItemType(KindSuite, FixtureNone, KindLaunch))
	assert.Equal(t, "TEST", ItemType(KindTest, FixtureNone, KindSuite))
	assert.Equal(t, "STEP", ItemType(KindKeyword, FixtureNone, KindTest))
	assert.Equal(t, "BEFORE_SUITE", ItemType(KindKeyword, FixtureSetup, KindSuite))
	assert.Equal(t, "AFTER_TEST", ItemType(KindKeyword, FixtureTeardown, KindTest))
}

func TestMapRunnerLevel(t *testing.T) {
	assert.Equal(t, LevelError, MapRunnerLevel("FAIL"))
	assert.Equal(t, LevelWarn, MapRunnerLevel("WARN"))
	assert.Equal(t, LevelInfo, MapRunnerLevel("HTML"))
	assert.Equal(t, LevelInfo, MapRunnerLevel("whatever"))
}
