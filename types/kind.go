package types

// Kind identifies the level of an execution scope in the launch hierarchy.
type Kind string

const (
	KindLaunch  Kind = "LAUNCH"
	KindSuite   Kind = "SUITE"
	KindTest    Kind = "TEST"
	KindKeyword Kind = "KEYWORD"
)

// Fixture classifies a keyword relative to its parent scope. Plain keywords
// are steps; setup and teardown keywords map to the backend's BEFORE_*/
// AFTER_* item types.
type Fixture string

const (
	FixtureNone     Fixture = ""
	FixtureSetup    Fixture = "Setup"
	FixtureTeardown Fixture = "Teardown"
)

// ParseFixture maps the runner's keyword type string onto a Fixture. Unknown
// values are treated as plain steps.
func ParseFixture(s string) Fixture {
	switch s {
	case "Setup", "SETUP":
		return FixtureSetup
	case "Teardown", "TEARDOWN":
		return FixtureTeardown
	default:
		return FixtureNone
	}
}

// ItemType returns the backend item type for a scope of the given kind. For
// setup/teardown keywords the type is derived from the parent kind, e.g. a
// suite setup reports as BEFORE_SUITE.
func ItemType(kind Kind, fixture Fixture, parent Kind) string {
	switch kind {
	case KindSuite:
		return "SUITE"
	case KindTest:
		return "TEST"
	case KindKeyword:
		switch fixture {
		case FixtureSetup:
			return "BEFORE_" + string(parent)
		case FixtureTeardown:
			return "AFTER_" + string(parent)
		default:
			return "STEP"
		}
	default:
		return string(kind)
	}
}
