package fixture

import "testing"

// Lifecycle is the set of hooks Run invokes around a group of tests.
type Lifecycle interface {
	// SetUpSuite runs once before the first test.
	SetUpSuite(t *testing.T)
	// TearDownSuite runs once after the last test, even when tests fail.
	TearDownSuite(t *testing.T)
	// SetUp runs before every test.
	SetUp(t *testing.T)
	// TearDown runs after every test, even when it fails.
	TearDown(t *testing.T)
}

// Base implements Lifecycle with no-op hooks. Embed it and override the
// hooks you need.
type Base struct{}

func (Base) SetUpSuite(*testing.T)    {}
func (Base) TearDownSuite(*testing.T) {}
func (Base) SetUp(*testing.T)         {}
func (Base) TearDown(*testing.T)      {}

// Test is a named test function run by Run.
type Test struct {
	Name string
	Fn   func(t *testing.T)
}

// Run runs tests as subtests of t in the given order, with lc's hooks around
// them.
func Run(t *testing.T, lc Lifecycle, tests []Test) {
	t.Helper()

	lc.SetUpSuite(t)
	t.Cleanup(func() { lc.TearDownSuite(t) })

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			lc.SetUp(t)
			t.Cleanup(func() { lc.TearDown(t) })
			tc.Fn(t)
		})
	}
}
