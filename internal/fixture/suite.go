package fixture

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type suiteSetUpHook interface{ DoSetUpSuite() }

type suiteTearDownHook interface{ DoTearDownSuite() }

type testSetUpHook interface{ DoSetUp() }

type testTearDownHook interface{ DoTearDown() }

// TestingSuite is a testify suite that embeds Suite.
type TestingSuite interface {
	suite.TestingSuite
	bind(outer any)
}

// Suite adapts testify's suite hooks to the Do-prefixed hooks of the suite
// embedding it: SetupSuite calls DoSetUpSuite, TearDownSuite calls
// DoTearDownSuite, SetupTest calls DoSetUp and TearDownTest calls DoTearDown.
// Hooks the embedding suite does not define are skipped.
//
// A Suite must be started with RunSuite. Started with testify's suite.Run it
// cannot see the embedding suite's hooks, and SetupSuite fails the run with
// ErrUnbound.
type Suite struct {
	suite.Suite
	outer any
}

// ErrUnbound is reported by a Suite that was not started with RunSuite.
var ErrUnbound = errors.New("fixture: suite not started with RunSuite")

func (s *Suite) bind(outer any) { s.outer = outer }

func (s *Suite) checkBound() error {
	if s.outer == nil {
		return fmt.Errorf("%w: hooks of the embedding suite would not run", ErrUnbound)
	}
	return nil
}

// SetupSuite implements suite.SetupAllSuite.
func (s *Suite) SetupSuite() {
	s.Require().NoError(s.checkBound())

	if h, ok := s.outer.(suiteSetUpHook); ok {
		h.DoSetUpSuite()
	}
}

// TearDownSuite implements suite.TearDownAllSuite.
func (s *Suite) TearDownSuite() {
	if h, ok := s.outer.(suiteTearDownHook); ok {
		h.DoTearDownSuite()
	}
}

// SetupTest implements suite.SetupTestSuite.
func (s *Suite) SetupTest() {
	if h, ok := s.outer.(testSetUpHook); ok {
		h.DoSetUp()
	}
}

// TearDownTest implements suite.TearDownTestSuite.
func (s *Suite) TearDownTest() {
	if h, ok := s.outer.(testTearDownHook); ok {
		h.DoTearDown()
	}
}

// RunSuite runs the test methods of s with testify after binding its hooks.
func RunSuite(t *testing.T, s TestingSuite) {
	t.Helper()
	s.bind(s)
	suite.Run(t, s)
}
