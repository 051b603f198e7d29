package propagation

import (
	"chainalert/internal/identity"
	"chainalert/internal/notification"
	"chainalert/internal/push"
)

func (s *ServiceSuite) propagateChain(reporter string, labels ...string) Report {
	r := s.report(reporter, labels...)
	_, err := s.svc.PropagateExposureChain(s.ctx, r)
	s.Require().NoError(err)
	return r
}

func (s *ServiceSuite) TestNegativeUpdateRewritesDownstreamChains() {
	s.register("alice")
	s.register("bob")
	s.register("carol")
	s.assertContact("bob", "alice", s.now.AddDate(0, 0, -2))
	s.assertContact("carol", "bob", s.now.AddDate(0, 0, -4))
	s.propagateChain("alice")
	s.pusher.Reset()

	updated, err := s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("bob"), notification.StatusNegative, "")
	s.Require().NoError(err)
	s.Equal(2, updated, "carol's chain and bob's own entry")

	carol := s.entriesFor("carol")[0]
	s.Require().Len(carol.Chain.Nodes, 3)
	s.Equal(notification.StatusNegative, carol.Chain.Nodes[1].TestStatus, "bob's node in carol's visualization")
	s.Equal(notification.StatusPositive, carol.Chain.Nodes[0].TestStatus, "the reporter's node is untouched")

	bob := s.entriesFor("bob")[0]
	s.Equal(notification.StatusNegative, bob.Chain.Nodes[len(bob.Chain.Nodes)-1].TestStatus)

	msgs := s.pusher.ByType(push.TypeUpdate)
	s.Require().NotEmpty(msgs)
	tokens := map[string]bool{}
	for _, m := range msgs {
		tokens[m.Token] = true
		s.Equal(string(notification.StatusNegative), m.Data["status"])
	}
	s.True(tokens["token-carol"], "carol is told her chain changed")
}

func (s *ServiceSuite) TestPositiveUpdateRewritesOwnEntries() {
	s.register("alice")
	s.register("bob")
	s.assertContact("bob", "alice", s.now.AddDate(0, 0, -2))
	s.propagateChain("alice")

	updated, err := s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("bob"), notification.StatusPositive, "")
	s.Require().NoError(err)
	s.Equal(1, updated)

	bob := s.entriesFor("bob")[0]
	s.Equal(notification.StatusPositive, bob.Chain.Nodes[len(bob.Chain.Nodes)-1].TestStatus)
}

func (s *ServiceSuite) TestUpdateIsIdempotent() {
	s.register("alice")
	s.register("bob")
	s.register("carol")
	s.assertContact("bob", "alice", s.now.AddDate(0, 0, -2))
	s.assertContact("carol", "bob", s.now.AddDate(0, 0, -4))
	s.propagateChain("alice")

	_, err := s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("bob"), notification.StatusNegative, "")
	s.Require().NoError(err)

	updated, err := s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("bob"), notification.StatusNegative, "")
	s.Require().NoError(err)
	s.Equal(0, updated, "a repeated update changes nothing")
}

func (s *ServiceSuite) TestUpdateFiltersByConditionLabel() {
	s.register("alice")
	s.register("bob")
	s.assertContact("bob", "alice", s.now.AddDate(0, 0, -2))
	s.propagateChain("alice", "Chlamydia")

	updated, err := s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("bob"), notification.StatusNegative, "Syphilis")
	s.Require().NoError(err)
	s.Equal(0, updated, "the label filter excludes chains for other conditions")

	updated, err = s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("bob"), notification.StatusNegative, "Chlamydia")
	s.Require().NoError(err)
	s.Equal(1, updated)
}

func (s *ServiceSuite) TestUpdateLabelFilterIgnoresCase() {
	s.register("alice")
	s.register("bob")
	s.assertContact("bob", "alice", s.now.AddDate(0, 0, -2))
	// Stored with the client's capitalization; matched however the updater
	// spells it, same as the incubation resolver.
	s.propagateChain("alice", "Chlamydia")

	updated, err := s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("bob"), notification.StatusNegative, "chlamydia ")
	s.Require().NoError(err)
	s.Equal(1, updated)
}

func (s *ServiceSuite) TestUpdateForUnknownPersonIsANoOp() {
	updated, err := s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("nobody"), notification.StatusNegative, "")
	s.NoError(err)
	s.Equal(0, updated)
}

func (s *ServiceSuite) TestUpdateRejectsInvalidInput() {
	_, err := s.svc.PropagateTestStatusUpdate(s.ctx, "", notification.StatusNegative, "")
	s.Error(err)

	_, err = s.svc.PropagateTestStatusUpdate(s.ctx, identity.HashGraph("bob"), notification.StatusUnknown, "")
	s.Error(err)
}
