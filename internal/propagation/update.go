package propagation

import (
	"context"
	"errors"
	"strings"

	"chainalert/internal/identity"
	"chainalert/internal/notification"
	"chainalert/internal/propagation/metrics"
	"chainalert/internal/push"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/platform/sentinel"
)

// PropagateTestStatusUpdate rewrites a person's node status inside every
// notification whose visualization includes them, then updates their own
// inbox entries. conditionLabel narrows the rewrite to notifications that
// carry that label; empty applies to all. Returns how many entries changed.
//
// The caller supplies the person's graph-domain hash; entries reference
// chain members by the chain-domain rehash, recomputed here.
func (s *Service) PropagateTestStatusUpdate(ctx context.Context, graphID string, status notification.TestStatus, conditionLabel string) (int, error) {
	if graphID == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "graph ID is required")
	}
	if status != notification.StatusPositive && status != notification.StatusNegative {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "status update must be POSITIVE or NEGATIVE")
	}

	chainHash := identity.HashChain(graphID)
	entries, err := s.notifications.FindByChainMember(ctx, chainHash)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeUnavailable, "chain member lookup failed", err)
	}

	updated := 0
	for i := range entries {
		entry := entries[i]
		if conditionLabel != "" && !hasLabel(entry.ConditionLabels, conditionLabel) {
			continue
		}
		// The rewrite happens on the freshly locked row, not the copy read
		// above, so a path merged in between is preserved.
		changed, err := s.notifications.Mutate(ctx, entry.ID, func(e *notification.Entry) bool {
			return e.SetMemberStatus(chainHash, status)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "status rewrite failed",
				"notification_id", entry.ID,
				"error", err,
			)
			continue
		}
		if !changed {
			continue
		}
		updated++
		metrics.StatusUpdatesApplied.Inc()
		s.dispatchUpdate(ctx, entry, status)
	}

	selfUpdated, err := s.updateOwnEntries(ctx, graphID, status, conditionLabel)
	if err != nil {
		return updated, err
	}
	return updated + selfUpdated, nil
}

// updateOwnEntries marks the person's own node inside their incoming
// notifications. Most of these are already covered by the chain-member pass,
// so SetRecipientStatus returning false is the common case.
func (s *Service) updateOwnEntries(ctx context.Context, graphID string, status notification.TestStatus, conditionLabel string) (int, error) {
	user, err := s.directory.FindByGraphID(ctx, graphID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, nil
		}
		return 0, dErrors.Wrap(dErrors.CodeUnavailable, "directory lookup failed", err)
	}

	entries, err := s.notifications.FindByRecipient(ctx, user.NotificationID)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeUnavailable, "recipient lookup failed", err)
	}

	updated := 0
	for i := range entries {
		entry := entries[i]
		if conditionLabel != "" && !hasLabel(entry.ConditionLabels, conditionLabel) {
			continue
		}
		changed, err := s.notifications.Mutate(ctx, entry.ID, func(e *notification.Entry) bool {
			return e.SetRecipientStatus(status)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "own entry status rewrite failed",
				"notification_id", entry.ID,
				"error", err,
			)
			continue
		}
		if !changed {
			continue
		}
		updated++
		metrics.StatusUpdatesApplied.Inc()
	}
	return updated, nil
}

// dispatchUpdate pushes a silent refresh hint to the entry's recipient so the
// client re-renders the chain visualization.
func (s *Service) dispatchUpdate(ctx context.Context, entry notification.Entry, status notification.TestStatus) {
	user, err := s.directory.FindByNotificationID(ctx, entry.RecipientID)
	if err != nil {
		return
	}
	if user.PushToken == "" {
		return
	}
	msg := push.Message{
		Token: user.PushToken,
		Data: map[string]string{
			"type":            push.TypeUpdate,
			"notification_id": entry.ID,
			"status":          string(status),
		},
		Title: "Chain update",
		Body:  "A test result in one of your exposure chains was updated.",
	}
	if _, err := s.sender.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "update push dispatch failed",
			"notification_id", entry.ID,
			"error", err,
		)
	}
}

// hasLabel matches the way the incubation resolver does: case-insensitive,
// whitespace-trimmed.
func hasLabel(labels []string, label string) bool {
	label = strings.TrimSpace(label)
	for _, l := range labels {
		if strings.EqualFold(strings.TrimSpace(l), label) {
			return true
		}
	}
	return false
}
