// Package propagation implements the exposure-chain traversal: a bounded
// breadth-first walk over the contact graph that discovers everyone
// transitively reachable from a reporter within rolling incubation windows,
// and delivers each of them exactly one notification.
package propagation

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"chainalert/internal/contact"
	"chainalert/internal/directory"
	"chainalert/internal/identity"
	"chainalert/internal/incubation"
	"chainalert/internal/notification"
	"chainalert/internal/propagation/metrics"
	"chainalert/internal/push"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/platform/sentinel"
	"chainalert/pkg/requestcontext"
)

// PrivacyLevel controls what a report discloses to the people it notifies.
type PrivacyLevel string

const (
	// PrivacyFull discloses condition labels and the exposure date.
	PrivacyFull PrivacyLevel = "FULL"
	// PrivacyAnonymous discloses neither.
	PrivacyAnonymous PrivacyLevel = "ANONYMOUS"
	// PrivacySTIOnly discloses the labels but withholds the exposure date.
	PrivacySTIOnly PrivacyLevel = "STI_ONLY"
)

// Report is one positive-test report entering the engine. ReporterGraphID is
// already graph-domain hashed; the engine never sees raw identifiers.
type Report struct {
	ID                  string
	ReporterGraphID     string
	ReporterDisplayName string
	ConditionLabelsJSON string
	TestDate            time.Time
	PrivacyLevel        PrivacyLevel
	LinkedReportID      string
}

// Config bounds the traversal.
type Config struct {
	// MaxChainDepth is inclusive: a contact at exactly this hop is
	// notified, one hop further is not.
	MaxChainDepth int
	RetentionDays int
	// EnableBatchedLookups resolves each hop's discoveries through
	// concurrent batched directory reads. Disabling falls back to
	// sequential single lookups. Either way a lookup that still fails
	// after retries abandons only the affected candidates.
	EnableBatchedLookups bool
}

// DefaultConfig matches the protocol constants the mobile client was built
// against.
func DefaultConfig() Config {
	return Config{
		MaxChainDepth:        10,
		RetentionDays:        180,
		EnableBatchedLookups: true,
	}
}

const (
	storeQueryAttempts = 3
	storeRetryBackoff  = 50 * time.Millisecond
	lookupBatchSize    = 50
)

// Service orchestrates the BFS and the downstream status-update rewrites.
type Service struct {
	edges         contact.Store
	directory     directory.Store
	notifications notification.Store
	sender        push.Sender
	logger        *slog.Logger
	cfg           Config
}

func NewService(
	edges contact.Store,
	dir directory.Store,
	notifications notification.Store,
	sender push.Sender,
	logger *slog.Logger,
	cfg Config,
) (*Service, error) {
	if edges == nil || dir == nil || notifications == nil || sender == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "propagation service requires all collaborators")
	}
	if cfg.MaxChainDepth <= 0 || cfg.RetentionDays <= 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "propagation config bounds must be positive")
	}
	return &Service{
		edges:         edges,
		directory:     dir,
		notifications: notifications,
		sender:        sender,
		logger:        logger,
		cfg:           cfg,
	}, nil
}

// crumb is one step of a discovered walk: the chain-domain rehash of a node's
// graph ID plus the name shown for it.
type crumb struct {
	chainHash   string
	displayName string
}

// frontierNode is one node pending expansion. windowEnd anchors the next
// hop's lookback: edges reaching this node's contacts must predate the
// moment this node was exposed, not the original test date.
type frontierNode struct {
	graphID   string
	windowEnd time.Time
	trail     []crumb
}

// discovery is one eligible edge found during a hop, pending merge/notify.
type discovery struct {
	edge contact.Edge
	via  frontierNode
}

// PropagateExposureChain walks the contact graph from the reporter and
// notifies every reachable contact once. Returns how many people were
// notified for the first time by this invocation.
//
// Re-invoking with the same report is safe: converging on already-notified
// recipients only refines hop depth and paths, never duplicates entries.
func (s *Service) PropagateExposureChain(ctx context.Context, report Report) (int, error) {
	if report.ID == "" || report.ReporterGraphID == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "report ID and reporter graph ID are required")
	}
	if report.TestDate.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "report test date is required")
	}

	now := requestcontext.Now(ctx)
	windowDays := incubation.MaxDaysJSON(report.ConditionLabelsJSON)
	retentionBoundary := now.AddDate(0, 0, -s.cfg.RetentionDays)
	labels, labelsErr := incubation.ParseLabels(report.ConditionLabelsJSON)
	if labelsErr != nil {
		// Malformed labels fall back to the default window; the report
		// still propagates.
		s.logger.WarnContext(ctx, "malformed condition labels, using default window",
			"report_id", report.ID,
			"error", labelsErr,
		)
		labels = nil
	}

	visited := map[string]bool{report.ReporterGraphID: true}
	resolved := map[string]directory.User{}
	frontier := []frontierNode{{
		graphID:   report.ReporterGraphID,
		windowEnd: report.TestDate,
		trail:     []crumb{{chainHash: identity.HashChain(report.ReporterGraphID), displayName: report.ReporterDisplayName}},
	}}

	notified := 0
	for hop := 1; hop <= s.cfg.MaxChainDepth && len(frontier) > 0; hop++ {
		discoveries := s.expandFrontier(ctx, report.ID, frontier, windowDays, retentionBoundary)
		if len(discoveries) == 0 {
			break
		}

		users, unresolved := s.resolveDiscoveries(ctx, report.ID, discoveries, visited)
		for id, u := range users {
			resolved[id] = u
		}

		var next []frontierNode
		for _, d := range discoveries {
			candidate := d.edge.OwnerGraphID
			if candidate == report.ReporterGraphID || candidate == d.via.graphID {
				// Loops back to the reporter and self-referential edges
				// never produce a notification.
				continue
			}
			if unresolved[candidate] {
				// Directory outage outlasted the retries. Leave the
				// candidate unvisited so a later path can still reach them.
				continue
			}

			if visited[candidate] {
				s.mergeConvergingPath(ctx, report, d, hop, resolved)
				continue
			}
			visited[candidate] = true

			user, ok := resolved[candidate]
			if !ok {
				// No directory entry means no way to notify, but the
				// exposure may still have passed through this person.
				// Keep walking; the path renders them without a name.
				metrics.DirectoryMisses.Inc()
				s.logger.DebugContext(ctx, "discovered contact has no directory entry",
					"report_id", report.ID,
					"graph_id", identity.Short(candidate),
				)
				next = append(next, frontierNode{
					graphID:   candidate,
					windowEnd: d.edge.RecordedAt,
					trail: extendTrail(d.via.trail, crumb{
						chainHash: identity.HashChain(candidate),
					}),
				})
				continue
			}

			trail := extendTrail(d.via.trail, crumb{
				chainHash:   identity.HashChain(candidate),
				displayName: user.DisplayName,
			})
			entry := s.buildEntry(report, user, hop, trail, d.edge.RecordedAt, labels)

			stored, created, err := s.notifications.Upsert(ctx, entry)
			if err != nil {
				metrics.BranchesAborted.Inc()
				s.logger.ErrorContext(ctx, "notification upsert failed, abandoning branch",
					"report_id", report.ID,
					"recipient", identity.Short(user.NotificationID),
					"error", err,
				)
				continue
			}
			if created {
				notified++
				metrics.RecipientsNotified.Inc()
				metrics.HopDepth.Observe(float64(hop))
				s.dispatchExposure(ctx, report, user, stored, hop)
			} else {
				metrics.PathsMerged.Inc()
			}

			next = append(next, frontierNode{
				graphID:   candidate,
				windowEnd: d.edge.RecordedAt,
				trail:     trail,
			})
		}
		frontier = next
	}

	metrics.ReportsProcessed.Inc()
	s.logger.InfoContext(ctx, "exposure chain propagated",
		"report_id", report.ID,
		"notified", notified,
		"request_id", requestcontext.RequestID(ctx),
	)
	return notified, nil
}

// expandFrontier queries each frontier node's eligible inbound-asserted
// edges. A node whose query fails after retries is abandoned without
// affecting the other branches.
func (s *Service) expandFrontier(ctx context.Context, reportID string, frontier []frontierNode, windowDays int, retentionBoundary time.Time) []discovery {
	var discoveries []discovery
	for _, node := range frontier {
		from := node.windowEnd.AddDate(0, 0, -windowDays)
		if from.Before(retentionBoundary) {
			from = retentionBoundary
		}
		if from.After(node.windowEnd) {
			// The whole lookback window predates retention; nothing can
			// be eligible through this node.
			continue
		}

		edges, err := s.findEdgesWithRetry(ctx, node.graphID, from, node.windowEnd)
		if err != nil {
			metrics.BranchesAborted.Inc()
			s.logger.ErrorContext(ctx, "edge query failed after retries, abandoning branch",
				"report_id", reportID,
				"node", identity.Short(node.graphID),
				"error", err,
			)
			continue
		}
		for _, e := range edges {
			discoveries = append(discoveries, discovery{edge: e, via: node})
		}
	}
	return discoveries
}

// retryTransient runs op up to storeQueryAttempts times with doubling
// backoff, honoring cancellation between attempts.
func retryTransient(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < storeQueryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(storeRetryBackoff << (attempt - 1)):
			}
		}
		if lastErr = op(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// findEdgesWithRetry queries edges asserted about the node by other people.
// Traversal must never consult the node's own assertions: that direction is
// the forged-contact attack.
func (s *Service) findEdgesWithRetry(ctx context.Context, partnerGraphID string, from, to time.Time) ([]contact.Edge, error) {
	var edges []contact.Edge
	err := retryTransient(ctx, func() error {
		var qerr error
		edges, qerr = s.edges.FindByPartner(ctx, partnerGraphID, from, to)
		return qerr
	})
	return edges, err
}

// resolveDiscoveries batches the directory lookups for every not-yet-visited
// candidate in this hop. Lookups retry like edge queries; candidates whose
// lookup still fails land in the second map so only their branches are
// abandoned while the rest of the hop proceeds.
func (s *Service) resolveDiscoveries(ctx context.Context, reportID string, discoveries []discovery, visited map[string]bool) (map[string]directory.User, map[string]bool) {
	seen := map[string]bool{}
	var ids []string
	for _, d := range discoveries {
		id := d.edge.OwnerGraphID
		if visited[id] || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	users := make(map[string]directory.User, len(ids))
	unresolved := map[string]bool{}
	if len(ids) == 0 {
		return users, unresolved
	}

	if !s.cfg.EnableBatchedLookups {
		for _, id := range ids {
			var (
				user  directory.User
				found bool
			)
			err := retryTransient(ctx, func() error {
				u, qerr := s.directory.FindByGraphID(ctx, id)
				if errors.Is(qerr, sentinel.ErrNotFound) {
					// A genuine miss, not an outage; never retried.
					return nil
				}
				if qerr != nil {
					return qerr
				}
				user, found = u, true
				return nil
			})
			if err != nil {
				unresolved[id] = true
				metrics.BranchesAborted.Inc()
				s.logger.ErrorContext(ctx, "directory lookup failed after retries, abandoning branch",
					"report_id", reportID,
					"node", identity.Short(id),
					"error", err,
				)
				continue
			}
			if found {
				users[id] = user
			}
		}
		return users, unresolved
	}

	// Plain errgroup on purpose: one batch exhausting its retries must not
	// cancel the other in-flight batches.
	var g errgroup.Group
	batches := (len(ids) + lookupBatchSize - 1) / lookupBatchSize
	results := make([]map[string]directory.User, batches)
	errs := make([]error, batches)
	for i := 0; i < len(ids); i += lookupBatchSize {
		batchIdx := i / lookupBatchSize
		batch := ids[i:min(i+lookupBatchSize, len(ids))]
		g.Go(func() error {
			errs[batchIdx] = retryTransient(ctx, func() error {
				found, qerr := s.directory.FindByGraphIDs(ctx, batch)
				if qerr != nil {
					return qerr
				}
				results[batchIdx] = found
				return nil
			})
			return nil
		})
	}
	_ = g.Wait()

	for batchIdx, err := range errs {
		if err == nil {
			continue
		}
		lo := batchIdx * lookupBatchSize
		batch := ids[lo:min(lo+lookupBatchSize, len(ids))]
		for _, id := range batch {
			unresolved[id] = true
		}
		metrics.BranchesAborted.Add(float64(len(batch)))
		s.logger.ErrorContext(ctx, "directory batch lookup failed after retries, abandoning branches",
			"report_id", reportID,
			"candidates", len(batch),
			"error", err,
		)
	}
	for _, m := range results {
		for id, u := range m {
			users[id] = u
		}
	}
	return users, unresolved
}

// mergeConvergingPath folds a path that reaches an already-visited node into
// that node's existing entry, lowering hop depth when shorter. Nodes that
// were skipped for lack of a directory entry have nothing to merge into.
func (s *Service) mergeConvergingPath(ctx context.Context, report Report, d discovery, hop int, resolved map[string]directory.User) {
	user, ok := resolved[d.edge.OwnerGraphID]
	if !ok {
		return
	}
	trail := extendTrail(d.via.trail, crumb{
		chainHash:   identity.HashChain(d.edge.OwnerGraphID),
		displayName: user.DisplayName,
	})
	entry := s.buildEntry(report, user, hop, trail, d.edge.RecordedAt, nil)

	if _, _, err := s.notifications.Upsert(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "converging path merge failed",
			"report_id", report.ID,
			"recipient", identity.Short(user.NotificationID),
			"error", err,
		)
		return
	}
	metrics.PathsMerged.Inc()
}

func (s *Service) buildEntry(report Report, user directory.User, hop int, trail []crumb, exposedAt time.Time, labels []string) notification.Entry {
	p := materializePath(trail)
	entry := notification.Entry{
		ReportID:    report.ID,
		RecipientID: user.NotificationID,
		HopDepth:    hop,
		Chain:       p,
		Paths:       []notification.Path{p},
	}
	switch report.PrivacyLevel {
	case PrivacyFull:
		entry.ConditionLabels = labels
		t := exposedAt
		entry.ExposedAt = &t
	case PrivacySTIOnly:
		entry.ConditionLabels = labels
	}
	return entry
}

func (s *Service) dispatchExposure(ctx context.Context, report Report, user directory.User, entry notification.Entry, hop int) {
	if user.PushToken == "" {
		return
	}
	msg := push.Message{
		Token: user.PushToken,
		Data: map[string]string{
			"type":            push.TypeExposure,
			"notification_id": entry.ID,
			"hop_depth":       strconv.Itoa(hop),
		},
		Title: "Possible exposure",
		Body:  "Someone in your recent contact network reported a positive test.",
	}
	if _, err := s.sender.Send(ctx, msg); err != nil {
		// Fire and forget: a failed push never fails the traversal.
		s.logger.WarnContext(ctx, "exposure push dispatch failed",
			"report_id", report.ID,
			"error", err,
		)
	}
}

func extendTrail(trail []crumb, next crumb) []crumb {
	extended := make([]crumb, len(trail), len(trail)+1)
	copy(extended, trail)
	return append(extended, next)
}

// materializePath renders a trail as a visualization path: the reporter's
// node is POSITIVE, everyone else UNKNOWN, and the final node is flagged as
// the entry's recipient.
func materializePath(trail []crumb) notification.Path {
	p := notification.Path{
		Members: make([]string, len(trail)),
		Nodes:   make([]notification.Node, len(trail)),
	}
	for i, c := range trail {
		p.Members[i] = c.chainHash
		status := notification.StatusUnknown
		if i == 0 {
			status = notification.StatusPositive
		}
		p.Nodes[i] = notification.Node{
			DisplayName:   c.displayName,
			TestStatus:    status,
			IsCurrentUser: i == len(trail)-1,
		}
	}
	return p
}
