package underwriting

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/underwriting-cli/internal/gate"
	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/resilience"
	"github.com/sells-group/underwriting-cli/internal/store"
)

// Activity limits.
const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 200
)

// FullUnderwritingTabs are the workstreams unlocked once a deal advances.
var FullUnderwritingTabs = []string{"Pro Forma", "Rent Roll", "Waterfall", "Debt Model"}

// GateSummary builds the gate view of a deal from its latest run.
func (s *Service) GateSummary(ctx context.Context, dealID string) (*gate.Summary, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	sum, err := s.summaryFor(ctx, deal)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *Service) summaryFor(ctx context.Context, deal *model.Deal) (gate.Summary, error) {
	latest, err := s.store.LatestRun(ctx, deal.ID)
	if err != nil {
		return gate.Summary{}, eris.Wrapf(err, "underwriting: latest run for deal %s", deal.ID)
	}
	count, err := s.store.CountGateEvents(ctx, deal.ID)
	if err != nil {
		return gate.Summary{}, eris.Wrapf(err, "underwriting: count gate events for deal %s", deal.ID)
	}
	return gate.BuildSummary(deal, latest, count), nil
}

// Override sets or clears a manual gate override. rawStatus accepts the
// values gate.ParseOverrideStatus does; reason is required unless clearing.
// A request that changes nothing returns the deal untouched.
func (s *Service) Override(ctx context.Context, dealID, rawStatus, reason, by string) (*model.Deal, error) {
	status, err := gate.ParseOverrideStatus(rawStatus, reason)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	var reasonPtr *string
	if status != nil {
		r := strings.TrimSpace(reason)
		reasonPtr = &r
	}
	now := s.now()

	var upd *store.GateUpdate
	err = resilience.Do(ctx, s.writeRetry("update_deal_gate"), func(ctx context.Context) error {
		var err error
		upd, err = s.store.UpdateDealGate(ctx, dealID, func(deal *model.Deal) []*model.GateEvent {
			if ev, changed := gate.SetOverride(deal, status, reasonPtr, by, now); changed {
				return []*model.GateEvent{ev}
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: override")
	}
	if len(upd.Events) == 0 {
		return upd.Deal, nil
	}
	s.recordEvents(upd.Events)

	logger().Info("gate override",
		zap.String("deal_id", dealID),
		zap.String("event", upd.Events[0].EventType),
		zap.String("effective_status", string(upd.Deal.GateStatus)),
		zap.String("by", by),
	)
	return upd.Deal, nil
}

// ActivityActor identifies who caused an activity entry.
type ActivityActor struct {
	ID *string `json:"id"`
}

// ActivityEvent is one entry of a deal's activity feed.
type ActivityEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	Actor     ActivityActor  `json:"actor"`
	Summary   string         `json:"summary"`
	Metadata  map[string]any `json:"metadata"`
}

// Activity returns the deal's gate events as a feed, newest first. limit is
// clamped to 1..MaxActivityLimit.
func (s *Service) Activity(ctx context.Context, dealID string, limit int) ([]ActivityEvent, error) {
	limit = ClampActivityLimit(limit)

	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}
	events, err := s.store.ListGateEvents(ctx, dealID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: activity")
	}

	feed := make([]ActivityEvent, 0, len(events))
	for i := range events {
		feed = append(feed, activityFor(&events[i]))
	}
	slices.SortFunc(feed, func(a, b ActivityEvent) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// ClampActivityLimit bounds limit to 1..MaxActivityLimit.
func ClampActivityLimit(limit int) int {
	return max(1, min(limit, MaxActivityLimit))
}

var titleCaser = cases.Title(language.English)

func activityFor(e *model.GateEvent) ActivityEvent {
	a := ActivityEvent{
		ID:        "gate-" + e.ID,
		Type:      e.EventType,
		CreatedAt: e.CreatedAt,
		Metadata:  e.Metadata,
	}
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	if actor := e.Actor(); actor != "" {
		a.Actor.ID = &actor
	}

	switch e.EventType {
	case model.EventBOERunCreated:
		a.Summary = "BOE run created"
	case model.EventOverrideSet:
		a.Type = "GATE_OVERRIDE_SET"
		to := ""
		if e.ToStatus != nil {
			to = *e.ToStatus
		}
		a.Summary = fmt.Sprintf("Gate override set to %s", to)
	case model.EventOverrideCleared:
		a.Type = "GATE_OVERRIDE_CLEARED"
		a.Summary = "Gate override cleared"
	default:
		a.Summary = titleCaser.String(strings.ToLower(strings.ReplaceAll(e.EventType, "_", " ")))
	}
	return a
}

// RequireAdvance loads a deal and fails with ErrUnderwritingLocked unless its
// gate state is ADVANCE.
func (s *Service) RequireAdvance(ctx context.Context, dealID string) (*model.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.CurrentGateState != model.GateStateAdvance {
		return nil, ErrUnderwritingLocked
	}
	return deal, nil
}

// FullUnderwriting is the placeholder returned for unlocked deals.
type FullUnderwriting struct {
	DealID  string   `json:"deal_id"`
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Tabs    []string `json:"tabs"`
}

// FullUnderwriting returns the full-underwriting entry point for a deal whose
// gate has advanced.
func (s *Service) FullUnderwriting(ctx context.Context, dealID string) (*FullUnderwriting, error) {
	deal, err := s.RequireAdvance(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return &FullUnderwriting{
		DealID:  deal.ID,
		Status:  "enabled",
		Message: "Full Underwriting Enabled",
		Tabs:    slices.Clone(FullUnderwritingTabs),
	}, nil
}

// ICPacket is the investment committee handout for one deal.
type ICPacket struct {
	PacketVersion     string             `json:"packet_version"`
	GeneratedAt       time.Time          `json:"generated_at"`
	DealSnapshot      DealSnapshot       `json:"deal_snapshot"`
	GateSummary       gate.Summary       `json:"gate_summary"`
	RecommendedMaxBid RecommendedMaxBid  `json:"recommended_max_bid"`
	AuditHistory      []OverrideAuditRow `json:"audit_history"`
}

// DealSnapshot identifies the deal an IC packet was generated for.
type DealSnapshot struct {
	DealID      string   `json:"deal_id"`
	DealName    string   `json:"deal_name"`
	Address     string   `json:"address"`
	AskingPrice *float64 `json:"asking_price"`
	LatestRunID *string  `json:"latest_run_id"`
}

// RecommendedMaxBid is the headline bid from the latest run.
type RecommendedMaxBid struct {
	BOEMaxBid         any     `json:"boe_max_bid"`
	BindingConstraint *string `json:"binding_constraint"`
	DeltaVsAsking     any     `json:"delta_vs_asking"`
}

// OverrideAuditRow is one override set or clear in an IC packet.
type OverrideAuditRow struct {
	EventType  string    `json:"event_type"`
	FromStatus *string   `json:"from_status"`
	ToStatus   *string   `json:"to_status"`
	Source     string    `json:"source"`
	Reason     *string   `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
	User       *string   `json:"user"`
}

// ICPacket assembles the gate summary, recommended bid and override history
// of a deal.
func (s *Service) ICPacket(ctx context.Context, dealID string) (*ICPacket, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestRun(ctx, deal.ID)
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: ic packet")
	}
	count, err := s.store.CountGateEvents(ctx, deal.ID)
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: ic packet")
	}
	events, err := s.store.ListGateEvents(ctx, deal.ID, count)
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: ic packet")
	}

	p := &ICPacket{
		PacketVersion: gate.PayloadVersion,
		GeneratedAt:   s.now(),
		DealSnapshot: DealSnapshot{
			DealID:      deal.ID,
			DealName:    deal.Name,
			Address:     deal.Address,
			AskingPrice: deal.AskingPrice,
		},
		GateSummary:  gate.BuildSummary(deal, latest, count),
		AuditHistory: []OverrideAuditRow{},
	}
	if latest != nil {
		id := latest.ID
		p.DealSnapshot.LatestRunID = &id
		p.RecommendedMaxBid = RecommendedMaxBid{
			BOEMaxBid:         latest.Outputs["boe_max_bid"],
			BindingConstraint: latest.BindingConstraint,
			DeltaVsAsking:     latest.Outputs["delta_vs_asking"],
		}
	}
	for _, e := range events {
		if e.EventType != model.EventOverrideSet && e.EventType != model.EventOverrideCleared {
			continue
		}
		row := OverrideAuditRow{
			EventType:  e.EventType,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Source:     e.Source,
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt,
		}
		if by, ok := e.Metadata["override_by"].(string); ok {
			row.User = &by
		}
		p.AuditHistory = append(p.AuditHistory, row)
	}
	return p, nil
}

// Portfolio rolls up the gate summaries of every deal in a workspace, or of
// all deals when workspaceID is empty.
func (s *Service) Portfolio(ctx context.Context, workspaceID string) (*gate.Portfolio, error) {
	deals, err := s.allDeals(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	summaries := make([]gate.Summary, len(deals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.portfolioWorkers)
	for i := range deals {
		g.Go(func() error {
			sum, err := s.summaryFor(gctx, &deals[i])
			if err != nil {
				return err
			}
			summaries[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "underwriting: portfolio")
	}

	p := gate.BuildPortfolio(summaries)
	return &p, nil
}

// allDeals pages through ListDeals so the portfolio is not capped by the
// store's default page size.
func (s *Service) allDeals(ctx context.Context, workspaceID string) ([]model.Deal, error) {
	const page = 500
	var all []model.Deal
	for offset := 0; ; offset += page {
		batch, err := s.ListDeals(ctx, store.DealFilter{WorkspaceID: workspaceID, Limit: page, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < page {
			return all, nil
		}
	}
}
