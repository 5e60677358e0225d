package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/handler"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type clubRequest struct {
	ClubID uuid.UUID `path:"clubID"`
}

type createRequest struct {
	ClubID         uuid.UUID  `json:"club_id"`
	ContactEmail   string     `json:"contact_email"`
	ClubName       string     `json:"club_name"`
	TrialStartedAt *time.Time `json:"trial_started_at"`
}

func (a *API) create(ctx handler.Context, req createRequest) handler.Response {
	if req.ClubID == uuid.Nil {
		return handler.Error(invalidField("club_id", "required"))
	}

	opts := []lifecycle.CreateOption{lifecycle.WithContact(req.ContactEmail, req.ClubName)}
	if req.TrialStartedAt != nil {
		opts = append(opts, lifecycle.WithTrialStart(*req.TrialStartedAt))
	}
	v, err := a.svc.CreateClubSubscription(ctx, req.ClubID, opts...)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(v, handler.WithJSONStatus(http.StatusCreated))
}

func (a *API) get(ctx handler.Context, req clubRequest) handler.Response {
	return a.view(ctx, req.ClubID, a.svc.GetClubSubscription)
}

func (a *API) delete(ctx handler.Context, req clubRequest) handler.Response {
	if err := requireClub(req.ClubID); err != nil {
		return handler.Error(err)
	}
	if err := a.svc.DeleteClubSubscription(ctx, req.ClubID); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

type contactRequest struct {
	ClubID       uuid.UUID `path:"clubID" json:"-"`
	ContactEmail string    `json:"contact_email"`
	ClubName     string    `json:"club_name"`
}

func (a *API) updateContact(ctx handler.Context, req contactRequest) handler.Response {
	if err := requireClub(req.ClubID); err != nil {
		return handler.Error(err)
	}
	v, err := a.svc.UpdateContact(ctx, req.ClubID, req.ContactEmail, req.ClubName)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(v)
}

func (a *API) engagement(ctx handler.Context, req clubRequest) handler.Response {
	if err := requireClub(req.ClubID); err != nil {
		return handler.Error(err)
	}
	m, err := a.svc.EngagementMetrics(ctx, req.ClubID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(m)
}

type engagementRequest struct {
	ClubID uuid.UUID `path:"clubID" json:"-"`
	lifecycle.EngagementEvent
}

func (a *API) recordEngagement(ctx handler.Context, req engagementRequest) handler.Response {
	if err := requireClub(req.ClubID); err != nil {
		return handler.Error(err)
	}
	if !req.Kind.Valid() {
		return handler.Error(invalidField("kind", "must be player_created or match_logged"))
	}
	m, err := a.svc.UpdateEngagementMetrics(ctx, req.ClubID, req.EngagementEvent)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(m)
}

func (a *API) eligibility(ctx handler.Context, req clubRequest) handler.Response {
	if err := requireClub(req.ClubID); err != nil {
		return handler.Error(err)
	}
	d, err := a.svc.CheckAutoExtensionEligibility(ctx, req.ClubID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(d)
}

func (a *API) evaluate(ctx handler.Context, req clubRequest) handler.Response {
	if err := requireClub(req.ClubID); err != nil {
		return handler.Error(err)
	}
	ev, err := a.svc.EvaluateClub(ctx, req.ClubID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(ev)
}

func (a *API) grantAuto(ctx handler.Context, req clubRequest) handler.Response {
	return a.view(ctx, req.ClubID, a.svc.GrantAutoExtension)
}

func (a *API) propose(ctx handler.Context, req clubRequest) handler.Response {
	return a.view(ctx, req.ClubID, a.svc.ProposeExtension)
}

func (a *API) accept(ctx handler.Context, req clubRequest) handler.Response {
	return a.view(ctx, req.ClubID, a.svc.AcceptProposedExtension)
}

func (a *API) activate(ctx handler.Context, req clubRequest) handler.Response {
	return a.view(ctx, req.ClubID, a.svc.ActivateSubscription)
}

type planRequest struct {
	ClubID    uuid.UUID           `path:"clubID" json:"-"`
	PlanCycle lifecycle.PlanCycle `json:"plan_cycle"`
}

func (a *API) schedulePlan(ctx handler.Context, req planRequest) handler.Response {
	if err := requireClub(req.ClubID); err != nil {
		return handler.Error(err)
	}
	v, err := a.svc.ScheduleActivation(ctx, req.ClubID, req.PlanCycle)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(v)
}

type historyRequest struct {
	ClubID uuid.UUID `path:"clubID" query:"-"`
	Limit  *int      `query:"limit"`
	Offset int       `query:"offset"`
}

func (a *API) history(ctx handler.Context, req historyRequest) handler.Response {
	if err := requireClub(req.ClubID); err != nil {
		return handler.Error(err)
	}
	limit := defaultHistoryLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 0 || req.Offset < 0 {
		return handler.Error(fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidQuery))
	}
	limit = min(max(limit, 1), maxHistoryLimit)

	events, err := a.svc.History(ctx, req.ClubID, limit, req.Offset)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(events, handler.WithJSONMeta(map[string]any{
		"limit":  limit,
		"offset": req.Offset,
		"count":  len(events),
	}))
}

// view runs a club-scoped operation that returns the club's view.
func (a *API) view(ctx context.Context, id uuid.UUID, op func(ctx context.Context, id uuid.UUID) (*lifecycle.View, error)) handler.Response {
	if err := requireClub(id); err != nil {
		return handler.Error(err)
	}
	v, err := op(ctx, id)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(v)
}

// sweep runs one sweep for deployments that schedule it externally. It
// ignores the per-request timeout: a sweep over many clubs outlives it.
func (a *API) sweep(ctx handler.Context, _ struct{}) handler.Response {
	report, err := a.svc.Sweep(context.WithoutCancel(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sweepResponse{
		Scanned:    report.Scanned,
		Updated:    report.Updated,
		Extended:   report.Extended,
		Failed:     report.Failed,
		DurationMS: report.Took.Milliseconds(),
	})
}

type sweepResponse struct {
	Scanned    int64 `json:"scanned"`
	Updated    int64 `json:"updated"`
	Extended   int64 `json:"extended"`
	Failed     int64 `json:"failed"`
	DurationMS int64 `json:"duration_ms"`
}
