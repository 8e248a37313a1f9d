package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/scheduler/api/transport"
	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/scheduler"
	"github.com/fastygo/scheduler/pkg/httpcontext"
	"github.com/fastygo/scheduler/repository"
	"github.com/fastygo/scheduler/usecase/schedule"
)

// ScheduleService is satisfied by *schedule.UseCase.
type ScheduleService interface {
	Plan(ctx context.Context, snap *domain.Snapshot, mode scheduler.Mode) (*schedule.Outcome, error)
	Run(ctx context.Context, req schedule.RunRequest) (*schedule.Outcome, error)
	GetRun(ctx context.Context, id string) (*domain.ScheduleRun, error)
	ListRuns(ctx context.Context, filter repository.RunFilter) ([]domain.ScheduleRun, error)
	Pending(ctx context.Context, filter repository.SessionFilter) ([]domain.Session, error)
}

type ScheduleHandler struct {
	baseHandler
	uc ScheduleService
}

func NewScheduleHandler(uc ScheduleService, adapter *httpcontext.Adapter, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// Solve plans the batch in the request body without touching the store.
// An infeasible StrictAll batch is a successful response with feasible=false.
//
// @Summary Solve a batch
// @Tags schedule
// @Router /api/v1/schedule/solve [post]
func (h *ScheduleHandler) Solve(ctx *fasthttp.RequestCtx) {
	var req transport.SolveRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	snap, mode, err := req.Snapshot()
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	outcome, err := h.uc.Plan(stdCtx, snap, mode)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}

	var conflicts []scheduler.Pair
	if ctx.QueryArgs().GetBool("conflicts") {
		conflicts = outcome.Conflicts
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewSolveResponse(outcome.Result, conflicts))
}

// @Summary Run against the store
// @Tags schedule
// @Router /api/v1/schedule/runs [post]
func (h *ScheduleHandler) CreateRun(ctx *fasthttp.RequestCtx) {
	var req transport.RunRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	from, to, mode, err := req.Filter()
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}

	outcome, err := h.uc.Run(stdCtx, schedule.RunRequest{
		Mode:        mode,
		Apply:       req.Apply,
		From:        from,
		To:          to,
		RequestedBy: httpcontext.UserID(stdCtx),
	})
	if err != nil && (outcome == nil || !errors.Is(err, domain.ErrStaleAssignment)) {
		h.respondError(stdCtx, ctx, err)
		return
	}

	resp := transport.RunResponse{
		RunID:      outcome.RunID,
		Pool:       outcome.Pool,
		Status:     string(outcome.Status),
		Sessions:   outcome.Sessions,
		Therapists: outcome.Therapists,
		Result:     transport.NewSolveResponse(outcome.Result, nil),
	}
	if err != nil {
		h.respondJSON(ctx, http.StatusConflict, transport.NewError(string(domain.ErrCodeConflict), err.Error(), resp))
		return
	}
	status := http.StatusOK
	if outcome.Status == domain.RunBuffered {
		status = http.StatusAccepted
	}
	h.respondSuccess(ctx, status, resp)
}

// @Summary Get a stored run
// @Tags schedule
// @Router /api/v1/schedule/runs/{id} [get]
func (h *ScheduleHandler) GetRun(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing run id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	run, err := h.uc.GetRun(stdCtx, id)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, run)
}

// @Summary List stored runs
// @Tags schedule
// @Router /api/v1/schedule/runs [get]
func (h *ScheduleHandler) ListRuns(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	filter := repository.RunFilter{
		Pool:   string(args.Peek("pool")),
		Status: domain.RunStatus(args.Peek("status")),
		Limit:  parseInt(args.Peek("limit"), 20),
		Offset: parseInt(args.Peek("offset"), 0),
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	runs, err := h.uc.ListRuns(stdCtx, filter)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if runs == nil {
		runs = []domain.ScheduleRun{}
	}
	h.respondSuccess(ctx, http.StatusOK, runs)
}

// Pending lists unassigned sessions, optionally narrowed by ?from=&to=.
//
// @Summary List sessions waiting for a therapist
// @Tags schedule
// @Router /api/v1/schedule/sessions [get]
func (h *ScheduleHandler) Pending(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	from, to, err := transport.DateRange(string(args.Peek("from")), string(args.Peek("to")))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}

	sessions, err := h.uc.Pending(stdCtx, repository.SessionFilter{From: from, To: to})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	h.respondSuccess(ctx, http.StatusOK, sessions)
}
