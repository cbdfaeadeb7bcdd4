package handlers

import (
	"evacuation-dashboard/internal/api/dto"
	"evacuation-dashboard/internal/domain"
	"evacuation-dashboard/internal/ports"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlanHandler exposes CRUD endpoints for evacuation plans.
type PlanHandler struct {
	Repo  ports.PlanRepository
	Now   func() time.Time
	NewID func() string
}

func (h *PlanHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *PlanHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Repo.ListPlans(r.Context())
	if err != nil {
		writeRepoError(w, r, "list plans", err)
		return
	}
	if plans == nil {
		plans = []domain.EvacuationPlan{}
	}
	writeJSON(w, r, http.StatusOK, plans)
}

func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Repo.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeRepoError(w, r, "get plan", err)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// Create stores a new plan. A client-supplied id is kept; otherwise one is
// generated. The server always stamps lastUpdated.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePlanRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = h.newID()
	}
	plan := req.ToPlan(id, h.now())
	if err := plan.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Repo.CreatePlan(r.Context(), plan); err != nil {
		writeRepoError(w, r, "create plan", err)
		return
	}

	zap.L().Info("plan created", zap.String("id", plan.ID), zap.String("name", plan.Name))
	writeJSON(w, r, http.StatusCreated, plan)
}

// Update applies the body as a partial update. Fields absent from the body
// keep their stored values.
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.PlanPatch
	// Clients send the whole plan back, including fields this server does
	// not store (createdAt), so a patch ignores unknown fields.
	if !decodeBody(w, r, &patch, false) {
		return
	}

	id := r.PathValue("id")
	if _, err := h.Repo.UpdatePlan(r.Context(), id, patch); err != nil {
		writeRepoError(w, r, "update plan", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: dto.MsgPlanUpdated})
}

func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Repo.DeletePlan(r.Context(), id); err != nil {
		writeRepoError(w, r, "delete plan", err)
		return
	}

	zap.L().Info("plan deleted", zap.String("id", id))
	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: dto.MsgPlanDeleted})
}
