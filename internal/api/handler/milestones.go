package handler

import (
	"net/http"
	"time"

	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

// Milestones serves the deal milestone actions beyond plain CRUD.
type Milestones struct {
	repo  Repository[models.DealMilestone]
	debug bool
	now   func() time.Time
}

func NewMilestones(repo Repository[models.DealMilestone], debug bool) *Milestones {
	return &Milestones{repo: repo, debug: debug, now: time.Now}
}

// Complete stamps a milestone with the completion time and the acting user.
// A milestone completes once.
func (h *Milestones) Complete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "deal milestone")
	if !ok {
		return
	}
	const operation = "deal milestone completion"

	m, err := h.repo.Get(r.Context(), p, id)
	if err != nil {
		storeError(w, r, err, operation, "deal milestone", id.String(), h.debug)
		return
	}
	if m.Completed() {
		response.BusinessLogicError("This milestone has already been completed.", "MILESTONE_ALREADY_COMPLETED",
			map[string]any{"milestone_id": m.ID, "completed_at": m.CompletedAt, "completed_by": m.CompletedBy},
			[]string{"Reload the deal to see its current milestones"}).Write(w)
		return
	}

	done, err := h.repo.Update(r.Context(), p, id, map[string]any{
		"completed_at": h.now().UTC(),
		"completed_by": p.UserID,
	})
	if err != nil {
		storeError(w, r, err, operation, "deal milestone", id.String(), h.debug)
		return
	}
	response.Success(w, done, "Deal milestone completed successfully")
}
