package http

import (
	"fmt"
	"net/http"

	"pocketmoney/internal/chores"
	"pocketmoney/internal/core"
)

// choreActions maps URL segments to board actions.
var choreActions = map[string]chores.Action{
	"mark-done": chores.MarkDone,
	"approve":   chores.Approve,
	"reject":    chores.Reject,
}

type createChoreRequest struct {
	Title      string         `json:"title"`
	Reward     core.Money     `json:"reward"`
	AssigneeID core.AccountID `json:"assignee_id"`
	DueDate    core.Date      `json:"due_date"`
}

func (s *Server) handleCreateChore(w http.ResponseWriter, r *http.Request) {
	var req createChoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.household.CreateChore(r.Context(), sanitizeInput(req.Title), req.Reward, req.AssigneeID, req.DueDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(c).Write(w)
}

func (s *Server) handleListChores(w http.ResponseWriter, r *http.Request) {
	assignee := core.AccountID(r.URL.Query().Get("assignee"))
	NewResponse().JSON(s.household.Chores(assignee)).Write(w)
}

func (s *Server) handleGetChore(w http.ResponseWriter, r *http.Request) {
	c, err := s.household.Chore(core.ChoreID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(c).Write(w)
}

func (s *Server) handleTransitionChore(w http.ResponseWriter, r *http.Request) {
	action, ok := choreActions[r.PathValue("action")]
	if !ok {
		NotFoundError(fmt.Sprintf("unknown chore action %q", r.PathValue("action"))).Write(w)
		return
	}
	c, err := s.household.TransitionChore(r.Context(), core.ChoreID(r.PathValue("id")), action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(c).Write(w)
}
