package http

import (
	"net/http"

	"pocketmoney/internal/core"
)

type createGoalRequest struct {
	OwnerID core.AccountID `json:"owner_id"`
	Title   string         `json:"title"`
	Target  core.Money     `json:"target"`
	Glyph   string         `json:"glyph"`
}

type amountRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.household.CreateGoal(r.Context(), req.OwnerID, sanitizeInput(req.Title), req.Target, sanitizeInput(req.Glyph))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(g).Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	owner := core.AccountID(r.URL.Query().Get("owner"))
	NewResponse().JSON(s.household.Goals(owner)).Write(w)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.household.Goal(core.GoalID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(g).Write(w)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.household.Contribute(r.Context(), core.GoalID(r.PathValue("id")), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(g).Write(w)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.household.Withdraw(r.Context(), core.GoalID(r.PathValue("id")), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(g).Write(w)
}
