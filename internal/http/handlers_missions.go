package http

import (
	"net/http"

	"pocketmoney/internal/core"
)

type startMissionRequest struct {
	AccountID core.AccountID `json:"account_id"`
}

type answerMissionRequest struct {
	AccountID core.AccountID `json:"account_id"`
	Answer    int            `json:"answer"`
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.household.Missions()).Write(w)
}

func (s *Server) handleMissionProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.household.MissionProgress(accountID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(p).Write(w)
}

func (s *Server) handleStartMission(w http.ResponseWriter, r *http.Request) {
	var req startMissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	lesson, err := s.household.StartMission(r.Context(), req.AccountID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(lesson).Write(w)
}

func (s *Server) handleAnswerMission(w http.ResponseWriter, r *http.Request) {
	var req answerMissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.household.AnswerMission(r.Context(), req.AccountID, r.PathValue("id"), req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(res).Write(w)
}
