package http

import (
	"fmt"
	"net/http"

	"pocketmoney/internal/core"
	"pocketmoney/internal/policy"
)

type createAccountRequest struct {
	Name   string    `json:"name"`
	Role   string    `json:"role"`
	Avatar string    `json:"avatar"`
	DOB    core.Date `json:"dob"`
}

type createAccountResponse struct {
	Account core.Account         `json:"account"`
	Policy  *core.PolicySettings `json:"policy,omitempty"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := core.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile := core.Profile{
		Name:   sanitizeInput(req.Name),
		Avatar: sanitizeInput(req.Avatar),
		DOB:    req.DOB,
	}

	var resp createAccountResponse
	if role == core.Guardian {
		resp.Account, err = s.household.CreateGuardian(r.Context(), profile)
	} else {
		var p core.PolicySettings
		resp.Account, p, err = s.household.AddDependent(r.Context(), profile)
		resp.Policy = &p
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(resp).Write(w)
}

// handleListAccounts lists all accounts, or only dependents with
// ?role=dependent.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	var accounts []core.Account
	switch v := r.URL.Query().Get("role"); v {
	case "":
		accounts = s.household.Accounts()
	default:
		role, err := core.ParseRole(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, a := range s.household.Accounts() {
			if a.Role == role {
				accounts = append(accounts, a)
			}
		}
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	NewResponse().JSON(accounts).Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.household.Account(accountID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(a).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.household.History(accountID(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewResponse().JSON(txs).Write(w)
}

type transactionRequest struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Kind        core.Kind  `json:"kind"`
	Category    string     `json:"category"`
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.household.RecordTransaction(r.Context(), accountID(r), req.Amount,
		sanitizeInput(req.Description), req.Kind, sanitizeInput(req.Category))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(t).Write(w)
}

type spendRequest struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.household.Spend(r.Context(), accountID(r), req.Amount,
		sanitizeInput(req.Description), sanitizeInput(req.Category))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(t).Write(w)
}

// sendRequest credits the path account. From names the sender.
type sendRequest struct {
	From   core.AccountID `json:"from"`
	Amount core.Money     `json:"amount"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.From == "" {
		writeError(w, r, fmt.Errorf("%w: from is required", errBadRequest))
		return
	}
	t, err := s.household.SendMoney(r.Context(), req.From, accountID(r), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(t).Write(w)
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := s.household.Policy(accountID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(p).Write(w)
}

func (s *Server) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var patch policy.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.household.UpdatePolicy(r.Context(), accountID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(p).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.household.Summary(accountID(r), since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(summary).Write(w)
}

type suggestRequest struct {
	Interests []string `json:"interests"`
}

type suggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

func (s *Server) handleSuggestChores(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	for i, v := range req.Interests {
		req.Interests[i] = sanitizeInput(v)
	}
	titles, err := s.household.SuggestChores(r.Context(), accountID(r), req.Interests)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(suggestResponse{Suggestions: titles}).Write(w)
}
