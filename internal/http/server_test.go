package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketmoney/internal/core"
	"pocketmoney/internal/middleware/ratelimit"
	"pocketmoney/internal/services"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func newAPI(t *testing.T) (*apiClient, *Server) {
	t.Helper()
	h := services.NewHousehold(services.Deps{})
	srv := NewServer(":0", h, Options{Limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1000})})
	return &apiClient{t: t, handler: srv.Handler}, srv
}

// do sends body as JSON and decodes the response into out when non-nil.
func (c *apiClient) do(method, path, body string, out any) int {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	if out != nil && rr.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), out), rr.Body.String())
	}
	return rr.Code
}

type family struct {
	guardian core.Account
	child    core.Account
}

func (c *apiClient) family() family {
	c.t.Helper()
	var g, d createAccountResponse
	require.Equal(c.t, http.StatusCreated, c.do(http.MethodPost, "/api/accounts", `{"name":"Sarah","role":"guardian"}`, &g))
	require.Equal(c.t, http.StatusCreated, c.do(http.MethodPost, "/api/accounts", `{"name":"Leo","role":"DEPENDENT","dob":"2014-05-02"}`, &d))
	require.NotNil(c.t, d.Policy)
	return family{guardian: g.Account, child: d.Account}
}

func TestHealthAndReady(t *testing.T) {
	api, _ := newAPI(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, path, "", nil), path)
	}
}

func TestReadyReportsDependencyFailure(t *testing.T) {
	h := services.NewHousehold(services.Deps{})
	srv := NewServer(":0", h, Options{Ready: func(context.Context) error { return errors.New("db closed") }})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAccountsAPI(t *testing.T) {
	api, _ := newAPI(t)
	f := api.family()

	var again map[string]string
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/accounts", `{"name":"Tom","role":"GUARDIAN"}`, &again))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/accounts", `{"name":"Tom","role":"BOSS"}`, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/accounts", `{"name":"  ","role":"DEPENDENT"}`, nil))

	var deps []core.Account
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/accounts?role=dependent", "", &deps))
	require.Len(t, deps, 1)
	assert.Equal(t, f.child.ID, deps[0].ID)

	var got core.Account
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/accounts/"+string(f.child.ID), "", &got))
	assert.Equal(t, "Leo", got.Name)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/accounts/nobody", "", nil))
}

func TestMoneyAPI(t *testing.T) {
	api, _ := newAPI(t)
	f := api.family()
	child := "/api/accounts/" + string(f.child.ID)

	var sent core.Transaction
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, child+"/send",
		`{"from":"`+string(f.guardian.ID)+`","amount":"45.50"}`, &sent))
	assert.Equal(t, "Transfer from Sarah", sent.Description)
	assert.Equal(t, core.Cents(4550), sent.Amount)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, child+"/send", `{"amount":"1.00"}`, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, child+"/send",
		`{"from":"`+string(f.guardian.ID)+`","amount":"-1.00"}`, nil))

	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, child+"/policy", `{"blocked_categories":["Games"]}`, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, child+"/spend",
		`{"amount":"3.00","description":"Skin","category":"games"}`, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, child+"/policy", `{"card":{"theme":"neon"}}`, nil))

	var spent core.Transaction
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, child+"/spend",
		`{"amount":"6.00","description":"Comic","category":"Books"}`, &spent))
	assert.Equal(t, core.Cents(-600), spent.Amount)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, child+"/spend",
		`{"amount":"5.00","description":"Pizza","category":"Food"}`, nil))

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, child+"/transactions",
		`{"amount":"2.50","description":"Birthday","kind":"EARN"}`, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, child+"/transactions",
		`{"amount":"2.50","description":"Birthday","kind":"GIFT"}`, nil))

	var history []core.Transaction
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, child+"/transactions?limit=2", "", &history))
	require.Len(t, history, 2)
	assert.Equal(t, "Birthday", history[0].Description)

	var summary services.SpendingSummary
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, child+"/summary", "", &summary))
	assert.Equal(t, core.Cents(4200), summary.Balance)
	assert.Equal(t, core.Cents(600), summary.TotalSpent)
	assert.Equal(t, core.Cents(250), summary.TotalEarned)
}

func TestChoresAPI(t *testing.T) {
	api, _ := newAPI(t)
	f := api.family()

	var c core.Chore
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/chores",
		`{"title":"Wash the car","reward":"5.00","assignee_id":"`+string(f.child.ID)+`","due_date":"2024-11-30"}`, &c))
	assert.Equal(t, core.Pending, c.Status)

	base := "/api/chores/" + string(c.ID)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, base+"/approve", "", nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/mark-done", "", &c))
	assert.Equal(t, core.Review, c.Status)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/approve", "", &c))
	assert.Equal(t, core.Completed, c.Status)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, base+"/celebrate", "", nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/chores/missing/approve", "", nil))

	var acct core.Account
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/accounts/"+string(f.child.ID), "", &acct))
	assert.Equal(t, core.Cents(500), acct.Balance)

	var list []core.Chore
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/chores?assignee="+string(f.child.ID), "", &list))
	assert.Len(t, list, 1)
}

func TestGoalsAPI(t *testing.T) {
	api, _ := newAPI(t)
	f := api.family()

	var g core.SavingsGoal
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals",
		`{"owner_id":"`+string(f.child.ID)+`","title":"New Bike","target":"150.00","glyph":"🚲"}`, &g))

	base := "/api/goals/" + string(g.ID)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/contribute", `{"amount":"10.00"}`, &g))
	assert.Equal(t, core.Cents(1000), g.Current)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/withdraw", `{"amount":"25.00"}`, &g))
	assert.Equal(t, core.Cents(0), g.Current)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, base+"/contribute", `{"amount":"0"}`, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/goals/missing/contribute", `{"amount":"1.00"}`, nil))
}

func TestMissionsAPI(t *testing.T) {
	api, _ := newAPI(t)
	f := api.family()

	var missions []core.Mission
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/missions", "", &missions))
	require.Len(t, missions, 2)

	body := `{"account_id":"` + string(f.child.ID) + `"}`
	var lesson core.Lesson
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/missions/m1/start", body, &lesson))
	assert.Len(t, lesson.Options, 3)

	var res services.MissionResult
	answer := `{"account_id":"` + string(f.child.ID) + `","answer":1}`
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/missions/m1/answer", answer, &res))
	assert.True(t, res.Correct)
	assert.Equal(t, 2, res.PointsAwarded)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/missions/m1/answer", answer, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/missions/m7/start", body, nil))

	var progress services.MissionProgress
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/accounts/"+string(f.child.ID)+"/missions", "", &progress))
	assert.Equal(t, 2, progress.Points)
}

func TestSuggestChoresAPI(t *testing.T) {
	api, _ := newAPI(t)
	f := api.family()

	var resp suggestResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/accounts/"+string(f.child.ID)+"/chore-suggestions",
		`{"interests":["dogs"]}`, &resp))
	assert.Equal(t, []string{"Clean your room", "Wash the dishes", "Walk the dog"}, resp.Suggestions)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	api, _ := newAPI(t)
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRateLimitOnWrites(t *testing.T) {
	h := services.NewHousehold(services.Deps{})
	srv := NewServer(":0", h, Options{Limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1})})

	codes := make([]int, 0, 2)
	for range 2 {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/accounts",
			strings.NewReader(`{"name":"Leo","role":"DEPENDENT"}`)))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestEventStream(t *testing.T) {
	h := services.NewHousehold(services.Deps{})
	srv := NewServer(":0", h, Options{})
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	ctx := context.Background()
	g, err := h.CreateGuardian(ctx, core.Profile{Name: "Sarah"})
	require.NoError(t, err)
	child, _, err := h.AddDependent(ctx, core.Profile{Name: "Leo"})
	require.NoError(t, err)

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ts.URL+"/api/events?account_id="+string(child.ID), nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	_, err = h.SendMoney(ctx, g.ID, child.ID, core.Cents(100))
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: transaction\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"amount":"1.00"`)
}
