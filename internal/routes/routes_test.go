package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/oracle"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app   *fiber.App
	store *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:       "routes-test-secret",
		JWTAccessExpiry: time.Hour,
		LoginDevCode:    "1234",
		LoginCodeTTL:    10 * time.Minute,
		AdminToken:      "admin-secret",
		CORSOrigins:     "*",
	}
	registry := campus.NewRegistry()
	require.NoError(t, registry.Register(&campus.Campus{
		ID: "northfield", Name: "Northfield University", EmailDomain: "northfield.edu",
	}))

	st := store.NewMemory()
	orc := oracle.NewResilient(oracle.Funcs{
		ScoreFn: func(context.Context, *models.Report, *models.Report) (int, error) { return 90, nil },
		QuestionFn: func(context.Context, *models.Report) (oracle.Question, error) {
			return oracle.Question{Question: "What color is it?", Answer: "Blue"}, nil
		},
		ValidateFn: func(_ context.Context, candidate, expected string) (bool, error) {
			return strings.EqualFold(strings.TrimSpace(candidate), expected), nil
		},
	}, time.Second)

	sink := notify.Nop{}
	filter := services.NewContentFilter()
	notifier := services.NewNotifier(st, sink)
	chat := services.NewChatService(st, filter)
	matches := services.NewMatchService(st, chat, notifier, registry)
	h := Handlers{
		Auth:   handlers.NewAuthHandler(services.NewAuthService(st, cfg, registry)),
		Health: handlers.NewHealthHandler(st, registry),
		Report: handlers.NewReportHandler(
			services.NewReportService(st, orc, services.NewMatchingEngine(orc, st, 2), filter, notifier,
				notify.NewBurst(sink, time.Second), registry),
			matches,
		),
		Match:    handlers.NewMatchHandler(matches, services.NewVerificationService(st, orc, chat, notifier), chat),
		Handover: handlers.NewHandoverHandler(services.NewHandoverService(st, chat, notifier)),
	}

	app := fiber.New()
	Setup(app, cfg, st, registry, h)
	return &testServer{app: app, store: st}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email, name string) (token, userID string) {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/api/auth/code", "", map[string]string{"email": email})
	require.Equal(t, http.StatusAccepted, status)
	status, body := s.do(t, http.MethodPost, "/api/auth/verify", "", map[string]string{
		"email": email, "code": "1234", "name": name,
	})
	require.Equal(t, http.StatusOK, status, body)
	user := body["user"].(map[string]any)
	return body["access_token"].(string), user["id"].(string)
}

func TestHealthAndCampuses(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["db"])
	assert.EqualValues(t, 1, body["campus_count"])

	status, body = s.do(t, http.MethodGet, "/api/campuses", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])
}

func TestLostAndFoundFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	finder, _ := s.login(t, "ravi@northfield.edu", "Ravi")
	owner, _ := s.login(t, "priya@northfield.edu", "Priya")

	status, body := s.do(t, http.MethodPost, "/api/reports", finder, map[string]any{
		"type": "FOUND", "category": "Wallet/Bags", "item_name": "Blue Backpack", "location": "Library",
		"verification_question": "What color is the strap?", "verification_answer": "Blue",
	})
	require.Equal(t, http.StatusCreated, status, body)
	found := body["report"].(map[string]any)
	assert.NotContains(t, found, "verification_answer")
	assert.Equal(t, []any{}, body["suggestions"])

	status, body = s.do(t, http.MethodPost, "/api/reports", owner, map[string]any{
		"type": "LOST", "category": "Wallet/Bags", "item_name": "Blue Backpack", "location": "Library",
	})
	require.Equal(t, http.StatusCreated, status, body)
	lostID := body["report"].(map[string]any)["id"].(string)
	suggestions := body["suggestions"].([]any)
	require.Len(t, suggestions, 1)
	matchID := suggestions[0].(map[string]any)["match"].(map[string]any)["id"].(string)
	base := "/api/matches/" + matchID

	status, body = s.do(t, http.MethodPost, base+"/messages", owner, map[string]string{"text": "is it mine?"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["stored"])

	status, body = s.do(t, http.MethodGet, base, owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OWNER", body["role"])
	assert.Equal(t, "What color is the strap?", body["verification_question"])

	status, body = s.do(t, http.MethodPost, base+"/verify", owner, map[string]string{"answer": " blue "})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "VERIFIED", body["status"])

	status, body = s.do(t, http.MethodPost, base+"/messages", finder, map[string]string{"text": "Meet at the library desk?"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, true, body["stored"])

	status, body = s.do(t, http.MethodPost, base+"/handover", finder, nil)
	require.Equal(t, http.StatusCreated, status, body)
	code, _ := body["code"].(string)
	require.Len(t, code, 6)

	status, body = s.do(t, http.MethodGet, base+"/handover", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "code")

	status, body = s.do(t, http.MethodPost, base+"/handover/confirm", owner, map[string]string{"role": "owner", "code": "WRONG1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["accepted"])

	status, body = s.do(t, http.MethodPost, base+"/handover/confirm", owner, map[string]string{"role": "OWNER", "code": code})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, true, body["closed"])

	status, body = s.do(t, http.MethodGet, "/api/reports/"+lostID, owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "RETURNED", body["status"])

	status, body = s.do(t, http.MethodGet, base+"/messages", finder, nil)
	require.Equal(t, http.StatusOK, status)
	msgs := body["data"].([]any)
	last := msgs[len(msgs)-1].(map[string]any)
	assert.Equal(t, "Item successfully handed over. This chat is now closed.", last["text"])
	assert.Equal(t, true, last["is_system"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.do(t, http.MethodGet, "/api/reports", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodPost, "/api/auth/code", "", map[string]string{"email": "someone@gmail.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, true, body["error"])
}

func TestDashboardAndErrors(t *testing.T) {
	s := newTestServer(t)
	owner, ownerID := s.login(t, "priya@northfield.edu", "Priya")
	stranger, _ := s.login(t, "sam@northfield.edu", "Sam")

	status, body := s.do(t, http.MethodGet, "/api/reports?type=LOST", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["data"])

	status, _ = s.do(t, http.MethodGet, "/api/reports?type=STOLEN", owner, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodPost, "/api/reports", owner, map[string]any{"type": "LOST", "item_name": ""})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = s.do(t, http.MethodPost, "/api/reports", owner, map[string]any{"type": "LOST", "item_name": "Calculator"})
	require.Equal(t, http.StatusCreated, status, body)
	reportID := body["report"].(map[string]any)["id"].(string)

	status, body = s.do(t, http.MethodPost, "/api/reports/"+reportID+"/chat", owner, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = s.do(t, http.MethodPost, "/api/reports/"+reportID+"/chat", stranger, nil)
	require.Equal(t, http.StatusCreated, status, body)
	matchID := body["id"].(string)
	assert.Equal(t, models.PendingFinderReport, body["found_report_id"])

	status, body = s.do(t, http.MethodPost, "/api/reports/"+reportID+"/chat", stranger, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, matchID, body["id"])

	status, body = s.do(t, http.MethodGet, "/api/me/matches", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = s.do(t, http.MethodGet, "/api/me/reports", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	// The stranger holds the finder side through a placeholder, so there is
	// no question to answer yet.
	status, _ = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/verify", stranger, map[string]string{"answer": "x"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/verify", owner, map[string]string{"answer": "x"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodGet, "/api/matches/does-not-exist", owner, nil)
	assert.Equal(t, http.StatusNotFound, status)

	mute := true
	status, body = s.do(t, http.MethodPatch, "/api/me", owner, map[string]any{"mute_notifications": mute})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["mute_notifications"])
	assert.Equal(t, ownerID, body["id"])
}

func TestAdminClose(t *testing.T) {
	s := newTestServer(t)
	owner, ownerID := s.login(t, "priya@northfield.edu", "Priya")

	status, body := s.do(t, http.MethodPost, "/api/reports", owner, map[string]any{"type": "LOST", "item_name": "Scarf"})
	require.Equal(t, http.StatusCreated, status, body)
	path := "/api/admin/reports/" + body["report"].(map[string]any)["id"].(string) + "/close"

	status, _ = s.do(t, http.MethodPut, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPut, path, owner, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPut, path, "", nil, "X-Admin-Token", "admin-secret")
	assert.Equal(t, http.StatusBadRequest, status, "campus header required without a token")

	status, body = s.do(t, http.MethodPut, path, "", nil, "X-Admin-Token", "admin-secret", "X-Campus-ID", "northfield")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "CLOSED", body["status"])

	// Promoted users pass with their own token.
	_, err := s.store.UpdateUser(context.Background(), ownerID, func(u *models.User) error {
		u.Role = models.RoleAdmin
		return nil
	})
	require.NoError(t, err)
	status, body = s.do(t, http.MethodPut, path, owner, nil)
	require.Equal(t, http.StatusOK, status, body)
}
