package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kolink-server/internal/handler"
	"kolink-server/internal/middleware"
	"kolink-server/internal/mocks"
	"kolink-server/internal/models"
	"kolink-server/internal/service"
)

const testJWTSecret = "test-secret"

type handlerMocks struct {
	scheduler  *mocks.Scheduler
	ledger     *mocks.CreditLedger
	generation *mocks.GenerationService
	history    *mocks.RunHistoryRepository
}

func newTestServer(t *testing.T) (*echo.Echo, *handlerMocks) {
	t.Helper()
	m := &handlerMocks{
		scheduler:  new(mocks.Scheduler),
		ledger:     new(mocks.CreditLedger),
		generation: new(mocks.GenerationService),
		history:    new(mocks.RunHistoryRepository),
	}
	h := handler.NewAPIHandler(m.scheduler, m.ledger, m.generation, m.history, zap.NewNop(), testJWTSecret)

	e := echo.New()
	e.Validator = handler.NewValidator()
	h.RegisterRoutes(e)
	return e, m
}

func doRequest(t *testing.T, e *echo.Echo, userID uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	token, err := middleware.GenerateTestJWT(userID, testJWTSecret, time.Minute)
	require.NoError(t, err)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAPIHandler_Auth(t *testing.T) {
	e, _ := newTestServer(t)

	t.Run("Missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/autopilot", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/autopilot", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAPIHandler_ActivateAutoPilot(t *testing.T) {
	userID := uuid.New()

	t.Run("Valid activation returns config with next run", func(t *testing.T) {
		e, m := newTestServer(t)

		next := time.Now().UTC().Add(24 * time.Hour)
		cfg := models.DefaultAutoPilotConfig(userID)
		cfg.Enabled = true
		cfg.Frequency = models.FrequencyDaily
		cfg.Topics = []string{"маркетинг"}
		cfg.NextRunAt = &next

		m.scheduler.On("Activate", mock.Anything, userID, mock.MatchedBy(func(u service.ConfigUpdate) bool {
			return u.Frequency == models.FrequencyDaily && len(u.Topics) == 1 && u.PostCount == 2
		})).Return(cfg, nil).Once()

		body := `{"frequency":"daily","topics":["маркетинг"],"tone":"professional","post_count":2}`
		rec := doRequest(t, e, userID, http.MethodPost, "/api/autopilot/activate", body)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp handler.AutoPilotConfigResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Enabled)
		require.NotNil(t, resp.NextRunAt)
	})

	t.Run("Request validation rejects empty topics before the service", func(t *testing.T) {
		e, m := newTestServer(t)

		body := `{"frequency":"daily","topics":[],"tone":"professional","post_count":2}`
		rec := doRequest(t, e, userID, http.MethodPost, "/api/autopilot/activate", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.scheduler.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown frequency rejected", func(t *testing.T) {
		e, _ := newTestServer(t)

		body := `{"frequency":"hourly","topics":["x"],"tone":"professional","post_count":1}`
		rec := doRequest(t, e, userID, http.MethodPost, "/api/autopilot/activate", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Service config error maps to 400", func(t *testing.T) {
		e, m := newTestServer(t)

		m.scheduler.On("Activate", mock.Anything, userID, mock.Anything).
			Return(nil, models.ErrInvalidConfig).Once()

		body := `{"frequency":"daily","topics":["x"],"tone":"professional","post_count":1}`
		rec := doRequest(t, e, userID, http.MethodPost, "/api/autopilot/activate", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPIHandler_ForceRun(t *testing.T) {
	userID := uuid.New()

	t.Run("Successful manual run returns the record", func(t *testing.T) {
		e, m := newTestServer(t)

		run := &models.RunRecord{
			ID:              uuid.New(),
			UserID:          userID,
			Trigger:         models.RunTriggerManual,
			Outcome:         models.RunOutcomeSuccess,
			DraftIDs:        []uuid.UUID{uuid.New()},
			CreditsReserved: 1,
		}
		m.scheduler.On("ForceRun", mock.Anything, userID).Return(run, nil).Once()

		rec := doRequest(t, e, userID, http.MethodPost, "/api/autopilot/run", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp handler.RunRecordResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "manual", resp.Trigger)
		assert.Equal(t, "success", resp.Outcome)
	})

	t.Run("Run in flight maps to 409", func(t *testing.T) {
		e, m := newTestServer(t)

		m.scheduler.On("ForceRun", mock.Anything, userID).
			Return(nil, models.ErrRunInProgress).Once()

		rec := doRequest(t, e, userID, http.MethodPost, "/api/autopilot/run", "")

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Insufficient credits map to 402", func(t *testing.T) {
		e, m := newTestServer(t)

		failedRun := &models.RunRecord{Outcome: models.RunOutcomeFailed}
		m.scheduler.On("ForceRun", mock.Anything, userID).
			Return(failedRun, models.ErrInsufficientCredits).Once()

		rec := doRequest(t, e, userID, http.MethodPost, "/api/autopilot/run", "")

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	})

	t.Run("Frozen account maps to 403", func(t *testing.T) {
		e, m := newTestServer(t)

		m.scheduler.On("ForceRun", mock.Anything, userID).
			Return(nil, models.ErrAccountFrozen).Once()

		rec := doRequest(t, e, userID, http.MethodPost, "/api/autopilot/run", "")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAPIHandler_ListRuns(t *testing.T) {
	userID := uuid.New()

	t.Run("Returns a page with cursor", func(t *testing.T) {
		e, m := newTestServer(t)

		runs := []*models.RunRecord{
			{ID: uuid.New(), UserID: userID, Outcome: models.RunOutcomeSuccess},
			{ID: uuid.New(), UserID: userID, Outcome: models.RunOutcomePartial},
		}
		m.history.On("List", mock.Anything, userID, "", 20).Return(runs, "next-cursor", nil).Once()

		rec := doRequest(t, e, userID, http.MethodGet, "/api/autopilot/runs", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp handler.PaginatedResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "next-cursor", resp.NextCursor)
	})

	t.Run("Custom limit passed through", func(t *testing.T) {
		e, m := newTestServer(t)

		m.history.On("List", mock.Anything, userID, "abc", 5).
			Return([]*models.RunRecord{}, "", nil).Once()

		rec := doRequest(t, e, userID, http.MethodGet, "/api/autopilot/runs?limit=5&cursor=abc", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		m.history.AssertExpectations(t)
	})
}

func TestAPIHandler_Credits(t *testing.T) {
	userID := uuid.New()
	e, m := newTestServer(t)

	m.ledger.On("Balance", mock.Anything, userID).
		Return(&models.CreditBalance{UserID: userID, Current: 7, MaxCredits: 30, Frozen: true}, nil).Once()

	rec := doRequest(t, e, userID, http.MethodGet, "/api/credits", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Current)
	assert.Equal(t, 30, resp.MaxCredits)
	assert.True(t, resp.Frozen)
}

func TestAPIHandler_GenerateDraft(t *testing.T) {
	userID := uuid.New()

	t.Run("Generates a draft with defaults for omitted fields", func(t *testing.T) {
		e, m := newTestServer(t)

		draft := &models.Draft{ID: uuid.New(), UserID: userID, Content: "пост"}
		m.generation.On("Generate", mock.Anything, userID, mock.MatchedBy(func(p models.GenerationParams) bool {
			assert.Equal(t, "личный бренд", p.Topic)
			// Пропущенные enum-поля трактуются как random.
			assert.Equal(t, models.RandomSentinel, string(p.Tone))
			return true
		})).Return(draft, nil).Once()

		body := `{"topic":"личный бренд"}`
		rec := doRequest(t, e, userID, http.MethodPost, "/api/generate", body)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Missing topic rejected", func(t *testing.T) {
		e, m := newTestServer(t)

		rec := doRequest(t, e, userID, http.MethodPost, "/api/generate", `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.generation.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Hashtag count above five rejected", func(t *testing.T) {
		e, m := newTestServer(t)

		body := `{"topic":"тема", "hashtag_count": 6}`
		rec := doRequest(t, e, userID, http.MethodPost, "/api/generate", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.generation.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Generation failure maps to 502", func(t *testing.T) {
		e, m := newTestServer(t)

		m.generation.On("Generate", mock.Anything, userID, mock.Anything).
			Return(nil, models.ErrGenerationFailed).Once()

		rec := doRequest(t, e, userID, http.MethodPost, "/api/generate", `{"topic":"тема"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestAPIHandler_LatestGeneration(t *testing.T) {
	userID := uuid.New()

	t.Run("Returns the latest draft", func(t *testing.T) {
		e, m := newTestServer(t)

		draft := &models.Draft{ID: uuid.New(), UserID: userID, Content: "пост"}
		m.generation.On("LatestSince", mock.Anything, userID, mock.Anything).Return(draft, nil).Once()

		rec := doRequest(t, e, userID, http.MethodGet, "/api/generation/latest", "")

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Nothing to recover maps to 404", func(t *testing.T) {
		e, m := newTestServer(t)

		m.generation.On("LatestSince", mock.Anything, userID, mock.Anything).
			Return(nil, models.ErrNotFound).Once()

		rec := doRequest(t, e, userID, http.MethodGet, "/api/generation/latest", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Invalid since parameter rejected", func(t *testing.T) {
		e, _ := newTestServer(t)

		rec := doRequest(t, e, userID, http.MethodGet, "/api/generation/latest?since=yesterday", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPIHandler_GrantCredits(t *testing.T) {
	userID := uuid.New()

	t.Run("Grant refills the balance and returns it", func(t *testing.T) {
		e, m := newTestServer(t)

		m.ledger.On("Grant", mock.Anything, userID, 30, 30).Return(nil).Once()
		m.ledger.On("Balance", mock.Anything, userID).
			Return(&models.CreditBalance{UserID: userID, Current: 30, MaxCredits: 30}, nil).Once()

		body := `{"amount": 30, "max_credits": 30}`
		rec := doRequest(t, e, userID, http.MethodPost, "/api/credits/grant", body)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp handler.BalanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 30, resp.Current)
		m.ledger.AssertExpectations(t)
	})

	t.Run("Non-positive amount rejected before the ledger", func(t *testing.T) {
		e, m := newTestServer(t)

		body := `{"amount": 0, "max_credits": 30}`
		rec := doRequest(t, e, userID, http.MethodPost, "/api/credits/grant", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.ledger.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAPIHandler_SetFrozen(t *testing.T) {
	userID := uuid.New()

	t.Run("Freeze toggles the flag", func(t *testing.T) {
		e, m := newTestServer(t)

		m.ledger.On("SetFrozen", mock.Anything, userID, true).Return(nil).Once()
		m.ledger.On("Balance", mock.Anything, userID).
			Return(&models.CreditBalance{UserID: userID, Current: 5, MaxCredits: 30, Frozen: true}, nil).Once()

		rec := doRequest(t, e, userID, http.MethodPost, "/api/credits/frozen", `{"frozen": true}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp handler.BalanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Frozen)
	})

	t.Run("Missing frozen field rejected", func(t *testing.T) {
		e, m := newTestServer(t)

		rec := doRequest(t, e, userID, http.MethodPost, "/api/credits/frozen", `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.ledger.AssertNotCalled(t, "SetFrozen", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown user maps to 404", func(t *testing.T) {
		e, m := newTestServer(t)

		m.ledger.On("SetFrozen", mock.Anything, userID, false).Return(models.ErrNotFound).Once()

		rec := doRequest(t, e, userID, http.MethodPost, "/api/credits/frozen", `{"frozen": false}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
