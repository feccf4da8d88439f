package certification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/caregiver-api/pkg/logger"

	"github.com/jwalitptl/caregiver-api/internal/model"
	"github.com/jwalitptl/caregiver-api/internal/repository/memory"
	certservice "github.com/jwalitptl/caregiver-api/internal/service/certification"
	"github.com/jwalitptl/caregiver-api/internal/service/reminder"
)

func newTestRouter(t *testing.T, providerID uuid.UUID) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	svc := certservice.NewService(
		&memory.CertificationRepo{Store: store},
		&memory.TypeRepo{Store: store},
		&memory.EventRepo{Store: store},
		reminder.NewScheduler(&memory.RuleRepo{Store: store}, &memory.EventRepo{Store: store}, log),
		reminder.NewRuleService(&memory.RuleRepo{Store: store}),
		log,
	)

	engine := gin.New()
	group := engine.Group("/api/v1")
	group.Use(func(c *gin.Context) {
		c.Set("providerID", providerID.String())
	})
	NewHandler(svc).RegisterRoutes(group)
	return engine, store
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestCreateCertificationEndpoint(t *testing.T) {
	providerID := uuid.New()
	engine, _ := newTestRouter(t, providerID)

	expiration := time.Now().AddDate(1, 0, 0).Format(time.RFC3339)
	rec := doJSON(t, engine, http.MethodPost, "/api/v1/certifications", gin.H{
		"custom_name":   "CPR",
		"expiration_at": expiration,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Certification model.Certification `json:"certification"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, providerID, resp.Data.Certification.ProviderID)
	assert.Equal(t, model.CertificationStatusActive, resp.Data.Certification.Status)
}

func TestCreateCertificationEndpointRejectsMissingName(t *testing.T) {
	engine, _ := newTestRouter(t, uuid.New())

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/certifications", gin.H{
		"notes": "no name source",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCertificationEndpointIncludesEvents(t *testing.T) {
	providerID := uuid.New()
	engine, _ := newTestRouter(t, providerID)

	expiration := time.Now().AddDate(0, 0, 20).Format(time.RFC3339)
	rec := doJSON(t, engine, http.MethodPost, "/api/v1/certifications", gin.H{
		"custom_name":   "First Aid",
		"expiration_at": expiration,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			Certification model.Certification `json:"certification"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, engine, http.MethodGet,
		fmt.Sprintf("/api/v1/certifications/%s", created.Data.Certification.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Data struct {
			Certification  model.Certification    `json:"certification"`
			ReminderEvents []*model.ReminderEvent `json:"reminder_events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.Data.Certification.ID, got.Data.Certification.ID)
	// Expiring in 20 days: only the 7 and 1 day defaults are ahead.
	assert.Len(t, got.Data.ReminderEvents, 2)
}

func TestGetCertificationEndpointNotFound(t *testing.T) {
	engine, _ := newTestRouter(t, uuid.New())

	rec := doJSON(t, engine, http.MethodGet,
		fmt.Sprintf("/api/v1/certifications/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/certifications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCertificationsEndpoint(t *testing.T) {
	providerID := uuid.New()
	engine, _ := newTestRouter(t, providerID)

	for _, name := range []string{"CPR", "First Aid"} {
		rec := doJSON(t, engine, http.MethodPost, "/api/v1/certifications", gin.H{
			"custom_name": name,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/certifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Certifications []*model.Certification      `json:"certifications"`
			Summary        *model.CertificationSummary `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Certifications, 2)
	assert.Equal(t, 2, resp.Data.Summary.Total)
	assert.Equal(t, 2, resp.Data.Summary.Active)
}

func TestDeleteCertificationEndpoint(t *testing.T) {
	providerID := uuid.New()
	engine, _ := newTestRouter(t, providerID)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/certifications", gin.H{
		"custom_name": "CPR",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			Certification model.Certification `json:"certification"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	certPath := fmt.Sprintf("/api/v1/certifications/%s", created.Data.Certification.ID)
	rec = doJSON(t, engine, http.MethodDelete, certPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, certPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
