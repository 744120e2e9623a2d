package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ddtft/internal/auth"
	"ddtft/internal/config"
	"ddtft/internal/domain"
	"ddtft/internal/handler"
	"ddtft/internal/middleware"
	"ddtft/internal/router"
	"ddtft/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(validator auth.TokenValidator) (*gin.Engine, *mocks.MockExtractionService) {
	svc := new(mocks.MockExtractionService)
	r := router.Setup(router.Options{
		Validator:   validator,
		CORSOrigins: []string{"http://localhost:3000"},
		Logger:      zerolog.Nop(),
		Swagger:     true,
	}, handler.NewExtractionHandler(svc, 0, zerolog.Nop()), handler.NewHealthHandler(nil))
	return r, svc
}

func TestSetup_Health(t *testing.T) {
	r, _ := setup(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSetup_Swagger(t *testing.T) {
	r, _ := setup(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/extractions")
}

func TestSetup_AuthRequired(t *testing.T) {
	j := auth.NewJWT(&config.JWTConfig{Secret: "s", Issuer: "ddtft"})
	r, svc := setup(j)
	svc.On("List", mock.Anything, 0, 20).Return([]domain.ExtractionRecord{}, 0, nil)

	t.Run("rejected_without_token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/extractions", http.NoBody)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepted_with_token", func(t *testing.T) {
		token, err := j.Issue("operator", "", time.Hour)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/extractions", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSetup_AnonymousWhenDisabled(t *testing.T) {
	r, svc := setup(nil)
	svc.On("List", mock.Anything, 0, 20).Return([]domain.ExtractionRecord{}, 0, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/extractions", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetup_ReextractRoute(t *testing.T) {
	r, svc := setup(nil)
	id := uuid.New()
	svc.On("Reextract", mock.Anything, id, middleware.AnonymousSubject).Return(nil, domain.ErrSourceNotArchived)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extractions/"+id.String()+"/reextract", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}
