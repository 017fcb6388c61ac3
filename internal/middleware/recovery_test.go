package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantLogged bool
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "panic with string",
			handler: func(_ http.ResponseWriter, _ *http.Request) {
				panic("boom")
			},
			wantStatus: http.StatusInternalServerError,
			wantLogged: true,
		},
		{
			name: "panic with error",
			handler: func(_ http.ResponseWriter, _ *http.Request) {
				panic(assert.AnError)
			},
			wantStatus: http.StatusInternalServerError,
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			logger := observability.NewLoggerFromZap(zap.New(core))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/hello", nil)
			Recovery(logger)(tt.handler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantLogged {
				assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
				assert.JSONEq(t, util.InternalServerBody, rec.Body.String())
			} else {
				assert.Equal(t, 0, logs.Len())
			}
		})
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	t.Parallel()

	h := Recovery(observability.NopLogger())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
