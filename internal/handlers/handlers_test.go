package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/captcha-solver/internal/logging"
	"github.com/example/captcha-solver/internal/solver"
	"github.com/example/captcha-solver/internal/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type solveResponse struct {
	Status    int            `json:"status"`
	RequestID string         `json:"request_id"`
	Error     string         `json:"error"`
	Result    *solver.Result `json:"result"`
}

type stubService struct {
	calls  int
	result *solver.Result
	err    error
}

func (s *stubService) Solve(ctx context.Context, target string, options []string) (string, *solver.Result, error) {
	s.calls++
	return "req-1", s.result, s.err
}

func (s *stubService) GetMetricsSummary() *usecase.MetricsSummary {
	return &usecase.MetricsSummary{TotalRequests: int64(s.calls)}
}

func setupRouter(svc SolveService, maxBodyBytes int64) *gin.Engine {
	router := gin.New()
	router.Use(logging.GinMiddleware(zap.NewNop()))
	RegisterRoutes(router, svc, maxBodyBytes)
	return router
}

func encodeSolid(t *testing.T, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postSolve(t *testing.T, router *gin.Engine, body string) (*httptest.ResponseRecorder, solveResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/solve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var decoded solveResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &decoded), "body: %s", resp.Body.String())
	return resp, decoded
}

func TestSolveEndToEnd(t *testing.T) {
	uc := usecase.NewSolveUseCase(nil, zap.NewNop(), 8, time.Minute)
	router := setupRouter(uc, 0)

	payload, err := json.Marshal(gin.H{
		"target": encodeSolid(t, color.RGBA{R: 255, A: 255}),
		"options": []string{
			encodeSolid(t, color.RGBA{B: 255, A: 255}),
			encodeSolid(t, color.RGBA{R: 255, A: 255}),
			encodeSolid(t, color.RGBA{G: 255, A: 255}),
		},
	})
	require.NoError(t, err)

	resp, body := postSolve(t, router, string(payload))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 1, body.Status)
	assert.NotEmpty(t, body.RequestID)
	require.NotNil(t, body.Result)
	assert.Equal(t, 2, body.Result.Answer)
	assert.Len(t, body.Result.Scores, 3)
	assert.Equal(t, body.Result.Scores[1], body.Result.Confidence)
}

func TestSolveRejectsMissingFields(t *testing.T) {
	tests := map[string]string{
		"empty object":    `{}`,
		"missing options": `{"target":"abc"}`,
		"missing target":  `{"options":["abc"]}`,
		"null options":    `{"target":"abc","options":null}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			svc := &stubService{}
			resp, decoded := postSolve(t, setupRouter(svc, 0), body)

			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, 0, decoded.Status)
			assert.Equal(t, "Missing required fields: target, options", decoded.Error)
			assert.Zero(t, svc.calls)
		})
	}
}

func TestSolveRejectsMalformedJSON(t *testing.T) {
	resp, decoded := postSolve(t, setupRouter(&stubService{}, 0), `{"target":`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, 0, decoded.Status)
}

func TestSolveRejectsLargeBody(t *testing.T) {
	svc := &stubService{}
	body := `{"target":"` + strings.Repeat("a", 2048) + `","options":["a"]}`

	resp, decoded := postSolve(t, setupRouter(svc, 1024), body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Equal(t, 0, decoded.Status)
	assert.Zero(t, svc.calls)
}

func TestSolveReportsDecodeFailure(t *testing.T) {
	uc := usecase.NewSolveUseCase(nil, zap.NewNop(), 8, time.Minute)
	resp, decoded := postSolve(t, setupRouter(uc, 0), `{"target":"bm90IGFuIGltYWdl","options":["bm90IGFuIGltYWdl"]}`)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, 0, decoded.Status)
	assert.Contains(t, decoded.Error, "target")
	assert.NotContains(t, decoded.Error, "request_id=")
	assert.Nil(t, decoded.Result)
}

func TestSolveEmptyOptionsIsBadRequest(t *testing.T) {
	uc := usecase.NewSolveUseCase(nil, zap.NewNop(), 8, time.Minute)
	resp, decoded := postSolve(t, setupRouter(uc, 0), `{"target":"abc","options":[]}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, solver.ErrNoCandidates.Error(), decoded.Error)
}

func TestHealthAndInfo(t *testing.T) {
	router := setupRouter(&stubService{}, 0)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))

	var health map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "SimpleCaptchaSolver v2.0", health["solver"])

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var info struct {
		Service   string            `json:"service"`
		Version   string            `json:"version"`
		Status    string            `json:"status"`
		Endpoints map[string]string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &info))
	assert.Equal(t, "online", info.Status)
	assert.Equal(t, "2.0", info.Version)
	assert.Contains(t, info.Endpoints, "/solve")
}

func TestMetricsEndpoint(t *testing.T) {
	svc := &stubService{result: &solver.Result{Answer: 1, Confidence: 1, Scores: []float64{1}}}
	router := setupRouter(svc, 0)
	postSolve(t, router, `{"target":"abc","options":["abc"]}`)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var summary usecase.MetricsSummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.TotalRequests)
}
