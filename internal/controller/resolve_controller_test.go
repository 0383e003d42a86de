package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"service-resolver-be/internal/dto"
	"service-resolver-be/internal/pkg/serverutils"
	"service-resolver-be/pkg/resolve/executor"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolverService struct {
	response *dto.ResolveResponse
	err      error
}

func (s *stubResolverService) Resolve(_ context.Context, _ *dto.ResolveRequest) (*dto.ResolveResponse, error) {
	return s.response, s.err
}

func newTestApp(svc *stubResolverService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewResolveController(svc).RegisterRoutes(app.Group("/api"))
	return app
}

func postResolve(t *testing.T, app *fiber.App, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/resolve/v1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestResolveEndpointSuccess(t *testing.T) {
	name := "残疾证办理"
	svc := &stubResolverService{response: &dto.ResolveResponse{
		Resolved:    true,
		ServiceName: &name,
		Options:     []string{},
		DurationMs:  42,
	}}

	status, raw := postResolve(t, newTestApp(svc), `{"session_id":"sess-1","query_text":"办残疾证"}`)
	require.Equal(t, fiber.StatusOK, status)

	var body dto.ResolveResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.True(t, body.Resolved)
	require.NotNil(t, body.ServiceName)
	assert.Equal(t, "残疾证办理", *body.ServiceName)
	assert.Nil(t, body.FollowUpPrompt)
	assert.Empty(t, body.Options)
}

func TestResolveEndpointValidation(t *testing.T) {
	app := newTestApp(&stubResolverService{})

	for _, body := range []string{
		`{"session_id":"","query_text":"x"}`,
		`{"session_id":"sess","query_text":""}`,
		`not json`,
	} {
		status, raw := postResolve(t, app, body)
		assert.Equal(t, fiber.StatusBadRequest, status, "body: %s", body)

		var envelope serverutils.Response
		require.NoError(t, json.Unmarshal(raw, &envelope))
		assert.False(t, envelope.Success)
		assert.Equal(t, fiber.StatusBadRequest, envelope.Code)
	}
}

func TestResolveEndpointUpstreamFailureMapsTo502(t *testing.T) {
	svc := &stubResolverService{err: executor.ErrIndexUnavailable}

	status, raw := postResolve(t, newTestApp(svc), `{"session_id":"sess-1","query_text":"办证"}`)
	require.Equal(t, fiber.StatusBadGateway, status)

	var envelope serverutils.Response
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.False(t, envelope.Success)
}

func TestResolveEndpointTimeoutMapsTo504(t *testing.T) {
	svc := &stubResolverService{err: executor.ErrTimeout}

	status, _ := postResolve(t, newTestApp(svc), `{"session_id":"sess-1","query_text":"办证"}`)
	require.Equal(t, fiber.StatusGatewayTimeout, status)
}

func TestResolveEndpointInvalidInputMapsTo400(t *testing.T) {
	svc := &stubResolverService{err: executor.ErrInvalidInput}

	status, _ := postResolve(t, newTestApp(svc), `{"session_id":"sess-1","query_text":"办证"}`)
	require.Equal(t, fiber.StatusBadRequest, status)
}
