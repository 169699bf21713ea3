package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeze-org/nutriplan-web/internal/models"
)

type capturedRequest struct {
	method string
	uri    string
	header http.Header
	body   []byte
}

func mockBackend(t *testing.T, statusCode int, response string, captured *capturedRequest) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		if captured != nil {
			*captured = capturedRequest{method: r.Method, uri: r.URL.RequestURI(), header: r.Header.Clone(), body: body}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		io.WriteString(w, response)
	}))
	t.Cleanup(server.Close)
	return server
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestAuthorizationHeader(t *testing.T) {
	type testCase struct {
		name           string
		token          string
		expectedHeader string
	}
	testCases := []testCase{
		{name: "no_token", token: "", expectedHeader: ""},
		{name: "with_token", token: "abc.def.ghi", expectedHeader: "Bearer abc.def.ghi"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var captured capturedRequest
			server := mockBackend(t, http.StatusOK, `{}`, &captured)
			client := New(server.URL+"/api/v1", NewMemoryTokenStore(tc.token), WithLogger(discardLogger()))

			_, err := client.Request(context.Background(), http.MethodGet, "/users/profile", nil)
			require.NoError(t, err)

			_, present := captured.header["Authorization"]
			assert.Equal(t, tc.token != "", present)
			assert.Equal(t, tc.expectedHeader, captured.header.Get("Authorization"))
			assert.Equal(t, "application/json", captured.header.Get("Content-Type"))
			assert.Equal(t, "application/json", captured.header.Get("Accept"))
			assert.Equal(t, "/api/v1/users/profile", captured.uri)
		})
	}
}

func TestRequestBody(t *testing.T) {
	type testCase struct {
		name         string
		method       string
		body         any
		expectedBody string
	}
	testCases := []testCase{
		{name: "post_serialized", method: http.MethodPost, body: map[string]string{"email": "a@b.c"}, expectedBody: `{"email":"a@b.c"}`},
		{name: "put_serialized", method: http.MethodPut, body: map[string]int{"age": 30}, expectedBody: `{"age":30}`},
		{name: "get_ignores_body", method: http.MethodGet, body: map[string]string{"x": "y"}, expectedBody: ""},
		{name: "delete_ignores_body", method: http.MethodDelete, body: map[string]string{"x": "y"}, expectedBody: ""},
		{name: "post_without_body", method: http.MethodPost, body: nil, expectedBody: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var captured capturedRequest
			server := mockBackend(t, http.StatusOK, `{"ok":true}`, &captured)
			client := New(server.URL, nil, WithLogger(discardLogger()))

			raw, err := client.Request(context.Background(), tc.method, "/x", tc.body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(raw))
			assert.Equal(t, tc.method, captured.method)
			assert.Equal(t, tc.expectedBody, string(captured.body))
		})
	}
}

func TestRequestErrors(t *testing.T) {
	type testCase struct {
		name            string
		statusCode      int
		response        string
		expectedKind    Kind
		expectedStatus  int
		expectedMessage string
	}
	testCases := []testCase{
		{
			name:            "detail",
			statusCode:      http.StatusUnauthorized,
			response:        `{"detail":"Invalid credentials"}`,
			expectedKind:    KindHTTP,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid credentials",
		},
		{
			name:            "message_fallback",
			statusCode:      http.StatusBadRequest,
			response:        `{"message":"Email already registered"}`,
			expectedKind:    KindHTTP,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Email already registered",
		},
		{
			name:            "detail_wins_over_message",
			statusCode:      http.StatusBadRequest,
			response:        `{"detail":"first","message":"second"}`,
			expectedKind:    KindHTTP,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "first",
		},
		{
			name:            "validation_detail_list",
			statusCode:      http.StatusUnprocessableEntity,
			response:        `{"detail":[{"loc":["query","start_date"],"msg":"field required"}]}`,
			expectedKind:    KindHTTP,
			expectedStatus:  http.StatusUnprocessableEntity,
			expectedMessage: "field required",
		},
		{
			name:            "empty_body",
			statusCode:      http.StatusInternalServerError,
			response:        "",
			expectedKind:    KindHTTP,
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Request failed with status 500",
		},
		{
			name:            "non_json_error_body",
			statusCode:      http.StatusBadGateway,
			response:        "<html>bad gateway</html>",
			expectedKind:    KindHTTP,
			expectedStatus:  http.StatusBadGateway,
			expectedMessage: "Request failed with status 502",
		},
		{
			name:            "json_without_detail",
			statusCode:      http.StatusNotFound,
			response:        `{"error":"nope"}`,
			expectedKind:    KindHTTP,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Request failed with status 404",
		},
		{
			name:           "invalid_json_success",
			statusCode:     http.StatusOK,
			response:       "not json",
			expectedKind:   KindDecode,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := mockBackend(t, tc.statusCode, tc.response, nil)
			client := New(server.URL, nil, WithLogger(discardLogger()))

			raw, err := client.Request(context.Background(), http.MethodGet, "/x", nil)
			assert.Nil(t, raw)
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tc.expectedKind, reqErr.Kind)
			assert.Equal(t, tc.expectedStatus, reqErr.Status)
			if tc.expectedMessage != "" {
				assert.Equal(t, tc.expectedMessage, err.Error())
			}
		})
	}
}

func TestRequestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(url, nil, WithLogger(discardLogger()))
	_, err := client.Request(context.Background(), http.MethodGet, "/x", nil)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, KindTransport, reqErr.Kind)
	assert.Equal(t, 0, reqErr.Status)
	assert.NotEmpty(t, reqErr.Message)
	assert.False(t, IsUnauthorized(err))
}

func TestRequestUnsupportedMethod(t *testing.T) {
	client := New("http://127.0.0.1:1", nil, WithLogger(discardLogger()))
	_, err := client.Request(context.Background(), http.MethodPatch, "/x", nil)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, KindInvalid, reqErr.Kind)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestRequestEmptySuccessBody(t *testing.T) {
	server := mockBackend(t, http.StatusNoContent, "", nil)
	client := New(server.URL, nil, WithLogger(discardLogger()))

	raw, err := client.Request(context.Background(), http.MethodDelete, "/x", nil)
	assert.NoError(t, err)
	assert.Nil(t, raw)

	err = client.Do(context.Background(), http.MethodGet, "/x", nil, &models.Profile{})
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, KindDecode, reqErr.Kind)
}

func TestFailuresAreLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	server := mockBackend(t, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`, nil)
	client := New(server.URL, nil, WithLogger(logger))

	_, err := client.GetProfile(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, 1, strings.Count(buf.String(), "api_request_error"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/users/profile", entry["endpoint"])
	assert.Equal(t, "http", entry["kind"])
	assert.Equal(t, float64(401), entry["status"])
}

func TestDoValidatesShape(t *testing.T) {
	type testCase struct {
		name           string
		response       string
		hasError       bool
		invalidPayload bool
	}
	testCases := []testCase{
		{name: "valid_plan_list", response: `[{"id":"p1","user_id":"u1","start_date":"2024-01-15T00:00:00","end_date":"2024-01-21T00:00:00","meals":[]}]`, hasError: false},
		{name: "missing_dates", response: `[{"id":"p1","meals":[]}]`, hasError: true, invalidPayload: true},
		{name: "wrong_type", response: `{"id":"p1"}`, hasError: true},
		{name: "empty_list", response: `[]`, hasError: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := mockBackend(t, http.StatusOK, tc.response, nil)
			client := New(server.URL, nil, WithLogger(discardLogger()))

			_, err := client.GetMealPlans(context.Background(), zeroTime, zeroTime)
			assert.Equal(t, tc.hasError, err != nil)
			if tc.hasError {
				var reqErr *RequestError
				require.True(t, errors.As(err, &reqErr))
				assert.Equal(t, KindDecode, reqErr.Kind)
				assert.Equal(t, tc.invalidPayload, errors.Is(err, models.ErrInvalidPayload))
			}
		})
	}
}

func TestWithTokensSharesTransport(t *testing.T) {
	var captured capturedRequest
	server := mockBackend(t, http.StatusOK, `{}`, &captured)
	base := New(server.URL, NewMemoryTokenStore("first"), WithLogger(discardLogger()))
	other := base.WithTokens(NewMemoryTokenStore("second"))

	_, err := other.Request(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", captured.header.Get("Authorization"))

	_, err = base.Request(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer first", captured.header.Get("Authorization"))
}
