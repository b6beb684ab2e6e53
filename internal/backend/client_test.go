package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/budgetquery/internal/testutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/BudgetQuery/", Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return c
}

func TestNew_ValidatesBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr string
	}{
		{name: "http", baseURL: "http://localhost:5000"},
		{name: "https with base path", baseURL: "https://example.com/BudgetQuery/"},
		{name: "missing scheme", baseURL: "localhost:5000", wantErr: "scheme"},
		{name: "ftp", baseURL: "ftp://example.com", wantErr: "scheme"},
		{name: "no host", baseURL: "http://", wantErr: "missing host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{BaseURL: tt.baseURL})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, c.BaseURL())
		})
	}
}

func TestClient_Interpret(t *testing.T) {
	var got InterpretRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/BudgetQuery"+PathInterpret, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":         StatusClarificationNeeded,
			"question":       "Which period?",
			"original_query": "how much did we spend",
		})
	})

	res, err := c.Interpret(context.Background(), InterpretRequest{
		Query:         "how much did we spend",
		Clarification: "last quarter",
	})
	require.NoError(t, err)

	assert.Equal(t, "how much did we spend", got.Query)
	assert.Equal(t, "last quarter", got.Clarification)
	assert.True(t, res.NeedsClarification())
	assert.False(t, res.CannotAnswer())
	assert.Equal(t, "Which period?", res.Question)
	assert.Equal(t, "how much did we spend", res.OriginalQuery)
}

func TestClient_Interpret_OmitsEmptyClarification(t *testing.T) {
	var raw map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"status":"ready","sql":"SELECT 1"}`))
	})

	res, err := c.Interpret(context.Background(), InterpretRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", res.SQL)
	assert.NotContains(t, raw, "clarification")
}

func TestClient_Execute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ExecuteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SELECT 1", req.SQL)
		_, _ = w.Write([]byte(`{"status":"success","sql":"SELECT 1 AS n","csv_data":"n\n1\n"}`))
	})

	res, err := c.Execute(context.Background(), ExecuteRequest{SQL: "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 AS n", res.SQL)
	assert.Equal(t, "n\n1\n", res.CSVData)
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "error message", status: http.StatusInternalServerError, body: `{"error":"relation does not exist"}`, wantMessage: "relation does not exist"},
		{name: "empty error", status: http.StatusBadRequest, body: `{"error":""}`, wantMessage: GenericErrorMessage},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantMessage: GenericErrorMessage},
		{name: "no body", status: http.StatusServiceUnavailable, body: ``, wantMessage: GenericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Execute(context.Background(), ExecuteRequest{SQL: "SELECT 1"})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, PathExecute, apiErr.Endpoint)
			assert.Equal(t, tt.wantMessage, Message(err))
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Interpret(context.Background(), InterpretRequest{Query: "q"})
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, Message(err), PathInterpret)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Observe(context.Background(), ObservationsRequest{Query: "q", CSVData: "a\n1\n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out after 50ms")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CallerDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Interpret(ctx, InterpretRequest{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "timed out after 0s")
	assert.Contains(t, err.Error(), PathInterpret)
}

func TestClient_SendFeedback(t *testing.T) {
	var got FeedbackRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/BudgetQuery"+PathFeedback, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	err := c.SendFeedback(context.Background(), FeedbackRequest{
		Query:        "total spend",
		ThumbsUp:     false,
		FeedbackText: "wrong year",
	})
	require.NoError(t, err)
	assert.Equal(t, FeedbackRequest{Query: "total spend", ThumbsUp: false, FeedbackText: "wrong year"}, got)
}

func TestClient_Download(t *testing.T) {
	var got DownloadRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write([]byte("PK\x03\x04payload"))
	})

	data, err := c.Download(context.Background(), DownloadRequest{
		TrueSQL:  "SELECT 1",
		SQL:      "SELECT 1",
		Filename: "Budget Query 05-Mar-24 0907.xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04payload"), data)
	assert.Equal(t, "SELECT 1", got.TrueSQL)
	assert.Equal(t, "Budget Query 05-Mar-24 0907.xlsx", got.Filename)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, GenericErrorMessage, Message(errors.New("  ")))
	assert.Equal(t, "bad sql", Message(&APIError{Endpoint: PathExecute, StatusCode: 500, Message: "bad sql"}))
}
