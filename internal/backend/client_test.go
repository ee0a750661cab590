package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/session/start", r.URL.Path)

		var req StartSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Sia", req.ChildName)
		require.Equal(t, "2024-03-15", req.DOB)
		require.NotNil(t, req.GestationalWeeks)
		require.Equal(t, 34, *req.GestationalWeeks)

		json.NewEncoder(w).Encode(StartSessionResponse{
			SessionID:              "sess-1",
			ChildName:              req.ChildName,
			ChronologicalAgeMonths: 17.2,
			UsingCorrectedAge:      true,
			AgeBand:                "16-18m",
			Locale:                 "en",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 10*time.Second, nil)
	weeks := 34
	resp, err := client.StartSession(context.Background(), StartSessionRequest{
		ChildName:        "Sia",
		DOB:              "2024-03-15",
		GestationalWeeks: &weeks,
		Locale:           "en",
	})
	require.NoError(t, err)
	require.Equal(t, "sess-1", resp.SessionID)
	require.True(t, resp.UsingCorrectedAge)
}

func TestQueryAssistantAccumulatesStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/assistant/query", r.URL.Path)

		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "sess-1", req.SessionID)
		require.Equal(t, "yes", req.AnswerCode)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"Does your child \"}\n")
		fmt.Fprint(w, "data: {\"content\":\"stack two blocks?\",\"is_final\":false}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 10*time.Second, nil)
	msg, err := client.QueryAssistant(context.Background(), QueryRequest{
		SessionID:          "sess-1",
		UserMessage:        "Yes",
		AnswerCode:         "yes",
		ConfidenceOverride: "sure",
	})
	require.NoError(t, err)
	require.Equal(t, "Does your child stack two blocks?", msg.Content)
	require.False(t, msg.IsFinal)
}

func TestQueryAssistantServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 10*time.Second, nil)
	_, err := client.QueryAssistant(context.Background(), QueryRequest{SessionID: "sess-1"})
	require.Error(t, err)
}

func TestCloseSessionAndResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/close":
			json.NewEncoder(w).Encode(CloseSessionResponse{
				Message:         "closed",
				TotalQuestions:  12,
				DomainsAssessed: []string{"gross_motor", "fine_motor"},
			})
		case "/results":
			require.Equal(t, "sess-1", r.URL.Query().Get("session_id"))
			json.NewEncoder(w).Encode(map[string]any{
				"age_months":          17.2,
				"using_corrected_age": true,
				"overall_status":      "On track",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 10*time.Second, nil)
	closeResp, err := client.CloseSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 12, closeResp.TotalQuestions)

	results, err := client.FetchResults(context.Background(), "sess-1")
	require.NoError(t, err)
	require.True(t, results.UsingCorrectedAge())
	require.Equal(t, 17.2, results.AgeMonths())
	require.Equal(t, "On track", results.OverallStatus())
}

func TestResultsDefaults(t *testing.T) {
	results := Results{}
	require.False(t, results.UsingCorrectedAge())
	require.Equal(t, 0.0, results.AgeMonths())
	require.Equal(t, "On track", results.OverallStatus())
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 10*time.Second, nil)
	require.True(t, client.HealthCheck(context.Background()))

	srv.Close()
	require.False(t, client.HealthCheck(context.Background()))
}
