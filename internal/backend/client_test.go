package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/runboard/internal/schedule"
	"github.com/yegors/runboard/pkg/logger"
)

func newTestClient(t *testing.T, router http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{BaseURL: srv.URL + "/api", Airport: "BNE", Airline: "QF", APIToken: "tok"}, logger.Nop())
	require.NoError(t, err)
	return client
}

func TestFetchFlightsSendsDayQuery(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/flights", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "2024-03-01", req.URL.Query().Get("date"))
		assert.Equal(t, "BNE", req.URL.Query().Get("airport"))
		assert.Equal(t, "QF", req.URL.Query().Get("airline"))
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
		w.Write([]byte(`{"ok":true,"flights":[{"id":"f1","flight_number":"QF1","time_local":"06:00"},{"id":"f2","flightNumber":"QF2"}]}`))
	})
	client := newTestClient(t, r)

	flights, err := client.FetchFlights(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.Len(t, flights, 2)
	assert.Equal(t, "06:00", flights[0].TimeLocal)
	assert.Equal(t, "QF2", flights[1].FlightNumber)
}

func TestFetchRunsAndStaff(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"ok":true,"runs":[{"id":"r1","label":"A","truck_id":null,"flights":[{"id":"fr1","flight_id":"f1","sequence_index":0,"planned_time":"06:00","status":"planned","flight":{"id":"f1"}}]}]}`))
	})
	r.Get("/api/staff/assignments", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"ok":true,"assignments":[{"flight_number":"QF1","time_local":"06:00","staff_id":"s1","staff_name":"Sam"}]}`))
	})
	client := newTestClient(t, r)

	runs, err := client.FetchRuns(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fr1", runs[0].Flights[0].ID)
	assert.Nil(t, runs[0].TruckID)

	staff, err := client.FetchStaffAssignments(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "QF1|2024-03-01T06:00", staff[0].FlightKey)
}

func TestMutationPayloads(t *testing.T) {
	var assign map[string]any
	var layout schedule.LayoutUpdate
	var generate map[string]any
	var auto map[string]any

	decode := func(t *testing.T, req *http.Request, into any) {
		data, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, into))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	}

	r := chi.NewRouter()
	r.Post("/api/flight_runs/assign", func(w http.ResponseWriter, req *http.Request) {
		decode(t, req, &assign)
		w.Write([]byte(`{"ok":true}`))
	})
	r.Post("/api/runs/update_layout", func(w http.ResponseWriter, req *http.Request) {
		decode(t, req, &layout)
		w.Write([]byte(`{"ok":true,"updated_flight_runs":3}`))
	})
	r.Post("/api/assignments/generate", func(w http.ResponseWriter, req *http.Request) {
		decode(t, req, &generate)
		w.Write([]byte(`{"ok":true,"assigned":7,"unassigned_flight_ids":["f8",9],"mode":"greedy"}`))
	})
	r.Post("/api/runs/auto_assign", func(w http.ResponseWriter, req *http.Request) {
		decode(t, req, &auto)
		w.Write([]byte(`{"ok":true,"summary":{"assigned_flights":5,"total_flights":6,"unassigned_flights":1,"full_time_staff":2,"part_time_staff":1,"reason":"short staffed"}}`))
	})
	client := newTestClient(t, r)
	ctx := context.Background()

	require.NoError(t, client.AssignFlight(ctx, "r1", "f1"))
	assert.Equal(t, map[string]any{"run_id": "r1", "flight_id": "f1"}, assign)

	req := schedule.LayoutUpdate{Date: "2024-03-01", Runs: []schedule.RunLayout{{ID: "r1", FlightRunIDs: []string{"a", "b", "c"}}}}
	updated, err := client.UpdateLayout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)
	assert.Equal(t, req, layout)

	gen, err := client.GenerateAssignments(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"date": "2024-03-01", "respect_existing_runs": false}, generate)
	assert.Equal(t, &GenerateResult{Assigned: 7, UnassignedFlightIDs: []string{"f8", "9"}, Mode: "greedy"}, gen)

	summary, err := client.AutoAssignRuns(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"date": "2024-03-01", "airline": "QF"}, auto)
	assert.Equal(t, 5, summary.AssignedFlights)
	assert.Equal(t, "short staffed", summary.Reason)
}

func TestFailureTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    FailureKind
		message string
	}{
		{name: "ok false with error", status: 200, body: `{"ok":false,"error":"run locked"}`, kind: ApplicationFailure, message: "run locked"},
		{name: "non-2xx json error", status: 409, body: `{"ok":false,"error":"conflict"}`, kind: HTTPFailure, message: "conflict"},
		{name: "non-2xx raw text", status: 502, body: "Bad gateway", kind: HTTPFailure, message: "Bad gateway"},
		{name: "non-2xx empty body", status: 500, body: "", kind: HTTPFailure, message: "Request failed (500)"},
		{name: "2xx invalid json", status: 200, body: "<html>", kind: ApplicationFailure, message: "<html>"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post("/api/flight_runs/assign", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			client := newTestClient(t, r)

			err := client.AssignFlight(context.Background(), "r1", "f1")
			require.Error(t, err)
			f, ok := AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, f.Kind)
			assert.Equal(t, tc.status, f.Status)
			assert.Equal(t, tc.message, f.Message)

			st := StatusOf(err)
			assert.False(t, st.OK)
			assert.Equal(t, tc.message, st.Message)
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(Options{BaseURL: url}, logger.Nop())
	require.NoError(t, err)

	_, err = client.FetchFlights(context.Background(), "2024-03-01")
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, NetworkFailure, f.Kind)
	assert.Zero(t, f.Status)
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "api/v1"}, logger.Nop())
	assert.Error(t, err)
}

func TestEmptySuccessBody(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/flight_runs/assign", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, r)
	assert.NoError(t, client.AssignFlight(context.Background(), "r1", "f1"))
}
