package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/config"
	"github.com/ekaya-inc/ekaya-content/pkg/services/workqueue"
)

func testConfig() *config.Config {
	return &config.Config{
		Version: "test-version",
		Env:     "test",
	}
}

func TestHealthHandler_Health(t *testing.T) {
	handler := NewHealthHandler(testConfig(), &fakePinger{err: errors.New("down")}, nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	queue := &fakeQueue{stats: workqueue.Stats{Workers: 4, Capacity: 100}}
	handler := NewHealthHandler(testConfig(), &fakePinger{}, &fakePinger{}, queue, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	handler.Ping(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Version != "test-version" {
		t.Errorf("expected version 'test-version', got '%s'", response.Version)
	}
	if response.Service != "ekaya-content" {
		t.Errorf("expected service 'ekaya-content', got '%s'", response.Service)
	}
	if response.Environment != "test" {
		t.Errorf("expected environment 'test', got '%s'", response.Environment)
	}
	if response.GoVersion == "" {
		t.Error("expected non-empty go_version")
	}
	if response.Hostname == "" {
		t.Error("expected non-empty hostname")
	}
	for _, c := range []string{"database", "cache", "queue"} {
		if response.Components[c] != "ok" {
			t.Errorf("expected component %s 'ok', got '%s'", c, response.Components[c])
		}
	}
	if response.Queue == nil || response.Queue.Workers != 4 {
		t.Errorf("expected queue stats with 4 workers, got %+v", response.Queue)
	}
}

func TestHealthHandler_Ping_CacheDownIsDegraded(t *testing.T) {
	handler := NewHealthHandler(testConfig(), &fakePinger{}, &fakePinger{err: errors.New("redis: connection refused")}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "degraded" {
		t.Errorf("expected status 'degraded', got '%s'", response.Status)
	}
	if response.Components["cache"] != "degraded" {
		t.Errorf("expected cache 'degraded', got '%s'", response.Components["cache"])
	}
}

func TestHealthHandler_Ping_DatabaseDown(t *testing.T) {
	handler := NewHealthHandler(testConfig(), &fakePinger{err: errors.New("connection refused")}, &fakePinger{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Components["database"] != "unavailable" {
		t.Errorf("expected database 'unavailable', got '%s'", response.Components["database"])
	}
}

func TestHealthHandler_Ping_ClosedQueue(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, nil, &fakeQueue{stats: workqueue.Stats{Closed: true}}, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Components["queue"] != "closed" {
		t.Errorf("expected queue 'closed', got '%s'", response.Components["queue"])
	}
	if _, ok := response.Components["database"]; ok {
		t.Error("expected no database component when no database is configured")
	}
}
