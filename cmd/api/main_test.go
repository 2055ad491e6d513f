package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/wolfman30/leadcrm/internal/config"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, m := setupMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveMutation("create", nil)
	m.ObserveMutation("update", errors.New("boom"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "leadcrm_leads_mutations_total") {
		t.Fatalf("expected mutation counter to be exported")
	}
}

func TestBuildServerMemoryMode(t *testing.T) {
	cfg := &appconfig.Config{
		Env:            "development",
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		MetricsEnabled: true,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, cleanup, err := buildServer(ctx, cfg, logging.NewWithWriter("error", io.Discard))
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	defer cleanup()

	for path, want := range map[string]int{
		"/health":  http.StatusOK,
		"/metrics": http.StatusOK,
		"/leads":   http.StatusUnauthorized,
	} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, rr.Code)
		}
	}
}
