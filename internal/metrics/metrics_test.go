package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_ObserveStep(t *testing.T) {
	r := New()

	r.ObserveStep("create_user", ResultOK, 20*time.Millisecond)
	r.ObserveStep("create_user", ResultError, time.Millisecond)
	r.ObserveStep("insert_seed", ResultSkipped, 0)

	if got := testutil.ToFloat64(r.stepTotal.WithLabelValues("create_user", ResultOK)); got != 1 {
		t.Errorf("step_total{create_user,ok} = %v, ожидается 1", got)
	}
	if got := testutil.ToFloat64(r.stepTotal.WithLabelValues("insert_seed", ResultSkipped)); got != 1 {
		t.Errorf("step_total{insert_seed,skipped} = %v, ожидается 1", got)
	}
	if got := testutil.CollectAndCount(r.stepDuration); got != 2 {
		t.Errorf("серий step_duration = %d, ожидается 2", got)
	}
}

func TestRecorder_Gauges(t *testing.T) {
	r := New()
	r.SetIndexesCreated(9)
	r.MarkSuccess(time.Unix(1700000000, 0))

	if got := testutil.ToFloat64(r.indexesCreated); got != 9 {
		t.Errorf("indexes_created = %v, ожидается 9", got)
	}
	if got := testutil.ToFloat64(r.lastSuccess); got != 1700000000 {
		t.Errorf("last_success = %v, ожидается 1700000000", got)
	}
}

func TestRecorder_Push(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.SetIndexesCreated(9)

	if err := r.Push(context.Background(), srv.URL, "ocr-db-init", "inforsion_ocr_db"); err != nil {
		t.Fatalf("Push() вернул ошибку: %v", err)
	}
	if gotPath != "/metrics/job/ocr-db-init/database/inforsion_ocr_db" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody == "" {
		t.Error("тело запроса пустое")
	}
}

func TestRecorder_PushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "ocr-db-init", "inforsion_ocr_db")
	if err == nil || !strings.Contains(err.Error(), "Pushgateway") {
		t.Errorf("Push() = %v, ожидается ошибка", err)
	}
}
