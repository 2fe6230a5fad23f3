package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollector_DisabledIsNoOp(t *testing.T) {
	c := NewCollector(Config{Enabled: false})
	c.RecordOperation("stat", time.Millisecond, "")
	c.RecordCache(true)
	c.SetBlobBytes("hot", 100)
	c.SetCircuitState("s3", 0)

	if c.Handler() != nil {
		t.Fatal("expected nil handler when metrics disabled")
	}
}

func TestCollector_RecordsAndServes(t *testing.T) {
	c := NewCollector(Config{Enabled: true, Namespace: "test"})
	c.RecordOperation("write_file", 5*time.Millisecond, "")
	c.RecordOperation("write_file", 2*time.Millisecond, "ENOENT")
	c.RecordCache(true)
	c.RecordCache(false)
	c.SetBlobBytes("hot", 2048)
	c.SetCircuitState("s3", 1)

	h := c.Handler()
	if h == nil {
		t.Fatal("expected non-nil handler when metrics enabled")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "test_operations_total") {
		t.Errorf("expected operations_total metric in output, got: %s", body)
	}
	if !strings.Contains(body, "test_operation_errors_total") {
		t.Errorf("expected operation_errors_total metric in output")
	}
}
