package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/route-beacon/as-router/internal/addr"
	"github.com/route-beacon/as-router/internal/neighbor"
	"github.com/route-beacon/as-router/internal/reactor"
	"github.com/route-beacon/as-router/internal/rib"
)

type stubLink struct{}

func (stubLink) Send(frame []byte) error { return nil }

func newTestReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	a, _ := addr.ToInt("192.168.0.2")
	reg, err := neighbor.New([]*neighbor.Neighbor{
		{Address: a, Relation: neighbor.Customer, Link: stubLink{}},
	})
	if err != nil {
		t.Fatalf("neighbor.New: %v", err)
	}
	return reactor.New(1, reg, zap.NewNop())
}

func TestHealthz_AlwaysOK(t *testing.T) {
	s := NewServer(":0", newTestReactor(t), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	s.handleHealthz(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestReadyz_ReadyOnceReactorExists(t *testing.T) {
	s := NewServer(":0", newTestReactor(t), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	s.handleReadyz(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRIBDump_ReflectsTableContents(t *testing.T) {
	r := newTestReactor(t)
	network, _ := addr.ToInt("10.0.0.0")
	nextHop, _ := addr.ToInt("192.168.0.2")
	r.Table().Add(rib.Entry{
		Prefix:     addr.Prefix{Network: network, Length: 24},
		NextHop:    nextHop,
		LocalPref:  100,
		ASPath:     []int{1, 2},
		SelfOrigin: true,
		Origin:     rib.IGP,
	})

	s := NewServer(":0", r, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/rib", nil)
	w := httptest.NewRecorder()

	s.handleRIB(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rows []ribRow
	if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Network != "10.0.0.0" || rows[0].Length != 24 {
		t.Errorf("unexpected row: %+v", rows[0])
	}
	if rows[0].Origin != "IGP" || !rows[0].SelfOrigin {
		t.Errorf("unexpected attributes: %+v", rows[0])
	}
}
