package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"agropath/db"
	"agropath/model"
	"agropath/planner"
	"agropath/routing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---- test doubles ----

// straightProvider 返回 起点 -> 终点 两点直线; fail 中的起点返回服务错误
type straightProvider struct {
	fail map[string]bool
}

func (p *straightProvider) Route(_ context.Context, req routing.RouteRequest) (*model.Polyline, error) {
	for id, on := range p.fail {
		if on && siteByID(id).Point() == req.Origin {
			return nil, &routing.ProviderCallError{Op: "status", StatusCode: 503, Err: errors.New("unavailable")}
		}
	}
	return &model.Polyline{Points: []model.GeoPoint{req.Origin, req.Destination}, DistanceM: 100000}, nil
}

func siteByID(id string) model.Site {
	for _, s := range db.DefaultSites() {
		if s.ID == id {
			return s
		}
	}
	return model.Site{}
}

func newTestRouter(t *testing.T, p routing.Provider) (*gin.Engine, *db.MemoryStore, string) {
	t.Helper()
	store := db.NewMemoryStore(db.DefaultSites())
	orch := planner.New(p, planner.WithLogger(func(string, ...any) {}))
	dir := t.TempDir()
	h := New(store, store, orch, []byte("test-secret"), dir)

	r := gin.New()
	SetupRoutes(r, h)
	return r, store, dir
}

func do(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

// ---- tests ----

func TestPing(t *testing.T) {
	r, _, _ := newTestRouter(t, &straightProvider{})
	if w := do(r, http.MethodGet, "/ping", nil, ""); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListSites(t *testing.T) {
	r, _, _ := newTestRouter(t, &straightProvider{})

	tests := []struct {
		query      string
		wantStatus int
		wantCount  int
	}{
		{"", http.StatusOK, 9},
		{"?kind=farm", http.StatusOK, 7},
		{"?kind=port", http.StatusOK, 1},
		{"?kind=warehouse", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/sites"+tt.query, nil, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Count int          `json:"count"`
				Sites []model.Site `json:"sites"`
			}
			decode(t, w, &resp)
			if resp.Count != tt.wantCount || len(resp.Sites) != tt.wantCount {
				t.Errorf("count = %d, want %d", resp.Count, tt.wantCount)
			}
		})
	}
}

func TestGetSite(t *testing.T) {
	r, _, _ := newTestRouter(t, &straightProvider{})

	w := do(r, http.MethodGet, "/api/sites/"+db.PortID, nil, "")
	var site model.Site
	decode(t, w, &site)
	if w.Code != http.StatusOK || site.Name != "Port of Metropolitan St. Louis" {
		t.Errorf("status = %d, site = %+v", w.Code, site)
	}

	if w := do(r, http.MethodGet, "/api/sites/nowhere", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing site status = %d, want 404", w.Code)
	}
}

func TestGetCost(t *testing.T) {
	r, _, _ := newTestRouter(t, &straightProvider{})

	w := do(r, http.MethodGet, "/api/cost?distance_km=100", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var b model.CostBreakdown
	decode(t, w, &b)
	if b.OneWayDistanceKm != 100 || b.TotalCostPerTon <= 154.65 {
		t.Errorf("breakdown = %+v", b)
	}

	for _, q := range []string{"abc", "-5", ""} {
		if w := do(r, http.MethodGet, "/api/cost?distance_km="+q, nil, ""); w.Code != http.StatusBadRequest {
			t.Errorf("distance_km=%q status = %d, want 400", q, w.Code)
		}
	}
}

func TestRegisterLoginAndCreateSite(t *testing.T) {
	r, store, _ := newTestRouter(t, &straightProvider{})
	creds := map[string]string{"username": "ana", "password": "soja2024", "email": "ana@example.com"}

	if w := do(r, http.MethodPost, "/api/register", creds, ""); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/register", creds, ""); w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w.Code)
	}
	short := map[string]string{"username": "bob", "password": "123"}
	if w := do(r, http.MethodPost, "/api/register", short, ""); w.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d, want 400", w.Code)
	}

	bad := map[string]string{"username": "ana", "password": "wrong-pass"}
	if w := do(r, http.MethodPost, "/api/login", bad, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", w.Code)
	}
	unknown := map[string]string{"username": "nobody", "password": "whatever"}
	if w := do(r, http.MethodPost, "/api/login", unknown, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d, want 401", w.Code)
	}

	w := do(r, http.MethodPost, "/api/login", creds, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var login LoginResponse
	decode(t, w, &login)
	if login.Token == "" {
		t.Fatal("empty token")
	}

	site := CreateSiteRequest{ID: "finca-8", Name: "Finca 8", Lat: 40.90, Lng: -89.50, Kind: model.SiteFarm}
	if w := do(r, http.MethodPost, "/api/sites", site, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/sites", site, "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/sites", site, login.Token); w.Code != http.StatusCreated {
		t.Fatalf("create site status = %d: %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/sites", site, login.Token); w.Code != http.StatusConflict {
		t.Errorf("duplicate site status = %d, want 409", w.Code)
	}
	invalid := CreateSiteRequest{ID: "x", Name: "X", Lat: 123, Kind: model.SiteFarm}
	if w := do(r, http.MethodPost, "/api/sites", invalid, login.Token); w.Code != http.StatusBadRequest {
		t.Errorf("invalid site status = %d, want 400", w.Code)
	}

	if _, err := store.GetSite(context.Background(), "finca-8"); err != nil {
		t.Errorf("site not stored: %v", err)
	}
}

func TestPlanCollection(t *testing.T) {
	r, _, _ := newTestRouter(t, &straightProvider{fail: map[string]bool{"finca-2": true}})

	body := CollectionRequest{Origins: []string{"finca-1", "finca-2", "finca-3"}, Destination: db.CenterID}
	w := do(r, http.MethodPost, "/api/plan/collection", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp BatchResponse
	decode(t, w, &resp)
	if len(resp.Legs) != 2 || len(resp.Failures) != 1 {
		t.Fatalf("legs = %d, failures = %d", len(resp.Legs), len(resp.Failures))
	}
	if resp.Failures[0].Label != "Finca 2" || resp.Failures[0].Stage != "provider" {
		t.Errorf("failure = %+v", resp.Failures[0])
	}
	if resp.Legs[0].Cost == nil || resp.Legs[0].ProviderDistanceKm != 100 {
		t.Errorf("leg = %+v", resp.Legs[0])
	}
	if resp.Merged == nil || len(resp.Merged.Labels) != 2 {
		t.Errorf("merged = %+v", resp.Merged)
	}
	if resp.Artifact == "" {
		t.Fatal("artifact path missing")
	}
	data, err := os.ReadFile(resp.Artifact)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if !bytes.Contains(data, []byte(`"label":"Finca 3"`)) || bytes.Contains(data, []byte(`"label":"Finca 2"`)) {
		t.Errorf("artifact should hold the successful legs only: %s", data)
	}
}

func TestPlanCollection_Errors(t *testing.T) {
	r, _, _ := newTestRouter(t, &straightProvider{fail: map[string]bool{"finca-1": true}})

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"empty origins", CollectionRequest{Destination: db.CenterID}, http.StatusBadRequest},
		{"unknown destination", CollectionRequest{Origins: []string{"finca-1"}, Destination: "nowhere"}, http.StatusNotFound},
		{"unknown origin", CollectionRequest{Origins: []string{"finca-99"}, Destination: db.CenterID}, http.StatusNotFound},
		{"all legs failed", CollectionRequest{Origins: []string{"finca-1"}, Destination: db.CenterID}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, http.MethodPost, "/api/plan/collection", tt.body, ""); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestPlanNetwork(t *testing.T) {
	r, _, _ := newTestRouter(t, &straightProvider{})

	w := do(r, http.MethodGet, "/api/plan/network", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp NetworkResponse
	decode(t, w, &resp)

	if resp.Summary.Legs != 8 || resp.Summary.Failures != 0 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if resp.Network == nil || resp.Network.Labels[7] != "Clarkson Grain Mattoon Plant" {
		t.Errorf("network = %+v", resp.Network)
	}
	if last := resp.Legs[7]; last.Cost != nil || last.DestinationID != db.PortID {
		t.Errorf("port leg = %+v", last)
	}
	if resp.Bounds == nil || resp.Bounds.SouthWest.Lat != 38.61 {
		t.Errorf("bounds = %+v", resp.Bounds)
	}
	if resp.Artifact == "" {
		t.Fatal("artifact path missing")
	}
	if _, err := os.Stat(resp.Artifact); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
}
