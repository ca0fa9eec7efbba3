package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"agropath/model"
)

var (
	farm   = model.GeoPoint{Lat: 40.92, Lng: -89.53}
	center = model.GeoPoint{Lat: 39.481427, Lng: -88.303999}
)

const okBody = `{
	"code": "Ok",
	"routes": [{
		"distance": 187345.6,
		"duration": 7200.5,
		"geometry": {"type": "LineString", "coordinates": [[-89.53, 40.92], [-89.1, 40.2], [-88.303999, 39.481427]]}
	}]
}`

func newOSRMServer(t *testing.T, status int, body string, gotPath *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotPath != nil {
			*gotPath = r.URL.String()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOSRMProvider_Success(t *testing.T) {
	var path string
	srv := newOSRMServer(t, http.StatusOK, okBody, &path)
	p := NewOSRMProvider(srv.URL+"/", "", time.Second)

	pl, err := p.Route(context.Background(), RouteRequest{Origin: farm, Destination: center})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	wantPath := "/route/v1/driving/-89.53,40.92;-88.303999,39.481427?overview=full&geometries=geojson"
	if path != wantPath {
		t.Errorf("request = %q, want %q", path, wantPath)
	}
	if len(pl.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(pl.Points))
	}
	// [lon, lat] -> GeoPoint{Lat, Lng}
	if pl.Points[0] != farm || pl.Points[2] != center {
		t.Errorf("endpoints = %v .. %v", pl.Points[0], pl.Points[2])
	}
	if pl.DistanceM != 187345.6 || pl.DurationS != 7200.5 {
		t.Errorf("distance/duration = %v/%v", pl.DistanceM, pl.DurationS)
	}
}

func TestOSRMProvider_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		wantOp string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantOp: "status"},
		{name: "bad request", status: http.StatusBadRequest, body: `{"code":"InvalidQuery"}`, wantOp: "status"},
		{name: "malformed json", status: http.StatusOK, body: `{"routes": [`, wantOp: "decode"},
		{name: "no route code", status: http.StatusOK, body: `{"code":"NoRoute","message":"Impossible route","routes":[]}`, wantOp: "decode"},
		{name: "empty routes", status: http.StatusOK, body: `{"code":"Ok","routes":[]}`, wantOp: "decode"},
		{name: "empty geometry", status: http.StatusOK, body: `{"code":"Ok","routes":[{"distance":1,"geometry":{"coordinates":[]}}]}`, wantOp: "decode"},
		{name: "short coordinate", status: http.StatusOK, body: `{"code":"Ok","routes":[{"distance":1,"geometry":{"coordinates":[[1]]}}]}`, wantOp: "decode"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newOSRMServer(t, tc.status, tc.body, nil)
			p := NewOSRMProvider(srv.URL, "driving", time.Second)

			pl, err := p.Route(context.Background(), RouteRequest{Origin: farm, Destination: center})
			if pl != nil {
				t.Errorf("expected nil polyline, got %+v", pl)
			}
			if !errors.Is(err, ErrProviderCall) {
				t.Fatalf("err = %v, want ErrProviderCall", err)
			}
			var pce *ProviderCallError
			if !errors.As(err, &pce) {
				t.Fatalf("err is not *ProviderCallError: %T", err)
			}
			if pce.Op != tc.wantOp {
				t.Errorf("op = %q, want %q", pce.Op, tc.wantOp)
			}
			if tc.wantOp == "status" && pce.StatusCode != tc.status {
				t.Errorf("status code = %d, want %d", pce.StatusCode, tc.status)
			}
		})
	}
}

func TestOSRMProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewOSRMProvider(srv.URL, "driving", 50*time.Millisecond)
	_, err := p.Route(context.Background(), RouteRequest{Origin: farm, Destination: center})
	var pce *ProviderCallError
	if !errors.As(err, &pce) || pce.Op != "http" {
		t.Fatalf("err = %v, want http ProviderCallError", err)
	}
}

func TestOSRMProvider_Unreachable(t *testing.T) {
	srv := newOSRMServer(t, http.StatusOK, okBody, nil)
	url := srv.URL
	srv.Close()

	_, err := NewOSRMProvider(url, "driving", time.Second).Route(context.Background(), RouteRequest{Origin: farm, Destination: center})
	if !errors.Is(err, ErrProviderCall) {
		t.Fatalf("err = %v, want ErrProviderCall", err)
	}
}

func TestProviderCallError_Message(t *testing.T) {
	err := &ProviderCallError{Op: "status", StatusCode: 502, Err: errors.New("bad gateway")}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("message %q lacks status code", err.Error())
	}
	if !errors.Is(err, ErrProviderCall) {
		t.Error("errors.Is(ErrProviderCall) = false")
	}
}

// ---- CachedProvider ----

type countingProvider struct {
	calls atomic.Int32
	pl    *model.Polyline
	err   error
}

func (c *countingProvider) Route(_ context.Context, _ RouteRequest) (*model.Polyline, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	out := *c.pl
	out.Points = append([]model.GeoPoint(nil), c.pl.Points...)
	return &out, nil
}

func TestCachedProvider_HitAndExpiry(t *testing.T) {
	inner := &countingProvider{pl: &model.Polyline{Points: []model.GeoPoint{farm, center}, DistanceM: 10}}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var logged int
	c := NewCachedProvider(inner,
		WithTTL(time.Minute),
		WithLogger(func(string, ...any) { logged++ }),
		withClock(func() time.Time { return now }),
	)
	req := RouteRequest{Origin: farm, Destination: center}

	for i := 0; i < 3; i++ {
		if _, err := c.Route(context.Background(), req); err != nil {
			t.Fatalf("Route: %v", err)
		}
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner calls = %d, want 1", got)
	}
	if logged != 2 {
		t.Errorf("logged hits = %d, want 2", logged)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Route(context.Background(), req); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner calls after expiry = %d, want 2", got)
	}
}

func TestCachedProvider_ReturnsCopies(t *testing.T) {
	inner := &countingProvider{pl: &model.Polyline{Points: []model.GeoPoint{farm, center}}}
	c := NewCachedProvider(inner)
	req := RouteRequest{Origin: farm, Destination: center}

	first, _ := c.Route(context.Background(), req)
	first.Points[0] = model.GeoPoint{}

	second, _ := c.Route(context.Background(), req)
	if second.Points[0] != farm {
		t.Errorf("cached polyline was mutated through a returned value: %v", second.Points[0])
	}
}

func TestCachedProvider_DoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: &ProviderCallError{Op: "http", Err: errors.New("down")}}
	c := NewCachedProvider(inner)
	req := RouteRequest{Origin: farm, Destination: center}

	for i := 0; i < 2; i++ {
		if _, err := c.Route(context.Background(), req); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls.Load() != 2 || c.Len() != 0 {
		t.Errorf("calls = %d, cached = %d; want 2 and 0", inner.calls.Load(), c.Len())
	}
}

func TestCacheKey_DistinguishesDirection(t *testing.T) {
	a := cacheKey(RouteRequest{Origin: farm, Destination: center})
	b := cacheKey(RouteRequest{Origin: center, Destination: farm})
	if a == b {
		t.Errorf("forward and reverse requests share key %q", a)
	}
}
