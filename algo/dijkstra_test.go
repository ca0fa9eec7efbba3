package algo

import (
	"errors"
	"math"
	"testing"

	"agropath/model"
	"agropath/utils"
)

func TestShortestPath_SinglePolyline(t *testing.T) {
	g, err := BuildGraph(route)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	res, err := ShortestPath(g, route[0], route[len(route)-1])
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}

	want := 0.0
	for i := 0; i < len(route)-1; i++ {
		want += utils.Distance(route[i], route[i+1])
	}
	if math.Abs(res.Distance-want) > 1e-6 {
		t.Errorf("distance = %v, want %v", res.Distance, want)
	}
	if len(res.Path) != len(route) {
		t.Fatalf("path len = %d, want %d", len(res.Path), len(route))
	}
	for i := range route {
		if res.Path[i] != route[i] {
			t.Errorf("path[%d] = %v, want %v", i, res.Path[i], route[i])
		}
	}

	sum := 0.0
	for _, s := range res.Segments {
		sum += s.Distance
	}
	if sum != res.Distance {
		t.Errorf("segment sum %v != distance %v", sum, res.Distance)
	}
}

func TestShortestPath_PicksCheaperBranch(t *testing.T) {
	a := model.GeoPoint{Lat: 1, Lng: 1}
	b := model.GeoPoint{Lat: 2, Lng: 2}
	c := model.GeoPoint{Lat: 3, Lng: 3}
	d := model.GeoPoint{Lat: 4, Lng: 4}

	g := NewRouteGraph()
	g.SetEdge(a, b, 10)
	g.SetEdge(b, d, 10)
	g.SetEdge(a, c, 5)
	g.SetEdge(c, d, 30)

	res, err := ShortestPath(g, a, d)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if res.Distance != 20 {
		t.Errorf("distance = %v, want 20", res.Distance)
	}
	if len(res.Path) != 3 || res.Path[1] != b {
		t.Errorf("path = %v, want a -> b -> d", res.Path)
	}
}

func TestShortestPath_DeterministicTieBreak(t *testing.T) {
	a := model.GeoPoint{Lat: 1, Lng: 1}
	b := model.GeoPoint{Lat: 2, Lng: 2}
	c := model.GeoPoint{Lat: 3, Lng: 3}
	d := model.GeoPoint{Lat: 4, Lng: 4}

	g := NewRouteGraph()
	g.SetEdge(a, b, 10)
	g.SetEdge(a, c, 10)
	g.SetEdge(b, d, 10)
	g.SetEdge(c, d, 10)

	first, err := ShortestPath(g, a, d)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	for i := 0; i < 50; i++ {
		res, _ := ShortestPath(g, a, d)
		if res.Path[1] != first.Path[1] {
			t.Fatalf("run %d chose %v, first run chose %v", i, res.Path[1], first.Path[1])
		}
	}
	if first.Path[1] != b {
		t.Errorf("tie broken towards %v, want first inserted node %v", first.Path[1], b)
	}
}

func TestShortestPath_Errors(t *testing.T) {
	g, _ := BuildGraph(route)
	missing := model.GeoPoint{Lat: 0, Lng: 0}

	cases := []struct {
		name   string
		source model.GeoPoint
		target model.GeoPoint
		want   error
	}{
		{name: "target missing", source: route[0], target: missing, want: ErrNodeNotFound},
		{name: "source missing", source: missing, target: route[0], want: ErrNodeNotFound},
		{name: "against one-way", source: route[len(route)-1], target: route[0], want: ErrNoPath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ShortestPath(g, tc.source, tc.target)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	var nf *NodeNotFoundError
	_, err := ShortestPath(g, route[0], missing)
	if !errors.As(err, &nf) || nf.Role != "target" || nf.Point != missing {
		t.Errorf("unexpected NodeNotFoundError: %+v", nf)
	}
}

func TestShortestPath_SourceEqualsTarget(t *testing.T) {
	g, _ := BuildGraph(route)
	res, err := ShortestPath(g, route[2], route[2])
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if res.Distance != 0 || len(res.Path) != 1 {
		t.Errorf("got distance %v path %v, want 0 and single node", res.Distance, res.Path)
	}
}

func TestShortestPath_AfterMerge(t *testing.T) {
	center := model.GeoPoint{Lat: 39.481427, Lng: -88.303999}
	shared := model.GeoPoint{Lat: 40.0, Lng: -89.0}
	farm1 := model.GeoPoint{Lat: 40.92, Lng: -89.53}
	farm2 := model.GeoPoint{Lat: 40.91, Lng: -89.54}

	g1, _ := BuildGraph([]model.GeoPoint{farm1, shared, center})
	g2, _ := BuildGraph([]model.GeoPoint{farm2, shared, center})
	merged := MergeOrdered([]LabeledGraph{{"Finca 1", g1}, {"Finca 2", g2}})

	if merged.EdgeCount() != 3 {
		t.Fatalf("edge count = %d, want 3 (shared leg collapses)", merged.EdgeCount())
	}
	res, err := ShortestPath(merged, farm2, center)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	want := utils.Distance(farm2, shared) + utils.Distance(shared, center)
	if math.Abs(res.Distance-want) > 1e-6 {
		t.Errorf("distance = %v, want %v", res.Distance, want)
	}
}

func TestFormatPath(t *testing.T) {
	g, _ := BuildGraph(route)
	res, _ := ShortestPath(g, route[0], route[len(route)-1])
	if out := FormatPath(res); out == "" {
		t.Error("FormatPath returned empty string")
	}
}
