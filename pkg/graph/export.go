package graph

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Stats summarizes a built graph.
type Stats struct {
	Nodes            int `json:"nodes"`
	Edges            int `json:"edges"`
	Obstacles        int `json:"obstacles"`
	Components       int `json:"components"`
	LargestComponent int `json:"largest_component"`
	Isolated         int `json:"isolated"`
}

// ComputeStats walks g once and reports its size and connectivity.
func ComputeStats(g *Graph) Stats {
	comps := Components(g)
	s := Stats{
		Nodes:      g.NumNodes(),
		Edges:      len(g.Edges),
		Obstacles:  len(g.Obstacles),
		Components: len(comps),
		Isolated:   len(Isolated(g)),
	}
	if len(comps) > 0 {
		s.LargestComponent = len(comps[0])
	}
	return s
}

// GeoJSON exports nodes, edges and obstacles as a feature collection.
// Every feature carries a "layer" property: node, edge or obstacle.
func GeoJSON(g *Graph) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, n := range g.Nodes {
		f := geojson.NewFeature(n.Point())
		f.Properties["layer"] = "node"
		f.Properties["id"] = n.ID
		if n.Name != "" {
			f.Properties["name"] = n.Name
		}
		fc.Append(f)
	}

	for _, e := range g.Edges {
		line := orb.LineString{g.Nodes[e.From].Point(), g.Nodes[e.To].Point()}
		f := geojson.NewFeature(line)
		f.Properties["layer"] = "edge"
		f.Properties["from"] = g.Nodes[e.From].ID
		f.Properties["to"] = g.Nodes[e.To].ID
		f.Properties["meters"] = e.Weight
		fc.Append(f)
	}

	for _, o := range g.Obstacles {
		f := geojson.NewFeature(orb.Polygon{o.Ring})
		f.Properties["layer"] = "obstacle"
		f.Properties["kind"] = string(o.Kind)
		f.Properties["name"] = o.Name
		fc.Append(f)
	}

	return fc
}
