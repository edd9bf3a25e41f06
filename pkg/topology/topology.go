// Package topology provides the labelled undirected graph of satellites,
// ground stations and vessels, the torus constellation builder, and the
// deterministic address/interface annotation pass.
package topology

import (
	"fmt"
	"sort"

	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/orbit"
	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// Node is one vertex of the topology graph. Per-variant fields are populated
// according to Type; shared annotation fields are filled by Annotate.
type Node struct {
	Name string
	Type string

	// Satellite variant
	Orbit *orbit.Elements

	// Ground/vessel variant
	Lat       float64
	Lon       float64
	Waypoints []config.Waypoint

	// Annotation
	LoopbackIP     string // /32 host address, empty before Annotate
	InterfaceCount int
	UplinkPool     []UplinkSlot // ground/vessel only
	FRRFiles       map[string]string

	edges []string
}

// Edge is one undirected link between two node names.
type Edge struct {
	Node1     string
	Node2     string
	InterRing bool

	// Annotation
	Subnet     string            // /30 CIDR
	IPs        map[string]string // endpoint name -> host IP
	Interfaces map[string]string // endpoint name -> interface name
}

// Key returns the canonical unordered-pair key for the edge.
func (e *Edge) Key() string {
	return EdgeKey(e.Node1, e.Node2)
}

// Peer returns the other endpoint of the edge.
func (e *Edge) Peer(name string) string {
	if e.Node1 == name {
		return e.Node2
	}
	return e.Node1
}

// EdgeKey builds the canonical unordered-pair key for two node names.
func EdgeKey(n1, n2 string) string {
	if n1 > n2 {
		n1, n2 = n2, n1
	}
	return n1 + "|" + n2
}

// Graph owns all nodes and edges. Nodes and edges are stored in insertion
// order so that annotation is a pure function of the build inputs.
type Graph struct {
	Rings       int
	RingNodes   int
	Inclination float64
	AltitudeKm  float64

	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// AddNode inserts a node. Duplicate names are rejected.
func (g *Graph) AddNode(n *Node) error {
	if _, ok := g.nodes[n.Name]; ok {
		return fmt.Errorf("%w: node %s", util.ErrAlreadyExists, n.Name)
	}
	g.nodes[n.Name] = n
	g.nodeOrder = append(g.nodeOrder, n.Name)
	return nil
}

// AddEdge inserts an undirected edge between two existing nodes. Adding an
// edge for an endpoint pair that already has one is a no-op, matching set
// semantics for neighbour relations.
func (g *Graph) AddEdge(n1, n2 string, interRing bool) error {
	if _, ok := g.nodes[n1]; !ok {
		return fmt.Errorf("%w: node %s", util.ErrNotFound, n1)
	}
	if _, ok := g.nodes[n2]; !ok {
		return fmt.Errorf("%w: node %s", util.ErrNotFound, n2)
	}
	key := EdgeKey(n1, n2)
	if _, ok := g.edges[key]; ok {
		return nil
	}
	e := &Edge{
		Node1:      n1,
		Node2:      n2,
		InterRing:  interRing,
		IPs:        make(map[string]string),
		Interfaces: make(map[string]string),
	}
	g.edges[key] = e
	g.edgeOrder = append(g.edgeOrder, key)
	g.nodes[n1].edges = append(g.nodes[n1].edges, key)
	g.nodes[n2].edges = append(g.nodes[n2].edges, key)
	return nil
}

// Node returns a node by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Edge returns the edge between two nodes, if any.
func (g *Graph) Edge(n1, n2 string) (*Edge, bool) {
	e, ok := g.edges[EdgeKey(n1, n2)]
	return e, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, name := range g.nodeOrder {
		out = append(out, g.nodes[name])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		out = append(out, g.edges[key])
	}
	return out
}

// AdjacentEdges returns the edges incident on a node in insertion order.
func (g *Graph) AdjacentEdges(name string) []*Edge {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]*Edge, 0, len(n.edges))
	for _, key := range n.edges {
		out = append(out, g.edges[key])
	}
	return out
}

// Satellites returns satellite names in insertion order.
func (g *Graph) Satellites() []string {
	return g.namesOfType(simapi.TypeSatellite)
}

// GroundStations returns ground station names in insertion order.
func (g *Graph) GroundStations() []string {
	return g.namesOfType(simapi.TypeGround)
}

// Vessels returns vessel names in insertion order.
func (g *Graph) Vessels() []string {
	return g.namesOfType(simapi.TypeVessel)
}

func (g *Graph) namesOfType(t string) []string {
	var out []string
	for _, name := range g.nodeOrder {
		if g.nodes[name].Type == t {
			out = append(out, name)
		}
	}
	return out
}

// SortedNodeNames returns all node names sorted, for stable display output.
func (g *Graph) SortedNodeNames() []string {
	out := append([]string(nil), g.nodeOrder...)
	sort.Strings(out)
	return out
}
