package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/satmesh-network/satmesh/pkg/util"
)

// Memory is an in-process Store for tests and single-box runs.
type Memory struct {
	mu      sync.RWMutex
	nodes   map[string]*NodeRecord
	links   map[string]*LinkRecord
	uplinks map[string]*UplinkRecord
	events  []Event
	stats   []*StatsRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nodes:   make(map[string]*NodeRecord),
		links:   make(map[string]*LinkRecord),
		uplinks: make(map[string]*UplinkRecord),
	}
}

func (m *Memory) UpsertNode(_ context.Context, rec *NodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.nodes[rec.Name] = &cp
	return nil
}

func (m *Memory) FindNode(_ context.Context, name string) (*NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.nodes[name]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", name, util.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) ListNodes(_ context.Context) ([]*NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*NodeRecord, 0, len(m.nodes))
	for _, rec := range m.nodes {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpsertLink(_ context.Context, rec *LinkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[rec.Key()] = copyLink(rec)
	return nil
}

func (m *Memory) FindLink(_ context.Context, n1, n2 string) (*LinkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.links[LinkKey(n1, n2)]
	if !ok {
		return nil, fmt.Errorf("link %s: %w", LinkKey(n1, n2), util.ErrNotFound)
	}
	return copyLink(rec), nil
}

func (m *Memory) DeleteLink(_ context.Context, n1, n2 string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, LinkKey(n1, n2))
	return nil
}

func (m *Memory) ListLinks(_ context.Context) ([]*LinkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*LinkRecord, 0, len(m.links))
	for _, rec := range m.links {
		out = append(out, copyLink(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (m *Memory) UpsertUplink(_ context.Context, rec *UplinkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.uplinks[rec.Key()] = &cp
	return nil
}

func (m *Memory) FindUplink(_ context.Context, ground, satellite string) (*UplinkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.uplinks[UplinkKey(ground, satellite)]
	if !ok {
		return nil, fmt.Errorf("uplink %s: %w", UplinkKey(ground, satellite), util.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) DeleteUplink(_ context.Context, ground, satellite string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.uplinks, UplinkKey(ground, satellite))
	return nil
}

func (m *Memory) UplinksForStation(_ context.Context, ground string) ([]*UplinkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*UplinkRecord
	for _, rec := range m.uplinks {
		if rec.Ground == ground {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Satellite < out[j].Satellite })
	return out, nil
}

func (m *Memory) ListUplinks(_ context.Context) ([]*UplinkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*UplinkRecord, 0, len(m.uplinks))
	for _, rec := range m.uplinks {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (m *Memory) AppendEvent(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) RecentEvents(_ context.Context, limit int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]Event, 0, limit)
	for i := len(m.events) - 1; i >= len(m.events)-limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *Memory) AppendStats(_ context.Context, rec *StatsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.stats = append(m.stats, &cp)
	return nil
}

func copyLink(rec *LinkRecord) *LinkRecord {
	cp := *rec
	cp.IPs = make(map[string]string, len(rec.IPs))
	for k, v := range rec.IPs {
		cp.IPs[k] = v
	}
	cp.Interfaces = make(map[string]string, len(rec.Interfaces))
	for k, v := range rec.Interfaces {
		cp.Interfaces[k] = v
	}
	return &cp
}
