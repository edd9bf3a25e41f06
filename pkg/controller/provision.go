package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/store"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// Provision seeds the store with node records and delivers each node its
// loopback address and routing daemon configuration. Nodes that are not
// reachable yet are logged and skipped; re-running Provision converges them.
func (c *Controller) Provision(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, node := range c.graph.Nodes() {
		_, err := c.st.FindNode(ctx, node.Name)
		switch {
		case errors.Is(err, util.ErrNotFound):
			rec := &store.NodeRecord{
				Name:       node.Name,
				Type:       node.Type,
				LoopbackIP: node.LoopbackIP,
				CreatedAt:  c.now(),
			}
			if err := c.st.UpsertNode(ctx, rec); err != nil {
				return err
			}
			c.logEvent(ctx, fmt.Sprintf("Registered %s node: %s", node.Type, node.Name))
		case err != nil:
			return err
		}
	}

	var wg sync.WaitGroup
	for _, node := range c.graph.Nodes() {
		node := node
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := c.acquireSlot()
			defer release()
			lock := c.nodeLock(node.Name)
			lock.Lock()
			defer lock.Unlock()

			if err := c.agents.ConfigureInterface(ctx, node.Name, simapi.InterfaceRequest{
				Name: "lo", IP: node.LoopbackIP, PrefixLen: 32,
			}); err != nil {
				util.WithNode(node.Name).Warnf("loopback provisioning: %v", err)
				return
			}
			if err := c.agents.ConfigureFRR(ctx, node.Name, node.FRRFiles); err != nil {
				util.WithNode(node.Name).Warnf("routing config delivery: %v", err)
			}
		}()
	}
	wg.Wait()

	c.logEvent(ctx, "Network provisioning completed")
	return nil
}

// SetLinkState is the manual link override behind PUT /link. The link must
// already have a record; unknown links are created by snapshot
// reconciliation, not here.
func (c *Controller) SetLinkState(ctx context.Context, upd simapi.LinkUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.st.FindLink(ctx, upd.Node1Name, upd.Node2Name)
	if err != nil {
		return fmt.Errorf("link %s-%s: %w", upd.Node1Name, upd.Node2Name, err)
	}

	release := c.lockNodes(rec.Node1, rec.Node2)
	defer release()

	if rec.Up != upd.Up {
		if err := c.setLinkAdminState(ctx, rec, upd.Up); err != nil {
			c.logEvent(ctx, fmt.Sprintf("Manual link state change between %s and %s failed: %v",
				rec.Node1, rec.Node2, err))
			return err
		}
		rec.Up = upd.Up
	}
	if upd.Delay != nil {
		if err := c.pushLinkDelay(ctx, rec, *upd.Delay); err != nil {
			c.logEvent(ctx, fmt.Sprintf("Manual link delay change between %s and %s failed: %v",
				rec.Node1, rec.Node2, err))
			return err
		}
		rec.DelayMs = *upd.Delay
	}

	rec.UpdatedAt = c.now()
	if err := c.st.UpsertLink(ctx, rec); err != nil {
		return err
	}
	state := "down"
	if rec.Up {
		state = "up"
	}
	c.logEvent(ctx, fmt.Sprintf("Updated link between %s and %s - status: %s", rec.Node1, rec.Node2, state))
	return nil
}
