package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/satmesh-network/satmesh/pkg/simapi"
)

// Scenario is a scripted sequence of control-plane actions, loaded from a
// YAML file:
//
//	name: cross-plane flap
//	steps:
//	  - link: {node1: R0_0, node2: R1_0, up: false}
//	  - sleep: 30s
//	  - link: {node1: R0_0, node2: R1_0, up: true, delay: 12.5}
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one scenario action. Exactly one field should be set. Sleep is a
// Go duration string such as "30s".
type Step struct {
	Sleep string    `yaml:"sleep,omitempty"`
	Link  *LinkStep `yaml:"link,omitempty"`
}

// LinkStep is a manual link override.
type LinkStep struct {
	Node1 string   `yaml:"node1"`
	Node2 string   `yaml:"node2"`
	Up    bool     `yaml:"up"`
	Delay *float64 `yaml:"delay,omitempty"`
}

func newScenarioCmd() *cobra.Command {
	play := &cobra.Command{
		Use:   "play <file>",
		Short: "Run a scripted scenario against the controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var sc Scenario
			if err := yaml.Unmarshal(data, &sc); err != nil {
				return fmt.Errorf("parsing scenario %s: %w", args[0], err)
			}
			return runScenario(cmd, &sc)
		},
	}

	scenario := &cobra.Command{Use: "scenario", Short: "Scripted scenarios"}
	scenario.AddCommand(play)
	return scenario
}

func runScenario(cmd *cobra.Command, sc *Scenario) error {
	if sc.Name != "" {
		fmt.Println("Running scenario:", sc.Name)
	}
	for i, step := range sc.Steps {
		switch {
		case step.Link != nil:
			upd := simapi.LinkUpdate{
				Node1Name: step.Link.Node1,
				Node2Name: step.Link.Node2,
				Up:        step.Link.Up,
				Delay:     step.Link.Delay,
			}
			state := "down"
			if upd.Up {
				state = "up"
			}
			fmt.Printf("step %d: link %s-%s %s\n", i+1, upd.Node1Name, upd.Node2Name, state)
			if err := app.client.setLink(cmd.Context(), upd); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		case step.Sleep != "":
			d, err := time.ParseDuration(step.Sleep)
			if err != nil {
				return fmt.Errorf("step %d: bad sleep %q: %w", i+1, step.Sleep, err)
			}
			fmt.Printf("step %d: sleep %s\n", i+1, d)
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(d):
			}
		default:
			return fmt.Errorf("step %d: no action specified", i+1)
		}
	}
	return nil
}
