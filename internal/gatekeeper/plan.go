package gatekeeper

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Build step names.
const (
	stepFirewall  = "firewall"
	stepSecret    = "secret"
	stepFunctions = "functions"
	stepOrigin    = "origin"
	stepEdge      = "edge"
	stepOutputs   = "outputs"
)

// step is one named unit of the build.
type step struct {
	name string
	deps []string
	run  func() error
}

// plan is a set of steps ordered by their dependencies.
type plan struct {
	steps []step
}

func (p *plan) add(name string, run func() error, deps ...string) {
	p.steps = append(p.steps, step{name: name, deps: deps, run: run})
}

// order sorts the steps topologically. Steps that become ready at the
// same time keep their declaration order.
func (p *plan) order() ([]step, error) {
	index := make(map[string]int, len(p.steps))
	for i, s := range p.steps {
		if _, dup := index[s.name]; dup {
			return nil, fmt.Errorf("duplicate build step %q", s.name)
		}
		index[s.name] = i
	}

	indegree := make([]int, len(p.steps))
	dependents := make([][]int, len(p.steps))
	for i, s := range p.steps {
		for _, dep := range s.deps {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("build step %q depends on unknown step %q", s.name, dep)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var queue []int
	for i := range p.steps {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]step, 0, len(p.steps))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		ordered = append(ordered, p.steps[i])

		for _, j := range dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if len(ordered) != len(p.steps) {
		done := lo.SliceToMap(ordered, func(s step) (string, struct{}) { return s.name, struct{}{} })
		blocked := lo.FilterMap(p.steps, func(s step, _ int) (string, bool) {
			_, ok := done[s.name]
			return s.name, !ok
		})
		return nil, fmt.Errorf("build steps form a cycle: %s", strings.Join(blocked, ", "))
	}

	return ordered, nil
}

// execute runs the steps in order and stops at the first failure.
// Errors that are not already provisioning errors are wrapped in one
// naming the step.
func (p *plan) execute() error {
	steps, err := p.order()
	if err != nil {
		return util.NewProvisioningErrorWithCause("gatekeeper.plan", "invalid build plan", err)
	}

	for _, s := range steps {
		if err := s.run(); err != nil {
			if util.IsProvisioningError(err) {
				return err
			}
			return util.NewProvisioningErrorWithCause("gatekeeper."+s.name, "build step failed", err)
		}
	}
	return nil
}
