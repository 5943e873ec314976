package jobs

import (
	"fmt"
	"sort"
	"strings"
)

// Levels returns the trigger depth of every job: jobs no other job triggers
// are level 0, and a triggered job sits one level below its deepest upstream.
func (g *Graph) Levels() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	levels := make(map[string]int, len(g.jobs))
	for name := range g.jobs {
		levels[name] = 0
	}

	// Keep updating levels until stable; the graph is acyclic so this ends
	changed := true
	for changed {
		changed = false
		for name := range g.jobs {
			for _, downstream := range g.jobs[name].Downstream {
				if levels[name]+1 > levels[downstream] {
					levels[downstream] = levels[name] + 1
					changed = true
				}
			}
		}
	}

	return levels
}

// Roots returns the jobs not triggered by any other job, sorted
func (g *Graph) Roots() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	triggered := make(map[string]bool, len(g.jobs))
	for name := range g.jobs {
		for _, downstream := range g.jobs[name].Downstream {
			triggered[downstream] = true
		}
	}

	roots := []string{}
	for name := range g.jobs {
		if !triggered[name] {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)

	return roots
}

// DOT renders the trigger graph in graphviz DOT format. Scheduled jobs are
// drawn as filled boxes.
func (g *Graph) DOT() string {
	var sb strings.Builder
	sb.WriteString("digraph jobs {\n")
	sb.WriteString("  rankdir=LR;\n")

	for _, job := range g.Jobs() {
		if job.Schedule != "" {
			fmt.Fprintf(&sb, "  %q [shape=box, style=filled, fillcolor=lightblue];\n", job.Name)
		} else {
			fmt.Fprintf(&sb, "  %q;\n", job.Name)
		}

		for _, downstream := range g.Downstream(job.Name) {
			fmt.Fprintf(&sb, "  %q -> %q;\n", job.Name, downstream)
		}
	}

	sb.WriteString("}")
	return sb.String()
}
