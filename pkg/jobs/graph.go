package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/heimdalr/dag"
)

// ErrUnknownDownstream is returned when a job triggers a job that is not configured
var ErrUnknownDownstream = errors.New("job triggers non-existent job")

// Graph is the set of configured jobs linked by their downstream triggers
type Graph struct {
	dag  *dag.DAG
	jobs map[string]Job
	mu   sync.RWMutex
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		dag:  dag.NewDAG(),
		jobs: make(map[string]Job),
	}
}

// Build validates jobs and replaces the graph. Edges run from a job to the
// jobs it triggers; cycles are rejected.
func (g *Graph) Build(jobList []Job) error {
	d := dag.NewDAG()
	jobs := make(map[string]Job, len(jobList))

	for i := range jobList {
		job := &jobList[i]
		if err := job.Validate(); err != nil {
			return err
		}

		if _, exists := jobs[job.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
		}
		jobs[job.Name] = *job

		if err := d.AddVertexByID(job.Name, job.Name); err != nil {
			return fmt.Errorf("failed to add vertex %s: %w", job.Name, err)
		}
	}

	for i := range jobList {
		job := &jobList[i]

		for _, downstream := range job.Downstream {
			if _, exists := jobs[downstream]; !exists {
				return fmt.Errorf("%w: %s triggers %s", ErrUnknownDownstream, job.Name, downstream)
			}

			// AddEdge refuses edges that would close a cycle
			if err := d.AddEdge(job.Name, downstream); err != nil {
				return fmt.Errorf("invalid trigger %s → %s: %w", job.Name, downstream, err)
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.dag = d
	g.jobs = jobs

	return nil
}

// Job returns the definition of a configured job
func (g *Graph) Job(name string) (Job, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	job, exists := g.jobs[name]
	return job, exists
}

// Jobs returns every job ordered by name
func (g *Graph) Jobs() []Job {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Job, 0, len(g.jobs))
	for _, name := range g.sortedNames() {
		out = append(out, g.jobs[name])
	}

	return out
}

// Names returns every job name, sorted
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.sortedNames()
}

func (g *Graph) sortedNames() []string {
	names := make([]string, 0, len(g.jobs))
	for name := range g.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Downstream returns the jobs a successful build of name triggers directly
func (g *Graph) Downstream(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	children, err := g.dag.GetChildren(name)
	if err != nil {
		return nil
	}

	return sortedKeys(children)
}

// Upstream returns the jobs that trigger name directly
func (g *Graph) Upstream(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	parents, err := g.dag.GetParents(name)
	if err != nil {
		return nil
	}

	return sortedKeys(parents)
}

// AllDownstream returns every job eventually triggered by name
func (g *Graph) AllDownstream(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	descendants, err := g.dag.GetDescendants(name)
	if err != nil {
		return nil
	}

	return sortedKeys(descendants)
}

// Scheduled returns the jobs with a cron schedule
func (g *Graph) Scheduled() []Job {
	var out []Job
	for _, job := range g.Jobs() {
		if job.Schedule != "" {
			out = append(out, job)
		}
	}

	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
