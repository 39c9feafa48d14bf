package runner

import (
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/briarwood/neatcore/neat"
)

// Runner drives the generation lifecycle in §4.6: it owns a species
// manager, spawns one agent per network through an Environment, waits
// for either voluntary completion or a timeout, then reproduces and
// starts the next generation. All mutation of the agent registry, the
// species structure, and per-network fitness is serialized behind a
// single lock, per the concurrency model in spec.md §5.
type Runner struct {
	mu sync.Mutex

	species *neat.Species
	lses    neat.LSESParams
	env     Environment
	rng     *rand.Rand

	// SeedPackets, if non-empty, seeds Reset() with previously
	// persisted networks instead of fresh primitive genomes.
	SeedPackets []*neat.Packet

	generation int
	remaining  int

	active         map[Agent]neat.Origin
	stopwatchStart time.Time
	timer          *time.Timer
	spawning       bool
	finishing      bool

	bestGenome *neat.Genome
}

// tryClaimFinish reports whether the caller is the one that emptied
// the active-agent map, guarding generation completion against being
// entered twice when the timeout sweep and a voluntary finish race,
// and against firing while agents are still being spawned (an agent
// that finishes synchronously inside Activate must not end the
// generation before its siblings have even been created).
func (r *Runner) tryClaimFinish() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.spawning || r.finishing || len(r.active) != 0 {
		return false
	}
	r.finishing = true
	return true
}

// NewRunner creates a runner bound to a species manager, generation
// parameters, and the environment it will spawn agents through.
func NewRunner(species *neat.Species, lses neat.LSESParams, env Environment, rng *rand.Rand) *Runner {
	return &Runner{species: species, lses: lses, env: env, rng: rng}
}

// Reset rebuilds the species from scratch: generation counter to
// zero, populations cleared, and populationSize initial networks
// seeded, either from SeedPackets (deep-copied) or freshly primitive,
// each mutated once, and placed with AssignClosestOrNew. The first
// seed starts a population; every later seed joins the closest
// existing population whatever its distance, so the delta threshold is
// not applied here and Reset never starts a second population.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation = 0
	r.remaining = 0
	r.species.Populations = nil

	registry := r.species.Registry
	for i := 0; i < r.lses.PopulationSize; i++ {
		var g *neat.Genome
		if i < len(r.SeedPackets) {
			decoded, err := neat.DecodePacket(r.SeedPackets[i], registry.Coefficients, registry.DeltaThreshold, registry.Mutation)
			if err != nil {
				log.Printf("runner: seed packet %d failed to decode, falling back to a primitive genome: %v", i, err)
				g = neat.NewPrimitiveGenome(registry, r.lses.NumberOfInputPerceptrons, r.lses.NumberOfOutputPerceptrons, r.rng)
			} else {
				g = reattachRegistry(decoded, registry)
			}
		} else {
			g = neat.NewPrimitiveGenome(registry, r.lses.NumberOfInputPerceptrons, r.lses.NumberOfOutputPerceptrons, r.rng)
		}
		g.Mutate(r.rng)
		r.species.AssignClosestOrNew(g)
	}
}

// reattachRegistry moves a genome decoded against its own scratch
// registry onto the run's shared one, reassigning innovation numbers
// through the shared registry and restoring ascending gene order.
func reattachRegistry(g *neat.Genome, registry *neat.Consultor) *neat.Genome {
	for _, gene := range g.Genes {
		gene.Innovation = registry.Acquire(gene.InNode, gene.OutNode)
	}
	sort.Slice(g.Genes, func(i, j int) bool { return g.Genes[i].Innovation < g.Genes[j].Innovation })
	g.Registry = registry
	return g
}

// ActionGeneration starts a run of n generations. It returns false
// without effect if a run is already in progress.
func (r *Runner) ActionGeneration(n int) bool {
	r.mu.Lock()
	if r.remaining > 0 {
		r.mu.Unlock()
		return false
	}
	r.remaining = n
	r.mu.Unlock()

	r.runGenerations()
	return true
}

// runGenerations drives generations one at a time starting from
// wherever the run currently stands. It loops in place, rather than
// recursing, for every generation that happens to resolve
// synchronously during spawning (agents that call
// FinishCallback.OnFinished immediately from Activate) so stack depth
// never grows with generation count and
// each generation's OnGenerationComplete fires in the order it
// actually finished. A generation that does not resolve synchronously
// arms a timeout and returns; the timeout sweep or a later voluntary
// finish resumes the run by calling this method again.
func (r *Runner) runGenerations() {
	for {
		r.spawnGeneration()
		if !r.tryClaimFinish() {
			r.armTimer()
			return
		}
		if !r.completeGeneration() {
			return
		}
	}
}

// spawnGeneration runs steps 1-3 of the generation lifecycle: notify
// the environment, spawn one agent per network in shuffled order, and
// start the stopwatch.
func (r *Runner) spawnGeneration() {
	r.env.BeforeGeneration()

	r.mu.Lock()
	origins := r.species.AllOrigins()
	r.rng.Shuffle(len(origins), func(i, j int) { origins[i], origins[j] = origins[j], origins[i] })
	ids, _ := r.species.GetSpeciesInfo()
	r.active = make(map[Agent]neat.Origin, len(origins))
	r.stopwatchStart = time.Time{}
	r.spawning = false
	r.finishing = false
	r.mu.Unlock()

	for spawnIndex, origin := range origins {
		specieID := ids[origin.PopulationIndex]
		agent := r.env.CreateAgent(specieID, spawnIndex)

		r.mu.Lock()
		network := r.species.GenomeAt(origin)
		network.SetLifetime(r.elapsed)
		r.active[agent] = origin
		r.mu.Unlock()

		r.safeActivate(agent, specieID, network)
	}

	r.mu.Lock()
	r.stopwatchStart = time.Now()
	r.spawning = true
	r.mu.Unlock()

	r.env.AfterGeneration()
}

// safeActivate calls an agent's Activate, recovering a panic so that
// one broken agent cannot crash the run or wedge the generation: per
// spec.md §7, it is scored 0 and removed exactly as if it had
// finished normally.
func (r *Runner) safeActivate(agent Agent, specieID string, network *neat.Genome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("runner: agent panicked during Activate for specie %s: %v", specieID, rec)
			r.finishAgent(agent, 0)
		}
	}()
	agent.Activate(specieID, r, network)
}

// safeCalculateFitness calls an agent's CalculateFitness, recovering a
// panic into a default fitness of 0 per spec.md §7.
func (r *Runner) safeCalculateFitness(agent Agent) (fitness float64) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("runner: agent panicked during CalculateFitness: %v", rec)
			fitness = 0
		}
	}()
	return agent.CalculateFitness()
}

// safeOnFinished calls an agent's OnFinished, recovering a panic so it
// cannot prevent the generation from completing.
func (r *Runner) safeOnFinished(agent Agent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("runner: agent panicked during OnFinished: %v", rec)
		}
	}()
	agent.OnFinished()
}

// finishAgent records an agent's fitness and removes it from the
// active set under one lock hold, so a second, racing finish for the
// same agent is a no-op, then calls its OnFinished hook. It is the
// common tail shared by voluntary finish, the timeout sweep, and panic
// recovery during Activate.
func (r *Runner) finishAgent(agent Agent, fitness float64) {
	r.mu.Lock()
	origin, ok := r.active[agent]
	if !ok {
		r.mu.Unlock()
		return
	}
	network := r.species.GenomeAt(origin)
	network.Fitness = fitness
	delete(r.active, agent)
	r.mu.Unlock()

	r.safeOnFinished(agent)

	if r.tryClaimFinish() {
		if r.completeGeneration() {
			r.runGenerations()
		}
	}
}

// elapsed is the lifetime accessor installed on every network for the
// duration of a generation: seconds since the stopwatch started, or
// not-ok before it has.
func (r *Runner) elapsed() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopwatchStart.IsZero() {
		return 0, false
	}
	return time.Since(r.stopwatchStart).Seconds(), true
}

func (r *Runner) armTimer() {
	d := time.Duration(r.lses.GenerationTestTime * float64(time.Second))
	r.mu.Lock()
	r.timer = time.AfterFunc(d, r.timeoutSweep)
	r.mu.Unlock()
}

// timeoutSweep fires once, GenerationTestTime after the stopwatch
// started: every agent still registered is finalized, using its own
// reported fitness if CalculateFitness succeeds. Sweep order follows
// map iteration and is not guaranteed, matching spec.md §5's "not
// observable" ordering guarantee.
func (r *Runner) timeoutSweep() {
	r.mu.Lock()
	agents := make([]Agent, 0, len(r.active))
	for a := range r.active {
		agents = append(agents, a)
	}
	r.mu.Unlock()

	for _, a := range agents {
		r.finishAgent(a, r.safeCalculateFitness(a))
	}

	if r.tryClaimFinish() {
		if r.completeGeneration() {
			r.runGenerations()
		}
	}
}

// OnFinished implements FinishCallback: an agent voluntarily reports
// completion. Safe to call from any goroutine; the runner lock makes
// the fitness update atomic.
func (r *Runner) OnFinished(agent Agent) {
	r.finishAgent(agent, r.safeCalculateFitness(agent))
}

// completeGeneration ends the just-completed generation: it cancels
// any pending timeout, captures the overall best network, and
// advances the generation counter and species if more generations
// were requested. It reports whether the caller should spawn another
// generation; it never starts one itself, so callers stay iterative
// instead of recursive.
func (r *Runner) completeGeneration() bool {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	for _, g := range genomesOf(r.species) {
		g.ClearLifetime()
	}
	if best := r.species.BestGenome(); best != nil {
		r.bestGenome = best.Clone()
	}

	r.remaining--
	moreToRun := r.remaining > 0
	finishedGeneration := r.generation
	if moreToRun {
		r.generation++
		r.species.GenerateNewGeneration(r.lses.PopulationSize, r.lses)
	}
	best := r.bestGenome
	r.mu.Unlock()

	if best != nil {
		log.Printf("runner: %s generation finished, best fitness %.4f", humanize.Ordinal(finishedGeneration), best.Fitness)
	}

	r.env.OnGenerationComplete()
	return moreToRun
}

func genomesOf(s *neat.Species) []*neat.Genome {
	all := make([]*neat.Genome, 0)
	for _, pop := range s.Populations {
		all = append(all, pop.Genomes...)
	}
	return all
}

// GetBestNetwork returns a read-only (deep-copied) view of the best
// network from the most recently completed generation, or nil before
// any generation has finished.
func (r *Runner) GetBestNetwork() *neat.Genome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bestGenome
}

// GenerationsRemaining reports how many more generations the current
// run will execute.
func (r *Runner) GenerationsRemaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// GenerationNumber reports the index of the generation currently (or
// most recently) run.
func (r *Runner) GenerationNumber() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// GetSpeciesInfo reports every population's id and member count.
func (r *Runner) GetSpeciesInfo() ([]string, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.species.GetSpeciesInfo()
}

