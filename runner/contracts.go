// Package runner drives one generation of a NEAT run: it instantiates
// an agent per network, lets each agent act against an environment
// for a bounded window, collects fitness, and hands the result back
// to the species manager for reproduction.
package runner

import (
	"github.com/briarwood/neatcore/neat"
)

// Agent is driven by a runner for exactly one generation window. It
// is activated once with the network it must evaluate, and may call
// its finish callback at any time to score itself early.
type Agent interface {
	// Activate is called once with the specie this agent's network
	// belongs to, a callback the agent may use to finish early, and
	// the network itself.
	Activate(specieID string, finish FinishCallback, network *neat.Genome)
	// CalculateFitness is called by the runner at generation timeout
	// for any agent that has not already finished voluntarily.
	CalculateFitness() float64
	// OnFinished is called once, exactly once, after fitness has been
	// recorded, either because the agent called FinishCallback.OnFinished
	// itself, or because the runner's timeout swept it up.
	OnFinished()
}

// FinishCallback lets an agent voluntarily end its evaluation before
// the generation's timeout fires. Implementations must be safe to
// call from any goroutine.
type FinishCallback interface {
	OnFinished(agent Agent)
}

// Environment supplies the runner with agents and observes generation
// boundaries.
type Environment interface {
	BeforeGeneration()
	CreateAgent(specieID string, spawnIndex int) Agent
	AfterGeneration()
	OnGenerationComplete()
}
