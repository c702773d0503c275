package evolution

import (
	"gonum.org/v1/gonum/stat"

	"github.com/talgya/belief-swarm/internal/agents"
)

// StrongBelief is the conviction above which a belief counts as strong.
const StrongBelief = 0.7

// Stats is the read-only aggregate consumed by reporting. Every average is
// zero for an empty population.
type Stats struct {
	Strategy   string `json:"strategy"`
	Population int    `json:"population"`
	Generation int    `json:"generation"`

	Honest   int `json:"honest"`
	Liars    int `json:"liars"`
	Stubborn int `json:"stubborn"`

	AvgFitness        float64 `json:"avg_fitness"`
	AvgBeliefStrength float64 `json:"avg_belief_strength"`
	StrongBeliefs     int     `json:"strong_beliefs"`

	Consensus      float64 `json:"consensus"`       // Mean lie score
	BeliefVariance float64 `json:"belief_variance"` // Population variance of the lie score
	Diversity      float64 `json:"diversity"`       // Mean colour distance from the centroid belief

	HonestyVariance float64 `json:"honesty_variance"` // Over agents with a genome

	AvgPayoffHonest   float64 `json:"avg_payoff_honest"`
	AvgPayoffLiar     float64 `json:"avg_payoff_liar"`
	AvgPayoffStubborn float64 `json:"avg_payoff_stubborn"`
	Interactions      int     `json:"interactions"`
	Conversions       int     `json:"conversions"`
}

// Summarize computes the strategy-independent aggregate.
func Summarize(pop []*agents.Agent) Stats {
	s := Stats{Strategy: string(KindNone), Population: len(pop)}
	if len(pop) == 0 {
		return s
	}

	lies := make([]float64, 0, len(pop))
	var honesty []float64
	var centroid agents.Color
	var payoffSum [agents.NumTypes]float64
	var payoffN [agents.NumTypes]int
	var fitness, strength float64

	for _, a := range pop {
		switch a.Type {
		case agents.TypeHonest:
			s.Honest++
		case agents.TypeLiar:
			s.Liars++
		case agents.TypeStubborn:
			s.Stubborn++
		}
		fitness += a.Fitness
		strength += a.BeliefStrength
		if a.BeliefStrength > StrongBelief {
			s.StrongBeliefs++
		}
		lies = append(lies, a.Color.LieScore())
		centroid.R += a.Color.R
		centroid.G += a.Color.G
		centroid.B += a.Color.B
		if a.Genome != nil {
			honesty = append(honesty, a.Genome.Honesty)
		}
		if a.Game != nil {
			s.Interactions += a.Game.InteractionCount
			if a.PayoffCount() > 0 && int(a.Type) < agents.NumTypes {
				payoffSum[a.Type] += a.AveragePayoff()
				payoffN[a.Type]++
			}
		}
		s.Conversions += a.Conversions()
	}

	n := float64(len(pop))
	s.AvgFitness = fitness / n
	s.AvgBeliefStrength = strength / n
	s.Consensus, s.BeliefVariance = meanVariance(lies)
	_, s.HonestyVariance = meanVariance(honesty)

	centroid = agents.Color{R: centroid.R / n, G: centroid.G / n, B: centroid.B / n}
	dist := make([]float64, len(pop))
	for i, a := range pop {
		dist[i] = a.Color.Distance(centroid)
	}
	s.Diversity = stat.Mean(dist, nil)

	s.AvgPayoffHonest = ratio(payoffSum[agents.TypeHonest], payoffN[agents.TypeHonest])
	s.AvgPayoffLiar = ratio(payoffSum[agents.TypeLiar], payoffN[agents.TypeLiar])
	s.AvgPayoffStubborn = ratio(payoffSum[agents.TypeStubborn], payoffN[agents.TypeStubborn])
	return s
}

// meanVariance is the population mean and variance, zero below two samples.
func meanVariance(x []float64) (mean, variance float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.PopMeanVariance(x, nil)
}

func ratio(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
