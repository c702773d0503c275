package agents

// Trait indexes one of the four genome traits.
type Trait uint8

const (
	TraitHonesty Trait = iota
	TraitStubbornness
	TraitInfluenceStrength
	TraitTrustThreshold
)

// NumTraits is the genome length.
const NumTraits = 4

// Traits lists every trait in genome order.
var Traits = [NumTraits]Trait{TraitHonesty, TraitStubbornness, TraitInfluenceStrength, TraitTrustThreshold}

// Genome holds the four latent traits, each in [0,1]. Agents own their genome
// exclusively; copy with Clone, never share the pointer.
type Genome struct {
	Honesty           float64 `json:"honesty"`
	Stubbornness      float64 `json:"stubbornness"`
	InfluenceStrength float64 `json:"influence_strength"`
	TrustThreshold    float64 `json:"trust_threshold"`
}

// Clone returns a deep copy.
func (g *Genome) Clone() *Genome {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

// Get returns one trait value.
func (g *Genome) Get(t Trait) float64 {
	switch t {
	case TraitHonesty:
		return g.Honesty
	case TraitStubbornness:
		return g.Stubbornness
	case TraitInfluenceStrength:
		return g.InfluenceStrength
	case TraitTrustThreshold:
		return g.TrustThreshold
	}
	return 0
}

// Set stores one trait value clamped to [0,1].
func (g *Genome) Set(t Trait, v float64) {
	v = Clamp01(v)
	switch t {
	case TraitHonesty:
		g.Honesty = v
	case TraitStubbornness:
		g.Stubbornness = v
	case TraitInfluenceStrength:
		g.InfluenceStrength = v
	case TraitTrustThreshold:
		g.TrustThreshold = v
	}
}

// Clamp forces every trait back into [0,1].
func (g *Genome) Clamp() {
	for _, t := range Traits {
		g.Set(t, g.Get(t))
	}
}

// Blend moves the listed traits toward other's by rate. With no traits listed
// all four are blended.
func (g *Genome) Blend(other *Genome, rate float64, traits ...Trait) {
	if other == nil {
		return
	}
	if len(traits) == 0 {
		traits = Traits[:]
	}
	for _, t := range traits {
		cur := g.Get(t)
		g.Set(t, cur+(other.Get(t)-cur)*rate)
	}
}
