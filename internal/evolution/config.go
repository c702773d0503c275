package evolution

// Config groups the tunables of every strategy.
type Config struct {
	Genetic    GeneticConfig    `yaml:"genetic"`
	GameTheory GameTheoryConfig `yaml:"game_theory"`
	Cultural   CulturalConfig   `yaml:"cultural"`
	Hybrid     HybridConfig     `yaml:"hybrid"`
}

// DefaultConfig returns the tuned defaults for all strategies.
func DefaultConfig() Config {
	return Config{
		Genetic:    DefaultGeneticConfig(),
		GameTheory: DefaultGameTheoryConfig(),
		Cultural:   DefaultCulturalConfig(),
		Hybrid:     DefaultHybridConfig(),
	}
}

// GeneticConfig controls selection, reproduction and fitness aging.
type GeneticConfig struct {
	GenerationLength int     `yaml:"generation_length"` // Ticks per epoch
	MutationRate     float64 `yaml:"mutation_rate"`     // Per-trait probability
	MutationAmount   float64 `yaml:"mutation_amount"`   // Uniform noise half-width
	SurvivalRate     float64 `yaml:"survival_rate"`
	InheritFraction  float64 `yaml:"inherit_fraction"` // Share of parental average fitness given to offspring

	StubbornBonus float64 `yaml:"stubborn_bonus"` // Fitness per tick for stubborn agents

	DecayInterval int     `yaml:"decay_interval"`
	DecayBase     float64 `yaml:"decay_base"`   // Decay fraction for the current generation
	DecayGrowth   float64 `yaml:"decay_growth"` // Multiplier per generation of age

	InteractionReward float64 `yaml:"interaction_reward"`
	StubbornRate      float64 `yaml:"stubborn_rate"` // Belief blend when the receiver is stubborn

	LearnInterval  int     `yaml:"learn_interval"`
	LearnRadius    float64 `yaml:"learn_radius"`
	LearnThreshold float64 `yaml:"learn_threshold"` // Agents below this fitness look for role models
	LearnMargin    float64 `yaml:"learn_margin"`
	LearnBlend     float64 `yaml:"learn_blend"`
}

// DefaultGeneticConfig returns the standard genetic parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		GenerationLength:  300,
		MutationRate:      0.1,
		MutationAmount:    0.1,
		SurvivalRate:      0.5,
		InheritFraction:   0.5,
		StubbornBonus:     0.022,
		DecayInterval:     60,
		DecayBase:         0.005,
		DecayGrowth:       2.5,
		InteractionReward: 0.1,
		StubbornRate:      0.01,
		LearnInterval:     100,
		LearnRadius:       100,
		LearnThreshold:    5,
		LearnMargin:       3,
		LearnBlend:        0.3,
	}
}

// GameTheoryConfig holds the Prisoner's Dilemma matrix and fitness upkeep.
type GameTheoryConfig struct {
	Temptation float64 `yaml:"temptation"`
	Reward     float64 `yaml:"reward"`
	Punishment float64 `yaml:"punishment"`
	Sucker     float64 `yaml:"sucker"`

	BlendRate    float64 `yaml:"blend_rate"`
	StubbornRate float64 `yaml:"stubborn_rate"`

	DecayInterval int     `yaml:"decay_interval"`
	DecayRate     float64 `yaml:"decay_rate"`

	// Strategic adaptation: agents copy the category of better-paid neighbours.
	Adaptation      bool    `yaml:"adaptation"`
	AdaptInterval   int     `yaml:"adapt_interval"`
	AdaptRadius     float64 `yaml:"adapt_radius"`
	AdaptMinHistory int     `yaml:"adapt_min_history"`
	AdaptMargin     float64 `yaml:"adapt_margin"`
	AdoptionBlend   float64 `yaml:"adoption_blend"`
}

// DefaultGameTheoryConfig returns T=5, R=3, P=1, S=0 with adaptation on.
func DefaultGameTheoryConfig() GameTheoryConfig {
	return GameTheoryConfig{
		Temptation:      5,
		Reward:          3,
		Punishment:      1,
		Sucker:          0,
		BlendRate:       0.08,
		StubbornRate:    0.05,
		DecayInterval:   10,
		DecayRate:       0.95,
		Adaptation:      true,
		AdaptInterval:   200,
		AdaptRadius:     100,
		AdaptMinHistory: 10,
		AdaptMargin:     1,
		AdoptionBlend:   0.75,
	}
}

// CulturalConfig controls persuasion, conviction decay and peer conversion.
type CulturalConfig struct {
	BeliefDecayRate    float64 `yaml:"belief_decay_rate"`
	SocialLearningRate float64 `yaml:"social_learning_rate"`

	TransferScale      float64 `yaml:"transfer_scale"` // Fraction of transfer strength applied to colour
	StubbornResistance float64 `yaml:"stubborn_resistance"`
	DistrustFactor     float64 `yaml:"distrust_factor"`
	SenderGain         float64 `yaml:"sender_gain"`
	ReceiverLoss       float64 `yaml:"receiver_loss"` // Multiplier on a persuaded receiver's conviction
	ResistGain         float64 `yaml:"resist_gain"`
	ConversionDistance float64 `yaml:"conversion_distance"`

	ConversionInterval  int     `yaml:"conversion_interval"`
	ConversionRadius    float64 `yaml:"conversion_radius"`
	ConversionMinPeers  int     `yaml:"conversion_min_peers"`
	ConversionMajority  float64 `yaml:"conversion_majority"`
	ConversionWeakBelow float64 `yaml:"conversion_weak_below"`
	StubbornExemptAbove float64 `yaml:"stubborn_exempt_above"`
	AdoptionBlend       float64 `yaml:"adoption_blend"`
}

// DefaultCulturalConfig returns the standard cultural parameters.
func DefaultCulturalConfig() CulturalConfig {
	return CulturalConfig{
		BeliefDecayRate:     0.002,
		SocialLearningRate:  0.1,
		TransferScale:       0.3,
		StubbornResistance:  10,
		DistrustFactor:      1.5,
		SenderGain:          0.05,
		ReceiverLoss:        0.8,
		ResistGain:          0.02,
		ConversionDistance:  50,
		ConversionInterval:  120,
		ConversionRadius:    80,
		ConversionMinPeers:  3,
		ConversionMajority:  0.6,
		ConversionWeakBelow: 0.4,
		StubbornExemptAbove: 0.7,
		AdoptionBlend:       0.75,
	}
}

// HybridConfig couples cultural success into genetic fitness.
type HybridConfig struct {
	SuccessThreshold float64 `yaml:"success_threshold"`
	SenderBonus      float64 `yaml:"sender_bonus"`
	ReceiverPenalty  float64 `yaml:"receiver_penalty"`
}

// DefaultHybridConfig returns the standard coupling.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		SuccessThreshold: 0.5,
		SenderBonus:      1,
		ReceiverPenalty:  0.5,
	}
}
