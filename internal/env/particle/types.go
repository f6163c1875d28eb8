package particle

// #region config
// Config holds the world constants of the decentralized safe-navigation scenario.
type Config struct {
	NumAgents    int     `yaml:"num_agents"`
	AgentSize    float64 `yaml:"agent_size"`    // collision radius
	LandmarkSize float64 `yaml:"landmark_size"` // drawn radius only
	SafeDistance float64 `yaml:"safe_distance"` // constraint slack is dist - SafeDistance
	GoalRadius   float64 `yaml:"goal_radius"`   // agent is done inside this radius of its landmark
	Dt           float64 `yaml:"dt"`
	Damping      float64 `yaml:"damping"`
	Sensitivity  float64 `yaml:"sensitivity"` // force scale applied to actions
	MaxSpeed     float64 `yaml:"max_speed"`
	FrameSize    int     `yaml:"frame_size"` // rendered frame edge in pixels
	Seed         uint64  `yaml:"seed"`
}

// DefaultConfig returns the three-agent reference world.
func DefaultConfig() Config {
	return Config{
		NumAgents:    3,
		AgentSize:    0.15,
		LandmarkSize: 0.05,
		SafeDistance: 0.4,
		GoalRadius:   0.1,
		Dt:           0.1,
		Damping:      0.25,
		Sensitivity:  5.0,
		MaxSpeed:     1.0,
		FrameSize:    400,
		Seed:         1,
	}
}

// #endregion config

// #region layout
const (
	velOffset      = 0
	posOffset      = 2
	landmarkOffset = 4
	othersOffset   = 6
	actDim         = 2
)

// stateDim is the observation width for n agents.
func stateDim(n int) int {
	return othersOffset + 2*(n-1)
}

// #endregion layout

// #region bodies
type body struct {
	pos  [2]float64
	vel  [2]float64
	size float64
}

// #endregion bodies
