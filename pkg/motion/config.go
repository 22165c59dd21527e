package motion

import "time"

// Config controls path following. Rates are per nominal 60 fps frame and
// are rescaled to the actual tick length.
type Config struct {
	BaseSpeed     float64 // segment fraction advanced per frame on a straight
	BaseRotRate   float64 // heading blend per frame
	RecenterBlend float64 // pedestrians: pull toward the segment per frame
}

// DefaultVehicleConfig returns the vehicle motion parameters.
func DefaultVehicleConfig() Config {
	return Config{
		BaseSpeed:   0.004,
		BaseRotRate: 0.12,
	}
}

// PedestrianConfig controls crowd agents.
type PedestrianConfig struct {
	Motion        Config
	MaxAttempts   int           // destination draws per route pick
	RetryInterval time.Duration // wait before an idle pedestrian tries again
	AdvisoryAfter int           // failed picks before an advisory is raised
}

// DefaultPedestrianConfig returns the crowd parameters.
func DefaultPedestrianConfig() PedestrianConfig {
	return PedestrianConfig{
		Motion: Config{
			BaseSpeed:     0.003,
			BaseRotRate:   0.12,
			RecenterBlend: 0.3,
		},
		MaxAttempts:   30,
		RetryInterval: time.Second,
		AdvisoryAfter: 5,
	}
}

// AvoidanceConfig controls pairwise pedestrian avoidance.
type AvoidanceConfig struct {
	MinDist       float64 // comfortable separation
	DetectRadius  float64 // pairs farther apart are ignored
	MinSeparation float64 // pairs closer than this are treated as coincident and skipped
	AvoidForce    float64
	LateralGain   float64
	PushGain      float64
	SlowFloor     float64 // lowest speed factor avoidance can impose
	ReturnRate    float64 // avoid bias kept per frame
	SpeedRecover  float64 // speed factor recovery per frame
	TimerDecay    float64 // avoid timer decrease per second
}

// DefaultAvoidanceConfig returns the avoidance parameters.
func DefaultAvoidanceConfig() AvoidanceConfig {
	return AvoidanceConfig{
		MinDist:       0.2,
		DetectRadius:  0.6,
		MinSeparation: 1e-4,
		AvoidForce:    0.1,
		LateralGain:   1.5,
		PushGain:      0.5,
		SlowFloor:     0.6,
		ReturnRate:    0.9,
		SpeedRecover:  0.1,
		TimerDecay:    1.2,
	}
}
