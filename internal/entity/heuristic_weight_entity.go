// FILE: internal/entity/heuristic_weight_entity.go
package entity

import "time"

type HeuristicWeight struct {
	HeuristicName         string
	ContentType           ContentType
	Weight                float64
	PositiveFeedbackCount int
	NegativeFeedbackCount int
	LastUpdated           time.Time
}

type HeuristicResult struct {
	HeuristicName string
	Weight        float64
	Contribution  float64
	Triggered     bool
}
