package dto

import "time"

type HeuristicWeightResponse struct {
	HeuristicName         string    `json:"heuristic_name"`
	ContentType           string    `json:"content_type"`
	Weight                float64   `json:"weight"`
	PositiveFeedbackCount int       `json:"positive_feedback_count"`
	NegativeFeedbackCount int       `json:"negative_feedback_count"`
	LastUpdated           time.Time `json:"last_updated"`
}

type WeightTableResponse struct {
	Version uint64                    `json:"version"`
	Weights []HeuristicWeightResponse `json:"weights"`
}

type BaselineResponse struct {
	SegmentId      string     `json:"segment_id"`
	ContentType    string     `json:"content_type"`
	Kind           string     `json:"kind"` // computed | default
	AvgDwellTimeMs float64    `json:"avg_dwell_time_ms"`
	AvgRewindCount float64    `json:"avg_rewind_count"`
	SampleSize     int        `json:"sample_size"`
	StdDevDwellMs  float64    `json:"std_dev_dwell_ms"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

type RecomputeResponse struct {
	Segments   int    `json:"segments"`
	Recomputed int    `json:"recomputed"`
	Skipped    int    `json:"skipped"`
	Pruned     int    `json:"pruned"`
	Duration   string `json:"duration"`
}

type LaneStatsResponse struct {
	Lane    int   `json:"lane"`
	Depth   int   `json:"depth"`
	Dropped int64 `json:"dropped"`
}

type EngineStatsResponse struct {
	Lanes            []LaneStatsResponse `json:"lanes"`
	ActiveWindows    int                 `json:"active_windows"`
	Evaluations      int64               `json:"evaluations"`
	BudgetMisses     int64               `json:"budget_misses"`
	InvalidEvents    int64               `json:"invalid_events"`
	PointsEmitted    int64               `json:"points_emitted"`
	ScoresEmitted    int64               `json:"scores_emitted"`
	SinkDrops        int64               `json:"sink_drops"`
	WeightVersion    uint64              `json:"weight_version"`
	TrackedBaselines int                 `json:"tracked_baselines"`
}

type ConfusionPointResponse struct {
	Id                   string    `json:"id"`
	SegmentId            string    `json:"segment_id"`
	LearnerId            string    `json:"learner_id"`
	ContentId            string    `json:"content_id"`
	ContentType          string    `json:"content_type"`
	Score                float64   `json:"score"`
	Severity             string    `json:"severity"`
	TriggeringHeuristics []string  `json:"triggering_heuristics"`
	Timestamp            time.Time `json:"timestamp"`
}

type ConfusionPointQuery struct {
	Limit       int    `query:"limit" validate:"gte=0,lte=500"`
	LearnerId   string `query:"learner_id"`
	MinSeverity string `query:"min_severity" validate:"omitempty,oneof=medium high"`
}
