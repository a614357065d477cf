package constant

const (
	HeuristicRepeatedRewind  = "repeated_rewind"
	HeuristicExcessiveDwell  = "excessive_dwell"
	HeuristicRapidScrollBack = "rapid_scroll_back"
	HeuristicExtendedPause   = "extended_pause"
)

// HeuristicNames is the fixed evaluation order.
var HeuristicNames = []string{
	HeuristicRepeatedRewind,
	HeuristicExcessiveDwell,
	HeuristicRapidScrollBack,
	HeuristicExtendedPause,
}

// DefaultHeuristicWeights are the documented starting weights, identical for every content type.
var DefaultHeuristicWeights = map[string]float64{
	HeuristicRepeatedRewind:  0.4,
	HeuristicExcessiveDwell:  0.3,
	HeuristicRapidScrollBack: 0.2,
	HeuristicExtendedPause:   0.1,
}

// Severity boundaries.
const (
	SeverityMediumThreshold = 0.3
	SeverityHighThreshold   = 0.6
)

// Log modules.
const (
	ModuleWindowManager    = "WindowManager"
	ModuleBaselineStore    = "BaselineStore"
	ModuleWeightController = "WeightController"
	ModulePublisher        = "Publisher"
	ModuleIngestion        = "IngestionService"
	ModuleEngine           = "EngineService"
	ModuleFeedback         = "FeedbackService"
	ModuleScheduler        = "Scheduler"
	ModuleStreamConsumer   = "StreamConsumer"
	ModuleRelay            = "ExplanationRelay"
	ModulePointStream      = "PointStream"
	ModuleBootstrap        = "Bootstrap"
)
