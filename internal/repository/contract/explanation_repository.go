package contract

import "confusion-engine-be/internal/entity"

// ExplanationRepository maps explanation ids to the heuristics that triggered them.
type ExplanationRepository interface {
	Save(explanation entity.Explanation)
	Get(explanationId string) (entity.Explanation, bool)
	Delete(explanationId string)
	Count() int
}
