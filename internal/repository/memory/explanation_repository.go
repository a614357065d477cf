package memory

import (
	"time"

	"confusion-engine-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

type ExplanationRepository struct {
	cache *cache.Cache
}

// NewExplanationRepository keeps explanations for ttl; feedback arriving later
// than that can no longer be attributed.
func NewExplanationRepository(ttl time.Duration) *ExplanationRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &ExplanationRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *ExplanationRepository) Save(explanation entity.Explanation) {
	r.cache.Set(explanation.ExplanationId, explanation, cache.DefaultExpiration)
}

func (r *ExplanationRepository) Get(explanationId string) (entity.Explanation, bool) {
	if x, found := r.cache.Get(explanationId); found {
		return x.(entity.Explanation), true
	}
	return entity.Explanation{}, false
}

func (r *ExplanationRepository) Delete(explanationId string) {
	r.cache.Delete(explanationId)
}

func (r *ExplanationRepository) Count() int {
	return r.cache.ItemCount()
}
