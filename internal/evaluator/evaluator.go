package evaluator

import (
	"fmt"
	"sync"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/market"
)

// Signal is one qualified finding for a ticker. Score is always within
// [0,100]. Metrics carries only values that were actually derived from
// the series; an unavailable metric is absent, never a placeholder.
type Signal struct {
	Ticker      string             `json:"ticker"`
	Evaluator   string             `json:"evaluator"`
	Score       float64            `json:"score"`
	Label       string             `json:"label"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
}

// Evaluator scores one ticker's series against a fixed parameter set.
// Evaluate is a pure function of the series and the parameters bound at
// construction; a nil signal with a nil error means "no finding".
type Evaluator interface {
	Name() string
	Requirements() (minRows int, required []market.Field)
	Evaluate(ticker string, series market.Series) (*Signal, error)
}

// Registry holds named evaluators. Registration order is preserved so
// scan output stays deterministic.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Evaluator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Evaluator)}
}

// Register adds an evaluator under its name.
func (r *Registry) Register(e Evaluator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("evaluator %q already registered", name)
	}
	r.byName[name] = e
	r.order = append(r.order, name)
	return nil
}

// Get returns the evaluator registered under name.
func (r *Registry) Get(name string) (Evaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	return e, ok
}

// Names returns evaluator names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// clampScore clips a raw score into the [0,100] signal range.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
