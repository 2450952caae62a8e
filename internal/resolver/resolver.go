// Package resolver centralizes all handling of the "random" placeholder in
// generation parameters. Both the interactive generator and AutoPilot resolve
// through this package, so the two call sites can never diverge.
package resolver

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"kolink-server/internal/models"
)

// Resolver expands random sentinels into concrete enum values at the moment
// of execution. Resolution is a pure transform of its input: non-random
// fields pass through untouched, and resolving an already-resolved set is a
// no-op.
type Resolver struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New создает резолвер с источником случайности от текущего времени.
func New() *Resolver {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed creates a resolver with a deterministic source. Used in tests.
func NewWithSeed(seed int64) *Resolver {
	return &Resolver{rng: rand.New(rand.NewSource(seed))}
}

// Resolve returns a copy of params with every sentinel field replaced by a
// value sampled uniformly from that field's candidate pool, the sentinel
// itself excluded. Topic and audience are never touched here: AutoPilot
// selects its topic per run from its own list.
//
// If a candidate pool is empty after excluding the sentinel, Resolve fails
// closed with models.ErrEmptyResolutionSet - that is a configuration error,
// not something to paper over with a default.
func (r *Resolver) Resolve(params models.GenerationParams) (models.GenerationParams, error) {
	resolved := params

	if resolved.Tone == models.ToneRandom {
		v, err := pick(r, models.TonePool)
		if err != nil {
			return models.GenerationParams{}, fmt.Errorf("resolving tone: %w", err)
		}
		resolved.Tone = v
	}
	if resolved.Framework == models.FrameworkRandom {
		v, err := pick(r, models.FrameworkPool)
		if err != nil {
			return models.GenerationParams{}, fmt.Errorf("resolving framework: %w", err)
		}
		resolved.Framework = v
	}
	if resolved.Length == models.LengthRandom {
		v, err := pick(r, models.LengthPool)
		if err != nil {
			return models.GenerationParams{}, fmt.Errorf("resolving length: %w", err)
		}
		resolved.Length = v
	}
	if resolved.EmojiDensity == models.EmojiRandom {
		v, err := pick(r, models.EmojiPool)
		if err != nil {
			return models.GenerationParams{}, fmt.Errorf("resolving emoji density: %w", err)
		}
		resolved.EmojiDensity = v
	}
	if resolved.HookStyle == models.HookRandom {
		v, err := pick(r, models.HookPool)
		if err != nil {
			return models.GenerationParams{}, fmt.Errorf("resolving hook style: %w", err)
		}
		resolved.HookStyle = v
	}

	return resolved, nil
}

// PickTopic selects one topic uniformly at random for an AutoPilot run.
// Repeats across runs are acceptable; rotation without repeats is not
// guaranteed.
func (r *Resolver) PickTopic(topics []string) (string, error) {
	if len(topics) == 0 {
		return "", fmt.Errorf("%w: topic list is empty", models.ErrInvalidConfig)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return topics[r.rng.Intn(len(topics))], nil
}

// pick samples uniformly from pool with the sentinel filtered out.
func pick[T ~string](r *Resolver, pool []T) (T, error) {
	candidates := make([]T, 0, len(pool))
	for _, v := range pool {
		if string(v) != models.RandomSentinel {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		var zero T
		return zero, models.ErrEmptyResolutionSet
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return candidates[r.rng.Intn(len(candidates))], nil
}
