package catalog

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/orinaya/animochi-backend/internal/model"
)

var ErrTemplateNotFound = errors.New("quest template not found")

// lockedSource guards a rand source so one generator can serve concurrent
// request goroutines.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// NewRand returns a seeded generator safe for concurrent use.
func NewRand(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})
}

// Catalog is an immutable set of quest templates. The catalog itself is
// owned by the content pipeline; the core only selects and looks up.
type Catalog struct {
	templates []model.QuestTemplate
}

func New(templates []model.QuestTemplate) *Catalog {
	ts := make([]model.QuestTemplate, len(templates))
	copy(ts, templates)
	return &Catalog{templates: ts}
}

func Default() *Catalog {
	return New(defaultTemplates)
}

func (c *Catalog) Templates() []model.QuestTemplate {
	ts := make([]model.QuestTemplate, len(c.templates))
	copy(ts, c.templates)
	return ts
}

// Lookup resolves a template by id and target count, falling back to the
// first template of the same type when the exact pair is gone from the
// catalog (content updates may rotate ids between deployments).
func (c *Catalog) Lookup(id uuid.UUID, questType model.QuestType, targetCount int) (model.QuestTemplate, error) {
	for _, t := range c.templates {
		if t.ID == id && t.TargetCount == targetCount {
			return t, nil
		}
	}
	for _, t := range c.templates {
		if t.Type == questType {
			return t, nil
		}
	}
	return model.QuestTemplate{}, ErrTemplateNotFound
}

// Select returns n distinct templates drawn at random. When the catalog
// holds fewer than n templates, all of them are returned.
func (c *Catalog) Select(n int, rng *rand.Rand) []model.QuestTemplate {
	if n >= len(c.templates) {
		return c.Templates()
	}

	perm := rng.Perm(len(c.templates))
	picked := make([]model.QuestTemplate, n)
	for i := 0; i < n; i++ {
		picked[i] = c.templates[perm[i]]
	}
	return picked
}

var defaultTemplates = []model.QuestTemplate{
	{
		ID:          uuid.MustParse("6ff44a30-60e8-47d3-a58a-491bd7954601"),
		Type:        model.QuestFeedCreature,
		Title:       "Feeding time",
		Description: "Feed your animochi 3 times",
		Icon:        "bowl",
		TargetCount: 3,
		Reward:      50,
	},
	{
		ID:          uuid.MustParse("9f0f12dc-2a4e-4e62-8a05-1c3745cf0b02"),
		Type:        model.QuestEvolveCreature,
		Title:       "Next form",
		Description: "Make your animochi evolve once",
		Icon:        "sparkles",
		TargetCount: 1,
		Reward:      120,
	},
	{
		ID:          uuid.MustParse("b0a2f53e-7a4f-4a8a-9a56-0db9c0a3ae03"),
		Type:        model.QuestInteractWithMultiple,
		Title:       "Social butterfly",
		Description: "Interact with 5 different animochis",
		Icon:        "chat",
		TargetCount: 5,
		Reward:      80,
	},
	{
		ID:          uuid.MustParse("1f4fc1be-08aa-49ff-8f55-d60c4f5cde04"),
		Type:        model.QuestBuyAccessory,
		Title:       "Dress up",
		Description: "Buy an accessory from the shop",
		Icon:        "hat",
		TargetCount: 1,
		Reward:      60,
	},
	{
		ID:          uuid.MustParse("c86b8c15-9dd4-45da-9c41-38b1f6ab5b05"),
		Type:        model.QuestMakePublic,
		Title:       "Show off",
		Description: "Make your animochi public",
		Icon:        "globe",
		TargetCount: 1,
		Reward:      40,
	},
	{
		ID:          uuid.MustParse("4a0de5cd-66ed-42d1-9d39-6a1f3f0f2c06"),
		Type:        model.QuestCustomize,
		Title:       "Fresh look",
		Description: "Customize your animochi twice",
		Icon:        "palette",
		TargetCount: 2,
		Reward:      70,
	},
	{
		ID:          uuid.MustParse("e93a2a47-31fd-4b6a-bb2b-4d9e2a8a9107"),
		Type:        model.QuestVisitGallery,
		Title:       "Sightseeing",
		Description: "Visit the public gallery",
		Icon:        "frame",
		TargetCount: 1,
		Reward:      30,
	},
	{
		ID:          uuid.MustParse("7d8e8f90-5ff0-4cbb-9a12-fc3d2a1b4d08"),
		Type:        model.QuestLoginStreak,
		Title:       "Daily visit",
		Description: "Log in today",
		Icon:        "calendar",
		TargetCount: 1,
		Reward:      25,
	},
}
