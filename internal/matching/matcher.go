package matching

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/optiplanhq/matchd/internal/embeddings"
	"github.com/optiplanhq/matchd/internal/vectorstore"
)

var matcherTracer = otel.Tracer("matchd.matching")

// MatcherConfig holds matcher tunables.
type MatcherConfig struct {
	// Overfetch multiplies topK for each per-facet store query so the
	// post-aggregation ranking has enough candidates to cut from.
	Overfetch int

	// FacetConcurrency bounds concurrent facet queries per call.
	FacetConcurrency int
}

// Matcher ranks users for tasks and tasks for users.
//
// Each call runs one similarity query per facet, concurrently, then
// folds the hits into a weighted mean per candidate:
//
//	matchScore = sum(similarity*facetWeight) / sum(facetWeight)
//
// over the facets that hit the candidate. A zero-similarity result does
// not count as a hit. Coverage (the fraction of facets with a hit) is
// reported separately, not folded into the score. Candidates with zero
// hits are excluded. Ranking is deterministic:
// score desc, coverage desc, entity id asc.
type Matcher struct {
	store    vectorstore.Store
	embedder embeddings.Provider
	config   MatcherConfig
	logger   *zap.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(store vectorstore.Store, embedder embeddings.Provider, cfg MatcherConfig, logger *zap.Logger) *Matcher {
	if cfg.Overfetch <= 0 {
		cfg.Overfetch = 3
	}
	if cfg.FacetConcurrency <= 0 {
		cfg.FacetConcurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{store: store, embedder: embedder, config: cfg, logger: logger}
}

// facet is one query unit: a skill name rendered as query text plus its
// weight. Duplicate skill names stay separate facets and each count
// toward coverage independently.
type facet struct {
	name      string
	queryText string
	weight    float64
}

// candidate accumulates hits for one entity across facets.
type candidate struct {
	id        string
	metadata  map[string]interface{}
	scoreSum  float64
	weightSum float64
	facetsHit int
}

// MatchUsersForTask ranks users for a task by querying the user-skills
// namespace once per required skill. A non-empty candidateUserIDs
// restricts hits to those users. topK == 0 returns no matches and
// issues no queries.
func (m *Matcher) MatchUsersForTask(ctx context.Context, task Task, candidateUserIDs []string, topK int) ([]UserMatch, error) {
	ctx, span := matcherTracer.Start(ctx, "Matcher.MatchUsersForTask")
	defer span.End()
	span.SetAttributes(
		attribute.String("task_id", task.TaskID),
		attribute.Int("top_k", topK),
		attribute.Int("facets", len(task.RequiredSkills)),
	)

	start := time.Now()
	matches, err := m.matchUsersForTask(ctx, task, candidateUserIDs, topK)
	recordMatch("users_for_task", time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

func (m *Matcher) matchUsersForTask(ctx context.Context, task Task, candidateUserIDs []string, topK int) ([]UserMatch, error) {
	if topK < 0 {
		return nil, fmt.Errorf("topK cannot be negative, got %d", topK)
	}
	if topK == 0 {
		return []UserMatch{}, nil
	}

	facets := make([]facet, 0, len(task.RequiredSkills))
	for _, s := range task.RequiredSkills {
		if s.Name == "" {
			m.logger.Warn("skipping unnamed required skill", zap.String("task_id", task.TaskID))
			continue
		}
		facets = append(facets, facet{
			name:      s.Name,
			queryText: SkillQueryText(s.Name, s.Category),
			weight:    RequiredSkillWeight(s),
		})
	}
	if len(facets) == 0 {
		return []UserMatch{}, nil
	}

	var filter map[string]interface{}
	if len(candidateUserIDs) > 0 {
		filter = map[string]interface{}{"user_id": candidateUserIDs}
	}

	hits, err := m.queryFacets(ctx, "users_for_task", NamespaceUserSkills, facets, topK, filter)
	if err != nil {
		return nil, err
	}

	candidates := aggregate(hits, facets, "user_id")
	ranked := rank(candidates, topK)

	matches := make([]UserMatch, len(ranked))
	for i, c := range ranked {
		matches[i] = UserMatch{
			UserID:        c.id,
			Name:          metaString(c.metadata, "user_name"),
			MatchScore:    c.scoreSum / c.weightSum,
			SkillCoverage: float64(c.facetsHit) / float64(len(facets)),
		}
	}
	return matches, nil
}

// MatchTasksForUser ranks tasks for a user by querying the tasks
// namespace once per held skill.
func (m *Matcher) MatchTasksForUser(ctx context.Context, user User, topK int) ([]TaskMatch, error) {
	ctx, span := matcherTracer.Start(ctx, "Matcher.MatchTasksForUser")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", user.ID),
		attribute.Int("top_k", topK),
		attribute.Int("facets", len(user.Skills)),
	)

	start := time.Now()
	matches, err := m.matchTasksForUser(ctx, user, topK)
	recordMatch("tasks_for_user", time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

func (m *Matcher) matchTasksForUser(ctx context.Context, user User, topK int) ([]TaskMatch, error) {
	if topK < 0 {
		return nil, fmt.Errorf("topK cannot be negative, got %d", topK)
	}
	if topK == 0 {
		return []TaskMatch{}, nil
	}

	facets := make([]facet, 0, len(user.Skills))
	for _, s := range user.Skills {
		if s.Name == "" {
			m.logger.Warn("skipping unnamed skill", zap.String("user_id", user.ID))
			continue
		}
		facets = append(facets, facet{
			name:      s.Name,
			queryText: SkillQueryText(s.Name, s.Category),
			weight:    HeldSkillWeight(s),
		})
	}
	if len(facets) == 0 {
		return []TaskMatch{}, nil
	}

	hits, err := m.queryFacets(ctx, "tasks_for_user", NamespaceTasks, facets, topK, nil)
	if err != nil {
		return nil, err
	}

	candidates := aggregate(hits, facets, "task_id")
	ranked := rank(candidates, topK)

	matches := make([]TaskMatch, len(ranked))
	for i, c := range ranked {
		matches[i] = TaskMatch{
			TaskID:        c.id,
			Name:          metaString(c.metadata, "task_name"),
			MatchScore:    c.scoreSum / c.weightSum,
			SkillCoverage: float64(c.facetsHit) / float64(len(facets)),
			MinComplexity: metaInt(c.metadata, "min_complexity"),
			TimeEstimate:  metaFloat(c.metadata, "time_estimate"),
		}
	}
	return matches, nil
}

// queryFacets embeds and runs every facet query concurrently, bounded
// by the configured concurrency. Any facet failure fails the call; a
// partial ranking would be silently wrong.
func (m *Matcher) queryFacets(ctx context.Context, direction, namespace string, facets []facet, topK int, filter map[string]interface{}) ([][]vectorstore.QueryResult, error) {
	overfetchK := topK * m.config.Overfetch
	hits := make([][]vectorstore.QueryResult, len(facets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.FacetConcurrency)

	for i, f := range facets {
		g.Go(func() error {
			facetQueries.WithLabelValues(direction).Inc()

			vector, err := m.embedder.EmbedQuery(gctx, f.queryText)
			if err != nil {
				// Degraded zero vectors are fatal here: they would rank
				// candidates by noise.
				return fmt.Errorf("embedding facet %q: %w", f.name, err)
			}
			results, err := m.store.Query(gctx, namespace, vector, overfetchK, filter)
			if err != nil {
				return fmt.Errorf("querying facet %q: %w", f.name, err)
			}
			hits[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hits, nil
}

// aggregate folds per-facet hits into per-candidate accumulators. Within
// one facet only the best hit per candidate counts (a user matching a
// facet with three of their skills is still one facet hit). A result
// with zero similarity is not a hit at all: counting it would add the
// facet's full weight to the mean's denominator and inflate coverage.
func aggregate(hits [][]vectorstore.QueryResult, facets []facet, idKey string) map[string]*candidate {
	candidates := make(map[string]*candidate)
	for i, results := range hits {
		seen := make(map[string]bool, len(results))
		for _, r := range results {
			if r.Score == 0 {
				continue
			}
			id := metaString(r.Metadata, idKey)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true

			c := candidates[id]
			if c == nil {
				c = &candidate{id: id, metadata: r.Metadata}
				candidates[id] = c
			}
			c.scoreSum += float64(r.Score) * facets[i].weight
			c.weightSum += facets[i].weight
			c.facetsHit++
		}
	}
	return candidates
}

// rank orders candidates deterministically and truncates to topK.
func rank(candidates map[string]*candidate, topK int) []*candidate {
	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si := ranked[i].scoreSum / ranked[i].weightSum
		sj := ranked[j].scoreSum / ranked[j].weightSum
		if si != sj {
			return si > sj
		}
		if ranked[i].facetsHit != ranked[j].facetsHit {
			return ranked[i].facetsHit > ranked[j].facetsHit
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func metaString(meta map[string]interface{}, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(meta map[string]interface{}, key string) int {
	switch v := meta[key].(type) {
	case string:
		n, _ := strconv.Atoi(v)
		return n
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func metaFloat(meta map[string]interface{}, key string) float64 {
	switch v := meta[key].(type) {
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
