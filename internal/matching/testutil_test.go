package matching

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/optiplanhq/matchd/internal/embeddings"
	"github.com/optiplanhq/matchd/internal/scope"
	"github.com/optiplanhq/matchd/internal/vectorstore"
)

const testDim = 32

// hashEmbedder is a deterministic bag-of-tokens embedder. Texts sharing
// tokens get positive cosine similarity, which is enough to verify
// aggregation, ranking, and coverage without a real model.
type hashEmbedder struct{}

func (e *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = tokenVector(text)
	}
	return vectors, nil
}

func (e *hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return tokenVector(text), nil
}

func (e *hashEmbedder) Dimension() int { return testDim }
func (e *hashEmbedder) Close() error   { return nil }

func tokenVector(text string) []float32 {
	vec := make([]float32, testDim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%testDim]++
	}
	return vec
}

// keywordEmbedder maps every text onto a fixed direction by skill
// keyword. Facet similarities come out exact (React 1.0, Node.js 0.6,
// anything else orthogonal), so tests can assert weighted means and
// coverage to the digit.
type keywordEmbedder struct{}

func (e *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.docVector(text)
	}
	return vectors, nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, testDim)
	switch {
	case strings.Contains(text, "React"):
		vec[0] = 1
	case strings.Contains(text, "Node.js"):
		vec[1] = 1
	default:
		vec[3] = 1
	}
	return vec, nil
}

// docVector puts Node.js documents off-axis so the Node.js facet sees a
// 0.6 similarity instead of a perfect hit.
func (e *keywordEmbedder) docVector(text string) []float32 {
	vec := make([]float32, testDim)
	switch {
	case strings.Contains(text, "React"):
		vec[0] = 1
	case strings.Contains(text, "Node.js"):
		vec[1] = 0.6
		vec[2] = 0.8
	default:
		vec[3] = 1
	}
	return vec
}

func (e *keywordEmbedder) Dimension() int { return testDim }
func (e *keywordEmbedder) Close() error   { return nil }

// degradedEmbedder always falls back to zero vectors.
type degradedEmbedder struct{}

func (e *degradedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	failed := make([]int, len(texts))
	for i := range texts {
		vectors[i] = embeddings.ZeroVector(testDim)
		failed[i] = i
	}
	return vectors, &embeddings.DegradedError{Failed: failed, Err: errors.New("quota exhausted")}
}

func (e *degradedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return embeddings.ZeroVector(testDim), &embeddings.DegradedError{Failed: []int{0}, Err: errors.New("quota exhausted")}
}

func (e *degradedEmbedder) Dimension() int { return testDim }
func (e *degradedEmbedder) Close() error   { return nil }

// failingStore errors on Query to exercise facet-failure propagation.
type failingStore struct {
	vectorstore.Store
}

func (s *failingStore) Query(context.Context, string, []float32, int, map[string]interface{}) ([]vectorstore.QueryResult, error) {
	return nil, errors.New("store unavailable")
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, err := scope.NewContext(context.Background(), scope.Scope{
		ProjectID: "p1",
		ManagerID: "m1",
	})
	require.NoError(t, err)
	return ctx
}

func testUsers() []User {
	return []User{
		{
			ID:            "alice",
			Name:          "Alice",
			PrimaryDomain: "frontend",
			Skills: []HeldSkill{
				{Name: "React", Category: "frontend", ExperienceYears: 5, ProficiencyScore: 90},
				{Name: "Node.js", Category: "backend", ExperienceYears: 3, ProficiencyScore: 70},
			},
		},
		{
			ID:            "bob",
			Name:          "Bob",
			PrimaryDomain: "backend",
			Skills: []HeldSkill{
				{Name: "Python", Category: "backend", ExperienceYears: 4, ProficiencyScore: 80},
			},
		},
	}
}

func testTask() Task {
	return Task{
		TaskID:         "t1",
		Name:           "Build UI",
		Complexity:     4,
		EstimatedHours: 16,
		RequiredSkills: []RequiredSkill{
			{Name: "React", Category: "frontend", PreferredExperience: 3, RequiredProficiency: 7},
			{Name: "Node.js", Category: "backend", PreferredExperience: 2, RequiredProficiency: 5},
		},
	}
}
