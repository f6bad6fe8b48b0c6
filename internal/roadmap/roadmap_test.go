package roadmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiplanhq/matchd/internal/matching"
)

const sampleOutput = `[
  {
    "task_id": 1,
    "name": "Design database schema",
    "description": "Model the core entities and relations.",
    "complexity": 4,
    "estimated_hours": 12,
    "required_skills": [
      {"name": "PostgreSQL", "category": "database", "preferred_experience": 3, "required_proficiency": 6}
    ],
    "depends_on": []
  },
  {
    "task_id": "2",
    "name": "Build REST API endpoints",
    "description": "Implement the HTTP layer on top of the schema.",
    "complexity": 6,
    "estimated_hours": 30,
    "required_skills": [
      {"name": "Go", "category": "backend", "preferred_experience": 2, "required_proficiency": 5}
    ],
    "depends_on": [1]
  }
]`

func TestParseTasks(t *testing.T) {
	t.Run("bare json", func(t *testing.T) {
		tasks, err := ParseTasks(sampleOutput)
		require.NoError(t, err)
		require.Len(t, tasks, 2)

		assert.Equal(t, "1", tasks[0].TaskID)
		assert.Equal(t, "Design database schema", tasks[0].Name)
		assert.Equal(t, 4, tasks[0].Complexity)
		assert.InDelta(t, 12, tasks[0].EstimatedHours, 1e-9)
		require.Len(t, tasks[0].RequiredSkills, 1)
		assert.Equal(t, "PostgreSQL", tasks[0].RequiredSkills[0].Name)

		// Numeric and string ids both normalize to strings.
		assert.Equal(t, "2", tasks[1].TaskID)
		assert.Equal(t, []string{"1"}, tasks[1].DependsOn)
	})

	t.Run("fenced json", func(t *testing.T) {
		tasks, err := ParseTasks("```json\n" + sampleOutput + "\n```")
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("fence without language tag", func(t *testing.T) {
		tasks, err := ParseTasks("```\n" + sampleOutput + "\n```")
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseTasks("here is your roadmap!")
		assert.ErrorIs(t, err, ErrMalformedOutput)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := ParseTasks(`[{"task_id": 1}]`)
		assert.ErrorIs(t, err, ErrMalformedOutput)
	})

	t.Run("empty output", func(t *testing.T) {
		_, err := ParseTasks("   ")
		assert.ErrorIs(t, err, ErrMalformedOutput)
	})
}

func TestScopeTaskIDs(t *testing.T) {
	tasks := []matching.Task{
		{TaskID: "1", Name: "A"},
		{TaskID: "2", Name: "B", DependsOn: []string{"1"}},
	}

	scoped := ScopeTaskIDs(tasks, "p1")
	require.Len(t, scoped, 2)
	assert.Equal(t, "p1_1", scoped[0].TaskID)
	assert.Equal(t, "p1_2", scoped[1].TaskID)
	assert.Equal(t, []string{"p1_1"}, scoped[1].DependsOn)

	// Input untouched.
	assert.Equal(t, "1", tasks[0].TaskID)
	assert.Equal(t, []string{"1"}, tasks[1].DependsOn)
}
