package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/infracollect/testpack/apis/v1"
)

func TestBuildVariables(t *testing.T) {
	job := v1.ArchiveJob{
		Metadata: v1.Metadata{
			Name: "test-job",
		},
	}

	t.Run("built-in variables are set", func(t *testing.T) {
		variables, err := BuildVariables(job, nil)
		require.NoError(t, err)

		assert.Equal(t, "test-job", variables["JOB_NAME"])

		_, err = time.Parse("20060102T150405Z", variables["JOB_DATE_ISO8601"])
		require.NoError(t, err, "JOB_DATE_ISO8601 should be valid ISO8601 basic format")

		_, err = time.Parse(time.RFC3339, variables["JOB_DATE_RFC3339"])
		require.NoError(t, err, "JOB_DATE_RFC3339 should be valid RFC3339 format")
	})

	t.Run("allowed env variables are included", func(t *testing.T) {
		t.Setenv("VAR1", "value1")
		t.Setenv("VAR2", "value2")

		variables, err := BuildVariables(job, []string{"VAR1", "VAR2"})
		require.NoError(t, err)

		assert.Equal(t, "value1", variables["VAR1"])
		assert.Equal(t, "value2", variables["VAR2"])
		assert.Len(t, variables, 5)
	})

	t.Run("error accumulates for missing env variables", func(t *testing.T) {
		_, err := BuildVariables(job, []string{"TESTPACK_MISSING1", "TESTPACK_MISSING2"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TESTPACK_MISSING1")
		assert.Contains(t, err.Error(), "TESTPACK_MISSING2")
		assert.Contains(t, err.Error(), "is not set")
	})
}
