package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	up, err := Load(Up)
	require.NoError(t, err)
	require.NotEmpty(t, up)
	assert.Equal(t, "0001_create_training_jobs.up.sql", up[0].Name)
	assert.Contains(t, up[0].SQL, "CREATE TABLE IF NOT EXISTS training_jobs")

	down, err := Load(Down)
	require.NoError(t, err)
	require.Len(t, down, len(up))
	assert.Contains(t, down[len(down)-1].SQL, "DROP TABLE IF EXISTS training_jobs")

	_, err = Load("sideways")
	assert.Error(t, err)
}
