package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reckon-dev/reckon/internal/model"
)

func TestRunSync_UnavailableSourceSkipsWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, runInit(dir, ""))
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "legacy-export")))

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	// Both entities must be attempted and skipped; a down source is not
	// an error for the command.
	require.NoError(t, runSync(cmd, dir, []string{"reservation", "pos"}))

	_, st, err := openProject(dir)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.Runs.Last()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "sync", runs[0].Component)
	assert.Equal(t, model.RunCommitted, runs[0].Status)
	assert.Equal(t, "entity=reservation skipped; entity=pos skipped", runs[0].Summary)

	watermarks, err := st.Watermarks.All()
	require.NoError(t, err)
	assert.Empty(t, watermarks, "skipped runs never advance watermarks")
}
