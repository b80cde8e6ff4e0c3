package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBoltCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "escrow.db")

	db, err := OpenBolt(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.FileExists(t, path)
}

func TestOpenBoltRequiresPath(t *testing.T) {
	_, err := OpenBolt("")
	require.Error(t, err)
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect("")
	require.Error(t, err)
}
