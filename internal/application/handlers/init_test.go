package handlers

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/infrastructure/config"
)

func TestInitHandler_Handle_Success(t *testing.T) {
	tmpDir := t.TempDir()
	logger, _ := test.NewNullLogger()

	handler := NewInitHandler(logger)
	result, err := handler.Handle(t.Context(), tmpDir)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.ConfigPath, "config.yaml")
	assert.Contains(t, result.WorldsPath, "worlds.yaml")
	assert.Equal(t, "local", result.Owner)
	assert.Equal(t, entities.DefaultWorldName, result.ActiveWorld)

	assert.True(t, config.Exists(tmpDir))

	worlds, err := config.NewWorldsFile(tmpDir).LoadWorlds(t.Context(), "local")
	require.NoError(t, err)
	require.Len(t, worlds, 1)
	assert.Equal(t, entities.DefaultWorldName, worlds[0].Name)
}

func TestInitHandler_Handle_AlreadyInitialized(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, config.WriteDefault(tmpDir))

	handler := NewInitHandler(nil)
	_, err := handler.Handle(t.Context(), tmpDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}
