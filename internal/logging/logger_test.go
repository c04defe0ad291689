package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, stateDir string, cfg loggingConfig) {
	t.Helper()
	require.NoError(t, os.MkdirAll(stateDir, 0755))
	data, err := json.Marshal(configFile{Logging: cfg})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(stateDir, "config.json"), data, 0644))
}

func TestDebugModeDisabled(t *testing.T) {
	stateDir := t.TempDir()
	writeConfig(t, stateDir, loggingConfig{DebugMode: false})
	require.NoError(t, Initialize(stateDir))
	defer CloseAll()

	Get(CategoryEngine).Info("should not be written")

	entries, err := os.ReadDir(filepath.Join(stateDir, "logs"))
	require.True(t, os.IsNotExist(err) || len(entries) == 0)
}

func TestAllCategoriesLog(t *testing.T) {
	stateDir := t.TempDir()
	writeConfig(t, stateDir, loggingConfig{DebugMode: true})
	require.NoError(t, Initialize(stateDir))
	defer CloseAll()

	categories := []Category{
		CategoryCLI, CategoryParser, CategoryEnhancer, CategoryStore,
		CategoryEngine, CategoryCheck, CategoryBreaker, CategoryBatch,
		CategoryOutput, CategoryWatch, CategoryHash,
	}
	for _, c := range categories {
		Get(c).Info("hello from %s", c)
	}

	date := time.Now().Format("2006-01-02")
	for _, c := range categories {
		path := filepath.Join(stateDir, "logs", date+"_"+string(c)+".log")
		_, err := os.Stat(path)
		require.NoError(t, err, "expected log file for category %s", c)
	}
}

func TestCategoryToggle(t *testing.T) {
	stateDir := t.TempDir()
	writeConfig(t, stateDir, loggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{string(CategoryParser): false},
	})
	require.NoError(t, Initialize(stateDir))
	defer CloseAll()

	require.False(t, IsCategoryEnabled(CategoryParser))
	require.True(t, IsCategoryEnabled(CategoryEngine))

	Get(CategoryParser).Info("should be suppressed")
	date := time.Now().Format("2006-01-02")
	_, err := os.Stat(filepath.Join(stateDir, "logs", date+"_parser.log"))
	require.True(t, os.IsNotExist(err))
}

func TestTimerLogging(t *testing.T) {
	stateDir := t.TempDir()
	writeConfig(t, stateDir, loggingConfig{DebugMode: true})
	require.NoError(t, Initialize(stateDir))
	defer CloseAll()

	timer := StartTimer(CategoryEngine, "compile")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.Stop()
	require.Greater(t, elapsed, time.Duration(0))
}

func TestLevelFiltering(t *testing.T) {
	stateDir := t.TempDir()
	writeConfig(t, stateDir, loggingConfig{DebugMode: true, Level: "error"})
	require.NoError(t, Initialize(stateDir))
	defer CloseAll()

	Get(CategoryStore).Debug("should be filtered")
	Get(CategoryStore).Error("should appear")

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(stateDir, "logs", date+"_store.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "should appear")
	require.NotContains(t, string(data), "should be filtered")
}
