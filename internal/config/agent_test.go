package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAgentYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAgentConfigDefaultsWhenFileMissing(t *testing.T) {
	configs := NewAgentConfigs(t.TempDir())

	cfg := configs.Get(DataAnalystAgentName)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.Model)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, float64(0), cfg.Temperature)
	assert.Empty(t, cfg.Prompt)
}

func TestAgentConfigDefaultsWhenDirEmpty(t *testing.T) {
	configs := NewAgentConfigs("")
	cfg := configs.Get(ComplianceReportAgentName)
	assert.Equal(t, DefaultModel, cfg.Model)
}

func TestAgentConfigLoadsFile(t *testing.T) {
	dir := t.TempDir()
	writeAgentYAML(t, dir, DataAnalystAgentName, `
model: gemini-2.0-flash
provider: gemini
temperature: 0.3
prompt: "summarize the data"
`)

	configs := NewAgentConfigs(dir)
	cfg := configs.Get(DataAnalystAgentName)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model)
	assert.Equal(t, 0.3, cfg.Temperature)
	assert.Equal(t, "summarize the data", cfg.Prompt)
}

func TestAgentConfigPartialFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	writeAgentYAML(t, dir, ComplianceReportAgentName, "temperature: 0.7\n")

	configs := NewAgentConfigs(dir)
	cfg := configs.Get(ComplianceReportAgentName)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, 0.7, cfg.Temperature)
}

func TestAgentConfigInvalidYAMLFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	writeAgentYAML(t, dir, DataAnalystAgentName, "model: [unclosed\n")

	configs := NewAgentConfigs(dir)
	cfg := configs.Get(DataAnalystAgentName)
	assert.Equal(t, DefaultModel, cfg.Model)
}

func TestAgentConfigGetIsCached(t *testing.T) {
	dir := t.TempDir()
	writeAgentYAML(t, dir, DataAnalystAgentName, "model: first\n")

	configs := NewAgentConfigs(dir)
	assert.Equal(t, "first", configs.Get(DataAnalystAgentName).Model)

	writeAgentYAML(t, dir, DataAnalystAgentName, "model: second\n")
	assert.Equal(t, "first", configs.Get(DataAnalystAgentName).Model)

	configs.Reload()
	assert.Equal(t, "second", configs.Get(DataAnalystAgentName).Model)
}

func TestAgentConfigReloadKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	path := writeAgentYAML(t, dir, DataAnalystAgentName, "model: good-model\n")

	configs := NewAgentConfigs(dir)
	require.Equal(t, "good-model", configs.Get(DataAnalystAgentName).Model)

	require.NoError(t, os.WriteFile(path, []byte("model: [broken\n"), 0o644))
	configs.Reload()
	assert.Equal(t, "good-model", configs.Get(DataAnalystAgentName).Model)
}
