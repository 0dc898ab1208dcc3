package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

func validSettings() map[string]interface{} {
	return map[string]interface{}{
		string(structures.SettingMediaServerType):    "emby",
		string(structures.SettingMediaServerURL):      "https://emby.example.com",
		string(structures.SettingMediaServerAPIKey):   "key",
		string(structures.SettingLibraryIDs):          "lib1, lib2",
		string(structures.SettingTMDBAPIKey):          "tmdb-key",
		string(structures.SettingDownloaderURL):       "https://downloader.example.com",
		string(structures.SettingDownloaderUsername):  "user",
		string(structures.SettingDownloaderPassword):  "pass",
	}
}

func TestNewBuildsValidConfig(t *testing.T) {
	cfg, err := New(validSettings())
	require.NoError(t, err)
	assert.Equal(t, "https://emby.example.com", cfg.MediaServer.URL)
	assert.ElementsMatch(t, []string{"lib1", "lib2"}, cfg.LibraryIDs)
	assert.Equal(t, 0, cfg.VIPQuotaPerDay)
	assert.Equal(t, 120, cfg.TaskChainMaxMinutes)
}

func TestNewMissingRequiredFieldFails(t *testing.T) {
	settings := validSettings()
	delete(settings, string(structures.SettingTMDBAPIKey))
	_, err := New(settings)
	assert.Error(t, err)
}

func TestNewTranslatorIsOptional(t *testing.T) {
	cfg, err := New(validSettings())
	require.NoError(t, err)
	assert.Empty(t, cfg.Translator.APIKey)
}

func TestNewAppliesTranslatorSettings(t *testing.T) {
	settings := validSettings()
	settings[string(structures.SettingTranslatorURL)] = "https://translate.example.com"
	settings[string(structures.SettingTranslatorAPIKey)] = "translator-key"

	cfg, err := New(settings)
	require.NoError(t, err)
	assert.Equal(t, "https://translate.example.com", cfg.Translator.URL)
	assert.Equal(t, "translator-key", cfg.Translator.APIKey)
}

func TestNewVIPQuotaFromStringValue(t *testing.T) {
	settings := validSettings()
	settings[string(structures.SettingVIPQuotaPerDay)] = "5"
	cfg, err := New(settings)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.VIPQuotaPerDay)
}
