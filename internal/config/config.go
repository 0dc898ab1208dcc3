package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

// Config is the runtime configuration unmarshalled from the app_settings
// table (§6 "Environment & config"), mirroring the teacher's
// config/config.go nested-struct-over-flat-map pattern.
type Config struct {
	MediaServer struct {
		Type   structures.Provider `mapstructure:"type"`
		URL    string              `mapstructure:"url" validate:"required,url"`
		APIKey string              `mapstructure:"api_key" validate:"required"`
	} `mapstructure:"media_server"`

	LibraryIDs []string `mapstructure:"library_ids" validate:"required,min=1"`

	TMDB struct {
		APIKey string `mapstructure:"api_key" validate:"required"`
	} `mapstructure:"tmdb"`

	Downloader struct {
		URL      string `mapstructure:"url" validate:"required,url"`
		Username string `mapstructure:"username" validate:"required"`
		Password string `mapstructure:"password" validate:"required"`
	} `mapstructure:"downloader"`

	Translator struct {
		URL    string `mapstructure:"url" validate:"omitempty,url"`
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"translator"`

	VIPQuotaPerDay       int      `mapstructure:"vip_quota_per_day" validate:"gte=0"`
	VIPUserIDs           []string `mapstructure:"vip_user_ids"`
	ResubscribeEnabled   bool   `mapstructure:"resubscribe_enabled"`
	TaskChainMaxMinutes  int    `mapstructure:"task_chain_max_minutes" validate:"gte=1"`
	ProxyURL             string `mapstructure:"proxy_url" validate:"omitempty,url"`
	NotifyChatID         string `mapstructure:"notify_chat_id"`
	NotifierBotToken     string `mapstructure:"notifier_bot_token"`
}

var validate = validator.New()

// New builds a Config from the flat app_settings map (string keys from
// pkg/structures.Setting to arbitrary values), the same flattening the
// teacher performs in config.New before handing the result to Viper.
func New(settings map[string]interface{}) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("vip_quota_per_day", 0)
	v.SetDefault("resubscribe_enabled", false)
	v.SetDefault("task_chain_max_minutes", 120)

	nested := make(map[string]interface{})
	for key, value := range settings {
		switch structures.Setting(key) {
		case structures.SettingMediaServerType:
			nested["media_server.type"] = value
		case structures.SettingMediaServerURL:
			nested["media_server.url"] = value
		case structures.SettingMediaServerAPIKey:
			nested["media_server.api_key"] = value
		case structures.SettingLibraryIDs:
			nested["library_ids"] = splitCSV(value)
		case structures.SettingTMDBAPIKey:
			nested["tmdb.api_key"] = value
		case structures.SettingDownloaderURL:
			nested["downloader.url"] = value
		case structures.SettingDownloaderUsername:
			nested["downloader.username"] = value
		case structures.SettingDownloaderPassword:
			nested["downloader.password"] = value
		case structures.SettingVIPQuotaPerDay:
			nested["vip_quota_per_day"] = toInt(value)
		case structures.SettingVIPUserIDs:
			nested["vip_user_ids"] = splitCSV(value)
		case structures.SettingResubscribeEnabled:
			nested["resubscribe_enabled"] = value
		case structures.SettingTaskChainMaxMinutes:
			nested["task_chain_max_minutes"] = toInt(value)
		case structures.SettingProxyURL:
			nested["proxy_url"] = value
		case structures.SettingNotifyChatID:
			nested["notify_chat_id"] = value
		case structures.SettingNotifierBotToken:
			nested["notifier_bot_token"] = value
		case structures.SettingTranslatorURL:
			nested["translator.url"] = value
		case structures.SettingTranslatorAPIKey:
			nested["translator.api_key"] = value
		}
	}

	for key, value := range nested {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func splitCSV(v interface{}) []string {
	s, ok := v.(string)
	if !ok {
		if list, ok := v.([]string); ok {
			return list
		}
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}
