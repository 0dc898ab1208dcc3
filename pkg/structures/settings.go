package structures

// Setting is a key into the app_settings key-value table (§3, §6).
type Setting string

const (
	// SettingMediaServerType is the type of the external media server.
	SettingMediaServerType Setting = "media_server_type"
	// SettingMediaServerURL is the base URL of the external media server.
	SettingMediaServerURL Setting = "media_server_url"
	// SettingMediaServerAPIKey authenticates against the media server.
	SettingMediaServerAPIKey Setting = "media_server_api_key"
	// SettingLibraryIDs is the allowlist of library ids the metadata sync
	// sweeps.
	SettingLibraryIDs Setting = "library_ids"
	// SettingTMDBAPIKey authenticates against the Metadata Provider.
	SettingTMDBAPIKey Setting = "tmdb_api_key"
	// SettingDownloaderURL is the base URL of the Downloader service.
	SettingDownloaderURL Setting = "downloader_url"
	// SettingDownloaderUsername/Password authenticate against the
	// Downloader's login endpoint.
	SettingDownloaderUsername Setting = "downloader_username"
	SettingDownloaderPassword Setting = "downloader_password"
	// SettingVIPQuotaPerDay is the daily subscription quota (§3, §4.4).
	SettingVIPQuotaPerDay Setting = "vip_quota_per_day"
	// SettingVIPUserIDs is the allowlist of Media-Server user ids flagged
	// with allow_unrestricted_subscriptions (glossary "VIP").
	SettingVIPUserIDs Setting = "vip_user_ids"
	// SettingQuotaDate/Remaining persist the rolling daily counter.
	SettingQuotaDate      Setting = "subscription_quota_date"
	SettingQuotaRemaining Setting = "subscription_quota_remaining"
	// SettingResubscribeEnabled gates the best-version resubscribe pass.
	SettingResubscribeEnabled Setting = "resubscribe_enabled"
	// SettingTaskChainMaxMinutes bounds a task chain's wall-clock budget
	// (§4.1).
	SettingTaskChainMaxMinutes Setting = "task_chain_max_minutes"
	// SettingProxyURL is used by outbound HTTP clients when set.
	SettingProxyURL Setting = "proxy_url"
	// SettingNotifyChatID is the messenger chat id user-facing
	// notifications (episode top-up, etc.) are sent to.
	SettingNotifyChatID Setting = "notify_chat_id"
	// SettingNotifierBotToken authenticates the messenger transport.
	SettingNotifierBotToken Setting = "notifier_bot_token"
	// SettingTranslatorURL/APIKey authenticate against the cast-name AI
	// translation provider (§1 "automated cast-translation").
	SettingTranslatorURL    Setting = "translator_url"
	SettingTranslatorAPIKey Setting = "translator_api_key"
)

func (s Setting) String() string {
	return string(s)
}

// ProcessorKind selects which long-lived processor instance a registered
// task is dispatched to (§4.1).
type ProcessorKind string

const (
	ProcessorMedia     ProcessorKind = "media"
	ProcessorWatchlist ProcessorKind = "watchlist"
	ProcessorActor     ProcessorKind = "actor"
)

func (p ProcessorKind) String() string { return string(p) }

// TaskKey names one entry in the Task Scheduler's registry (§4.1).
type TaskKey string

const (
	TaskFullScan           TaskKey = "full-scan"
	TaskMetadataPopulate   TaskKey = "metadata-populate"
	TaskEnrichAliases      TaskKey = "enrich-aliases"
	TaskSyncImagesMap      TaskKey = "sync-images-map"
	TaskWatchlistRefresh   TaskKey = "watchlist-refresh"
	TaskWatchlistRevival   TaskKey = "watchlist-revival-check"
	TaskCollectionsRebuild TaskKey = "collections-rebuild"
	TaskSubscriptionResub  TaskKey = "subscription-resubscribe"
	TaskMetadataSync       TaskKey = "metadata-sync"
	TaskEpisodeTopUp       TaskKey = "episode-top-up"
	TaskCastTranslation    TaskKey = "cast-translation"
)

func (t TaskKey) String() string { return string(t) }
