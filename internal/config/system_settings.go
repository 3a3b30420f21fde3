package config

import (
	"strings"

	"github.com/spf13/viper"
)

const DATABASE_TYPE = "database.type"
const DATABASE_URL = "database.url"
const DATABASE_SQLLITE_FILE_NAME = "database.sqllite_file_name"
const SERVER_WEB_PORT = "server.web_port"
const SERVER_HTTP_ADDR = "server.http_addr"
const WEB_SESSION_EXPIRY_HOURS = "web.session_expiry_hours"
const WORKFLOW_TAGS_DISABLED = "workflow.tags_disabled"
const LOG_LEVEL = "log.level"
const OTEL_ENABLED = "otel.enabled"
const OTEL_SERVICE_NAME = "otel.service_name"

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

// env vars are FSTUDIO_ followed by the upper-cased key with dots as underscores,
// e.g. FSTUDIO_DATABASE_TYPE
const envPrefix = "FSTUDIO"

var settings = newSettings()

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(SERVER_WEB_PORT, "8080")
	v.SetDefault(WEB_SESSION_EXPIRY_HOURS, 1)
	v.SetDefault(DATABASE_SQLLITE_FILE_NAME, "./flowstudio.db")
	v.SetDefault(WORKFLOW_TAGS_DISABLED, false)
	v.SetDefault(LOG_LEVEL, "info")
	v.SetDefault(OTEL_ENABLED, false)
	v.SetDefault(OTEL_SERVICE_NAME, "flowstudio")
	return v
}

// LoadConfigFile merges a YAML config file over the defaults. Env vars still win.
func LoadConfigFile(path string) error {
	settings.SetConfigFile(path)
	settings.SetConfigType("yaml")
	return settings.ReadInConfig()
}

// SetSystemSetting overrides a setting for the lifetime of the process.
func SetSystemSetting(settingKey string, value any) {
	settings.Set(settingKey, value)
}

func GetSystemSettingInteger(settingKey string) int {
	return settings.GetInt(settingKey)
}

func GetSystemSettingBool(settingKey string) bool {
	return settings.GetBool(settingKey)
}

func GetSystemSettingString(settingKey string) string {
	return settings.GetString(settingKey)
}

// Settings is the subset of configuration threaded into the request handlers.
type Settings struct {
	WorkflowTagsDisabled bool
	SessionExpiryHours   int
}

func LoadSettings() Settings {
	return Settings{
		WorkflowTagsDisabled: GetSystemSettingBool(WORKFLOW_TAGS_DISABLED),
		SessionExpiryHours:   GetSystemSettingInteger(WEB_SESSION_EXPIRY_HOURS),
	}
}
