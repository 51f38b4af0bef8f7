// Package config loads service configuration from config.yml, .env files and
// the process environment using Viper.
//
// # Usage
//
//	var cfg AppConfig
//	if err := config.LoadConfig("asr", &cfg); err != nil { ... }
//
// Environment variables are bound to every nested key form, so ASR_API_KEY
// fills asr.api_key and LOGGING_LEVEL fills logging.level.
package config
