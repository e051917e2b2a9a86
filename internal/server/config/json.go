package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/evenfall/nightpost/internal/flagx"
	"github.com/evenfall/nightpost/internal/timex"
)

// JsonConfig is the DTO for the optional JSON configuration file. Duration
// fields use timex.Duration, which accepts both strings such as "3s" and
// integer nanoseconds. After unmarshalling, values are copied into the
// runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	AssignLockTimeout  timex.Duration `json:"assign_lock_timeout"`
	AssignRetryBackoff timex.Duration `json:"assign_retry_backoff"`
	RedisAddr          string         `json:"redis_addr"`
	StatsCacheTTL      timex.Duration `json:"stats_cache_ttl"`
	S3AccessKey        string         `json:"s3_access_key"`
	S3SecretKey        string         `json:"s3_secret_key"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config. The file path comes from the -c/-config flags; when neither is set
// no file is loaded. An unreadable or invalid file panics: a config the
// operator pointed at explicitly must not be half-applied.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AssignLockTimeout = time.Duration(c.AssignLockTimeout.Duration)
	config.AssignRetryBackoff = time.Duration(c.AssignRetryBackoff.Duration)
	config.RedisAddr = c.RedisAddr
	config.StatsCacheTTL = time.Duration(c.StatsCacheTTL.Duration)
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
