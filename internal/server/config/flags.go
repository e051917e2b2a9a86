package config

import (
	"flag"
	"os"
	"time"

	"github.com/evenfall/nightpost/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-l int      assignment lock-wait timeout, milliseconds
//	-w int      assignment retry backoff, milliseconds
//	-r string   Redis address for the stats cache (empty disables it)
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-l", "-w", "-r", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	lockTimeout := fs.Int("l", int(config.AssignLockTimeout.Milliseconds()), "assignment lock timeout (in milliseconds)")
	retryBackoff := fs.Int("w", int(config.AssignRetryBackoff.Milliseconds()), "assignment retry backoff (in milliseconds)")

	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address for stats cache")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AssignLockTimeout = time.Duration(*lockTimeout) * time.Millisecond
	config.AssignRetryBackoff = time.Duration(*retryBackoff) * time.Millisecond
}
