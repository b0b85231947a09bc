package config

import "time"

const (
	defaultWgribPath       = "wgrib2"
	defaultFilePattern     = "*.bin"
	defaultVariable        = "var0_1_200_surface"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultKafkaTopic      = "grid-conversions"
	defaultShutdownTimeout = 10 * time.Second
)
