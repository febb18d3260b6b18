package config

// Application constants
const (
	AppName    = "finpulse"
	AppVersion = "1.0.0"

	// Default config file name searched in the working directory
	DefaultConfigFile = "config.yaml"
)
