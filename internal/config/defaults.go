// Package config provides configuration loading and defaults for flowwatch.
package config

import "time"

// DefaultConfigDir is the default location for flowwatch configuration.
const DefaultConfigDir = "~/.config/flowwatch"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "flowwatch.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// EnvPrefix is prepended to every environment override, e.g.
// FLOWWATCH_JIRA_TOKEN.
const EnvPrefix = "FLOWWATCH"

// DefaultJira holds the default upstream client settings.
var DefaultJira = Jira{
	Timeout: 30 * time.Second,
}

// DefaultQuery holds the query parameters used when neither flags nor the
// stored board settings provide one.
var DefaultQuery = QueryDefaults{
	Resolution:           "day",
	Completion:           "last",
	Percentiles:          []int{30, 50, 70, 85, 95},
	WindowDays:           90,
	PredictabilityMonths: 6,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}
