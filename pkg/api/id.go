package api

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	experimentIDPrefix = "exp_"
	executionIDPrefix  = "run_"
	shortIDLength      = 8
)

var (
	experimentIDPattern = regexp.MustCompile(`^exp_\d{8}_\d{6}_[a-f0-9]{8}$`)
	executionIDPattern  = regexp.MustCompile(`^run_[a-f0-9]{8}$`)
)

// NewExperimentID generates a new experiment ID with the "exp_" prefix,
// a sortable UTC timestamp, and a short random suffix, e.g.
// "exp_20250114_153042_a1b2c3d4".
func NewExperimentID(now time.Time) string {
	return experimentIDPrefix + now.UTC().Format("20060102_150405") + "_" + shortID()
}

// NewExecutionID generates a new execution ID with the "run_" prefix
// followed by a short random suffix.
func NewExecutionID() string {
	return executionIDPrefix + shortID()
}

// ValidateExperimentID checks whether the given string is a valid
// experiment ID.
func ValidateExperimentID(id string) bool {
	return experimentIDPattern.MatchString(id)
}

// ValidateExecutionID checks whether the given string is a valid
// execution ID.
func ValidateExecutionID(id string) bool {
	return executionIDPattern.MatchString(id)
}

func shortID() string {
	return uuid.NewString()[:shortIDLength]
}
