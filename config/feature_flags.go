package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with gradual rollout support.
// Rollout assignment is stable per member: the same member always lands on
// the same side of a percentage.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	memberOverrides map[string]map[string]bool // memberID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Members are assigned based on hash of their ID
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// === Reminder Features ===
	FeatureReminders          = "reminders.enabled"        // Schedule reminders on check-in
	FeatureReminderMotivation = "reminders.motivation"     // Mid-event motivation nudge
	FeatureReminderDeadline   = "reminders.deadline_alert" // Post-deadline alert

	// === Attendance Features ===
	FeatureDurationBonus = "attendance.duration_bonus" // Full-attendance point bonus
	FeatureDegreeCredits = "attendance.degree_credits" // Degree credit hand-off

	// === Maintenance Features ===
	FeatureSweep = "maintenance.sweep" // Missed-checkout sweep

	// === Query Features ===
	FeatureStreakCache = "query.streak_cache" // Cache streak summaries in Redis
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:        make(map[string]*Feature),
		memberOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	defaults := []*Feature{
		{Name: FeatureReminders, Description: "Schedule checkout reminders on check-in", Enabled: true, RolloutPercent: 100},
		{Name: FeatureReminderMotivation, Description: "Mid-event motivation nudge", Enabled: true, RolloutPercent: 100},
		{Name: FeatureReminderDeadline, Description: "Post-deadline checkout alert", Enabled: true, RolloutPercent: 100},
		{Name: FeatureDurationBonus, Description: "Bonus points for full attendance", Enabled: true, RolloutPercent: 100},
		{Name: FeatureDegreeCredits, Description: "Hand degree credits to the chapter ledger", Enabled: true, RolloutPercent: 100},
		{Name: FeatureSweep, Description: "Close records left open past the cutoff", Enabled: true, RolloutPercent: 100},
		{Name: FeatureStreakCache, Description: "Cache streak summaries in Redis", Enabled: false, RolloutPercent: 0},
	}

	for _, f := range defaults {
		ff.features[f.Name] = f
	}
}

// loadFromEnvironment applies FEATURE_* environment overrides.
// FEATURE_REMINDERS_ENABLED=false disables "reminders.enabled";
// FEATURE_QUERY_STREAK_CACHE_ROLLOUT=25 sets a 25% rollout.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))

		if val := os.Getenv(envKey); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b && feature.RolloutPercent == 0 {
					feature.RolloutPercent = 100
				}
			}
		}

		if val := os.Getenv(envKey + "_ROLLOUT"); val != "" {
			if pct, err := strconv.Atoi(val); err == nil && pct >= 0 && pct <= 100 {
				feature.RolloutPercent = pct
			}
		}
	}
}

// IsEnabled checks if a feature is enabled globally.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, exists := ff.features[name]
	if !exists {
		return false
	}
	return feature.Enabled
}

// IsEnabledFor checks if a feature is enabled for a specific member,
// honoring overrides and rollout percentage.
func (ff *FeatureFlags) IsEnabledFor(name, memberID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if overrides, ok := ff.memberOverrides[memberID]; ok {
		if enabled, ok := overrides[name]; ok {
			return enabled
		}
	}

	feature, exists := ff.features[name]
	if !exists || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent >= 100 {
		return true
	}
	if feature.RolloutPercent <= 0 {
		return false
	}

	return memberBucket(name, memberID) < feature.RolloutPercent
}

// SetOverride forces a feature on or off for a specific member.
func (ff *FeatureFlags) SetOverride(memberID, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.memberOverrides[memberID] == nil {
		ff.memberOverrides[memberID] = make(map[string]bool)
	}
	ff.memberOverrides[memberID][name] = enabled
}

// ClearOverrides removes all overrides for a member.
func (ff *FeatureFlags) ClearOverrides(memberID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.memberOverrides, memberID)
}

// SetEnabled toggles a feature globally at runtime.
func (ff *FeatureFlags) SetEnabled(name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if feature, ok := ff.features[name]; ok {
		feature.Enabled = enabled
	}
}

// List returns a snapshot of all features.
func (ff *FeatureFlags) List() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	return out
}

// memberBucket maps a (feature, member) pair to a stable bucket in [0, 100).
func memberBucket(feature, memberID string) int {
	h := fnv.New32a()
	h.Write([]byte(feature))
	h.Write([]byte(":"))
	h.Write([]byte(memberID))
	return int(h.Sum32() % 100)
}
