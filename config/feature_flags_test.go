package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureFlagDefaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureReminders))
	assert.True(t, ff.IsEnabled(FeatureSweep))
	assert.True(t, ff.IsEnabled(FeatureDurationBonus))
	assert.False(t, ff.IsEnabled(FeatureStreakCache))
	assert.False(t, ff.IsEnabled("nonexistent.feature"))
}

func TestFeatureFlagEnvironmentOverride(t *testing.T) {
	t.Setenv("FEATURE_REMINDERS_ENABLED", "false")
	t.Setenv("FEATURE_QUERY_STREAK_CACHE", "true")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureReminders))
	assert.True(t, ff.IsEnabled(FeatureStreakCache))
}

func TestFeatureFlagSetEnabled(t *testing.T) {
	ff := LoadFeatureFlags()

	ff.SetEnabled(FeatureSweep, false)
	assert.False(t, ff.IsEnabled(FeatureSweep))

	ff.SetEnabled(FeatureSweep, true)
	assert.True(t, ff.IsEnabled(FeatureSweep))
}

func TestFeatureFlagMemberOverrides(t *testing.T) {
	ff := LoadFeatureFlags()

	// Disabled globally, but forced on for one member.
	ff.SetEnabled(FeatureReminderMotivation, false)
	ff.SetOverride("member-1", FeatureReminderMotivation, true)

	assert.True(t, ff.IsEnabledFor(FeatureReminderMotivation, "member-1"))
	assert.False(t, ff.IsEnabledFor(FeatureReminderMotivation, "member-2"))

	ff.ClearOverrides("member-1")
	assert.False(t, ff.IsEnabledFor(FeatureReminderMotivation, "member-1"))
}

func TestFeatureFlagRolloutIsStable(t *testing.T) {
	t.Setenv("FEATURE_MAINTENANCE_SWEEP_ROLLOUT", "50")

	ff := LoadFeatureFlags()

	// The same member must always land on the same side of the rollout.
	first := ff.IsEnabledFor(FeatureSweep, "member-42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabledFor(FeatureSweep, "member-42"))
	}
}

func TestFeatureFlagRolloutBounds(t *testing.T) {
	ff := LoadFeatureFlags()

	// 0% rollout means no member gets the feature even when enabled.
	ff.features[FeatureSweep].RolloutPercent = 0
	assert.False(t, ff.IsEnabledFor(FeatureSweep, "member-1"))

	ff.features[FeatureSweep].RolloutPercent = 100
	assert.True(t, ff.IsEnabledFor(FeatureSweep, "member-1"))
}

func TestFeatureFlagList(t *testing.T) {
	ff := LoadFeatureFlags()

	features := ff.List()
	assert.Len(t, features, 7)

	names := make(map[string]bool, len(features))
	for _, f := range features {
		names[f.Name] = true
	}
	assert.True(t, names[FeatureReminders])
	assert.True(t, names[FeatureStreakCache])
}
