package application

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestGetSettings_MaterialisesDefaults(t *testing.T) {
	repo := &fakeSettingsRepo{}
	svc := NewSettingsService(repo, zerolog.Nop())

	settings, err := svc.GetSettings(context.Background(), "test.myshopify.com")
	require.NoError(t, err)
	assert.True(t, settings.SendEmailNotification)
	assert.True(t, settings.PrintedOverhead.IsZero())
	assert.NotNil(t, repo.settings, "defaults are persisted on first access")
}

func TestUpdateSettings(t *testing.T) {
	repo := &fakeSettingsRepo{}
	svc := NewSettingsService(repo, zerolog.Nop())

	t.Run("updates overhead and email flag", func(t *testing.T) {
		settings, err := svc.UpdateSettings(context.Background(), "test.myshopify.com", UpdateSettingsInput{
			SendEmailNotification: boolPtr(false),
			PrintedOverhead:       strPtr("2.50"),
		})
		require.NoError(t, err)
		assert.False(t, settings.SendEmailNotification)
		assert.Equal(t, "2.50", settings.PrintedOverhead.StringFixed(2))
	})

	t.Run("nil fields are untouched", func(t *testing.T) {
		settings, err := svc.UpdateSettings(context.Background(), "test.myshopify.com", UpdateSettingsInput{})
		require.NoError(t, err)
		assert.False(t, settings.SendEmailNotification)
		assert.Equal(t, "2.50", settings.PrintedOverhead.StringFixed(2))
	})

	t.Run("rejects negative overhead", func(t *testing.T) {
		_, err := svc.UpdateSettings(context.Background(), "test.myshopify.com", UpdateSettingsInput{
			PrintedOverhead: strPtr("-1.00"),
		})
		assert.Error(t, err)
	})

	t.Run("rejects unparseable overhead", func(t *testing.T) {
		_, err := svc.UpdateSettings(context.Background(), "test.myshopify.com", UpdateSettingsInput{
			PrintedOverhead: strPtr("two euros"),
		})
		assert.Error(t, err)
	})
}

func TestTriggerVariants(t *testing.T) {
	repo := &fakeSettingsRepo{}
	svc := NewSettingsService(repo, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.AddTriggerVariant(ctx, "test.myshopify.com", " 111 "))
	require.NoError(t, svc.AddTriggerVariant(ctx, "test.myshopify.com", "222"))
	require.NoError(t, svc.AddTriggerVariant(ctx, "test.myshopify.com", "111"), "re-adding is a no-op")
	assert.Equal(t, []string{"111", "222"}, repo.settings.TriggerVariants)

	require.NoError(t, svc.RemoveTriggerVariant(ctx, "test.myshopify.com", "111"))
	assert.Equal(t, []string{"222"}, repo.settings.TriggerVariants)

	assert.Error(t, svc.AddTriggerVariant(ctx, "test.myshopify.com", "  "), "blank variant id is rejected")
}
