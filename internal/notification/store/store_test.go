package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alertmodels "shiftguard/internal/alert/models"
	"shiftguard/internal/notification/models"
	id "shiftguard/pkg/domain"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	user := id.NewUserID()

	t.Run("unknown user gets defaults", func(t *testing.T) {
		got, err := s.GetPreferences(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultPreferences(), got)
	})

	t.Run("stored overrides are merged over defaults", func(t *testing.T) {
		require.NoError(t, s.SetPreferences(ctx, user, models.Preferences{
			models.ChannelPush: {alertmodels.CategoryGeofence: false},
		}))
		got, err := s.GetPreferences(ctx, user)
		require.NoError(t, err)
		assert.False(t, got.Enabled(models.ChannelPush, alertmodels.CategoryGeofence))
		assert.True(t, got.Enabled(models.ChannelEmail, alertmodels.CategoryGeofence))
		assert.Len(t, got[models.ChannelPush], len(alertmodels.Categories))
	})
}
