package jwt

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	service := New("test_secret", time.Hour)
	actor := domain.NewActor(uuid.New(), domain.CapPublishing, domain.CapModerating)

	token, err := service.NewToken(actor)
	require.NoError(t, err)

	decoded, err := service.DecodeActor(token)
	require.NoError(t, err)
	assert.Equal(t, actor.Id, decoded.Id)
	assert.True(t, decoded.IsEditor())
	assert.True(t, decoded.Permitted(domain.CapModerating))
	assert.False(t, decoded.Permitted(domain.CapManaging))
}

func TestDecodeRejects(t *testing.T) {
	service := New("test_secret", time.Hour)
	actor := domain.NewActor(uuid.New())

	t.Run("wrong secret", func(t *testing.T) {
		token, err := New("other_secret", time.Hour).NewToken(actor)
		require.NoError(t, err)

		_, err = service.DecodeActor(token)
		assert.Equal(t, http.StatusUnauthorized, internal_errors.StatusCode(err))
	})

	t.Run("expired", func(t *testing.T) {
		token, err := New("test_secret", -time.Minute).NewToken(actor)
		require.NoError(t, err)

		_, err = service.DecodeActor(token)
		assert.Equal(t, http.StatusUnauthorized, internal_errors.StatusCode(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := service.DecodeActor("not.a.token")
		assert.Equal(t, http.StatusUnauthorized, internal_errors.StatusCode(err))
	})

	t.Run("anonymous subject", func(t *testing.T) {
		token, err := service.NewToken(domain.Anonymous)
		require.NoError(t, err)

		_, err = service.DecodeActor(token)
		assert.Equal(t, http.StatusUnauthorized, internal_errors.StatusCode(err))
	})
}
