package session

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-portal/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// brokenStorage имитирует недоступное хранилище (приватный режим, квота).
type brokenStorage struct{}

func (brokenStorage) Get(string) (string, bool, error) { return "", false, errors.New("quota exceeded") }
func (brokenStorage) Set(string, string) error         { return errors.New("quota exceeded") }
func (brokenStorage) Delete(...string) error           { return errors.New("quota exceeded") }

func testSession() models.Session {
	return models.Session{
		UserID:       "u1",
		FullName:     "Ann Lee",
		Email:        "a@b.com",
		Role:         models.RoleInstructor,
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStore_SaveAndRead(t *testing.T) {
	store := NewStore(NewMemoryStorage(), newNoopLogger())

	store.Save(testSession())

	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "access", store.Token())
	assert.Equal(t, "refresh", store.RefreshToken())

	u := store.User()
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, models.RoleInstructor, u.Role)

	sess := store.Session()
	require.NotNil(t, sess)
	assert.Equal(t, testSession(), *sess)
}

func TestStore_IsAuthenticatedTracksLastWrite(t *testing.T) {
	store := NewStore(NewMemoryStorage(), newNoopLogger())
	assert.False(t, store.IsAuthenticated())

	store.SaveToken("t1")
	assert.True(t, store.IsAuthenticated())

	store.SaveToken("")
	assert.False(t, store.IsAuthenticated())

	store.SaveToken("t2")
	store.ClearToken()
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.Session())
}

func TestStore_ClearAllIsIdempotent(t *testing.T) {
	store := NewStore(NewMemoryStorage(), newNoopLogger())
	store.Save(testSession())

	store.ClearAll()
	store.ClearAll()

	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.RefreshToken())
	assert.Nil(t, store.User())
}

func TestStore_SaveOverwritesWithoutMerge(t *testing.T) {
	store := NewStore(NewMemoryStorage(), newNoopLogger())
	store.Save(testSession())

	store.SaveUser(models.Session{UserID: "u2", Role: models.RoleStudent})

	u := store.User()
	require.NotNil(t, u)
	assert.Equal(t, "u2", u.UserID)
	assert.Empty(t, u.Email)
	assert.Equal(t, models.RoleStudent, u.Role)
}

func TestStore_UserMalformed(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(UserKey, "{not json"))
	store := NewStore(storage, newNoopLogger())

	assert.NotPanics(t, func() {
		assert.Nil(t, store.User())
	})
}

func TestStore_UserLegacyNumericRole(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(UserKey, `{"userId":"u9","role":"0"}`))
	store := NewStore(storage, newNoopLogger())

	u := store.User()
	require.NotNil(t, u)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestStore_BrokenStorageDegradesToLoggedOut(t *testing.T) {
	store := NewStore(brokenStorage{}, newNoopLogger())

	assert.NotPanics(t, func() {
		store.Save(testSession())
		store.ClearAll()
	})
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.User())
	assert.Nil(t, store.Session())
}

func TestStore_Expired(t *testing.T) {
	store := NewStore(NewMemoryStorage(), newNoopLogger())
	store.Save(testSession())

	assert.False(t, store.Expired(time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, store.Expired(time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)))
	// просроченный токен всё ещё считается входом
	assert.True(t, store.IsAuthenticated())
}
