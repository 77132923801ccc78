package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/persistence"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)
	alice := s.Register("Alice", "a@x.com", "555", "Secret1A")
	bob := s.AddUser(domain.NewUser{Name: "Bob", Email: "b@x.com", Phone: "2", Password: "pw"})
	s.SuspendUser(bob.ID, "2024-04-01", "chargebacks")
	s.AddNotification(alice.ID, "Welcome")
	prefs := domain.UserPreferences{PushEnabled: false, EmailEnabled: true, SMSEnabled: true}
	s.UpdateUser(alice.ID, domain.UserPatch{Preferences: &prefs})
	require.NoError(t, s.Save(ctx))

	reloaded := New(kv, Options{KeyPrefix: "innout_"})
	require.NoError(t, reloaded.Load(ctx))

	assert.Equal(t, s.Users(), reloaded.Users())
	cur, ok := reloaded.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, alice.ID, cur.ID)
}

func TestSaveWritesExpectedLayout(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)
	require.NoError(t, s.Save(ctx))

	usersKey, currentKey := s.Keys()
	assert.Equal(t, "innout_users", usersKey)
	assert.Equal(t, "innout_current_user", currentKey)

	raw, err := kv.Get(ctx, currentKey)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	raw, err = kv.Get(ctx, usersKey)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "admin", decoded[0]["id"])
	assert.Equal(t, "admin123", decoded[0]["password"])
	assert.NotContains(t, decoded[0], "suspensionEnd")
	assert.Equal(t, map[string]any{"pushEnabled": true, "emailEnabled": true, "smsEnabled": false}, decoded[0]["preferences"])

	require.True(t, s.Login("admin@gmail.com", "admin123"))
	require.NoError(t, s.Save(ctx))
	raw, err = kv.Get(ctx, currentKey)
	require.NoError(t, err)
	var current domain.User
	require.NoError(t, json.Unmarshal(raw, &current))
	assert.Equal(t, domain.AdminID, current.ID)
}

func TestLoadReadsOriginalClientSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := persistence.NewMemory()
	require.NoError(t, kv.Set(ctx, "innout_users", []byte(`[
		{"id":"admin","name":"System Admin","email":"admin@gmail.com","phone":"000-000-0000","role":"admin","password":"admin123","status":"Active","notifications":[],"preferences":{"pushEnabled":true,"emailEnabled":true,"smsEnabled":false}},
		{"id":"k3j9x0a1b","name":"Bob","email":"b@x.com","phone":"1","password":"pw","role":"customer","status":"Suspended","suspensionEnd":"2024-04-01",
		 "notifications":[{"id":"1709647629000","message":"Action Taken","timestamp":"3/5/2024, 2:07:09 PM","read":false}],
		 "preferences":{"pushEnabled":false,"emailEnabled":true,"smsEnabled":true}}
	]`)))
	require.NoError(t, kv.Set(ctx, "innout_current_user", []byte(`{"id":"k3j9x0a1b","name":"stale copy"}`)))

	s := New(kv, Options{KeyPrefix: "innout_"})
	require.NoError(t, s.Load(ctx))

	require.Len(t, s.Users(), 2)
	cur, ok := s.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "Bob", cur.Name, "session is resolved from the collection, not the stored copy")
	assert.True(t, cur.IsSuspended())
	assert.Equal(t, "2024-04-01", cur.SuspensionEnd)
	assert.Equal(t, domain.UserPreferences{EmailEnabled: true, SMSEnabled: true}, cur.Preferences)
}

func TestLoadDropsDanglingSession(t *testing.T) {
	ctx := context.Background()
	kv := persistence.NewMemory()
	require.NoError(t, kv.Set(ctx, "current_user", []byte(`{"id":"deleted-elsewhere"}`)))

	s := New(kv, Options{})
	require.NoError(t, s.Load(ctx))

	_, ok := s.CurrentUser()
	assert.False(t, ok)
	assert.Len(t, s.Users(), 1)
}

func TestLoadKeepsPersistedEmptyCollection(t *testing.T) {
	ctx := context.Background()
	kv := persistence.NewMemory()
	require.NoError(t, kv.Set(ctx, "users", []byte(`[]`)))

	s := New(kv, Options{})
	require.NoError(t, s.Load(ctx))
	assert.Empty(t, s.Users())
}

func TestLoadSeedsOnNullCollection(t *testing.T) {
	ctx := context.Background()
	kv := persistence.NewMemory()
	require.NoError(t, kv.Set(ctx, "users", []byte(`null`)))

	s := New(kv, Options{})
	require.NoError(t, s.Load(ctx))
	require.Len(t, s.Users(), 1)
	assert.Equal(t, domain.AdminID, s.Users()[0].ID)
}

func TestLoadRejectsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := persistence.NewMemory()
	require.NoError(t, kv.Set(ctx, "users", []byte(`{not json`)))

	err := New(kv, Options{}).Load(ctx)
	assert.ErrorContains(t, err, "decode users")
}

type failingKV struct {
	persistence.KV
	err error
}

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Set(context.Context, string, []byte) error   { return f.err }

func TestLoadAndSaveSurfaceBackendErrors(t *testing.T) {
	boom := errors.New("disk full")
	s := New(failingKV{err: boom}, Options{})

	assert.ErrorIs(t, s.Load(context.Background()), boom)
	assert.ErrorIs(t, s.Save(context.Background()), boom)
}
