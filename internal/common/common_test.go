package common

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPlan struct {
	Origin string   `msgpack:"origin"`
	Fixes  []string `msgpack:"fixes"`
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_, found := c.Get("missing")
	assert.False(t, found)

	c.Set("k", []byte("v"), time.Minute)
	got, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, []byte("v"), got)

	c.Delete("k")
	_, found = c.Get("k")
	assert.False(t, found)
	assert.NoError(t, c.Close())
}

func TestSetValue_RoundTripsThroughMsgpack(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	in := cachedPlan{Origin: "EDDF", Fixes: []string{"TOBAK", "KERAX"}}

	require.NoError(t, SetValue(c, "plan", in, time.Minute))

	var out cachedPlan
	found, err := GetValue(c, "plan", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetValue_CorruptEntry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set("plan", []byte{0xc1}, time.Minute)

	var out cachedPlan
	found, err := GetValue(c, "plan", &out)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestGetOrSet_LoadsOnce(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	calls := 0
	loader := func() (cachedPlan, error) {
		calls++
		return cachedPlan{Origin: "EGLL"}, nil
	}

	v, hit, err := GetOrSet(c, "plan", time.Minute, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "EGLL", v.Origin)

	v, hit, err = GetOrSet(c, "plan", time.Minute, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "EGLL", v.Origin)
	assert.Equal(t, 1, calls)
}

func TestGetOrSet_LoaderErrorIsNotCached(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	boom := errors.New("boom")

	_, _, err := GetOrSet(c, "plan", time.Minute, func() (cachedPlan, error) { return cachedPlan{}, boom })
	assert.ErrorIs(t, err, boom)

	_, found := c.Get("plan")
	assert.False(t, found)
}

func TestQueueItem_EncodeDecode(t *testing.T) {
	item := &UplinkQueueItem{
		JobID:      "job-1",
		PilotID:    "123456",
		Procedures: true,
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	values, err := EncodeQueueItem(item)
	require.NoError(t, err)

	// redis hands stream values back as strings
	raw := values["data"].([]byte)
	got, err := DecodeQueueItem(map[string]interface{}{"data": string(raw)})
	require.NoError(t, err)
	assert.Equal(t, item.JobID, got.JobID)
	assert.Equal(t, item.PilotID, got.PilotID)
	assert.True(t, got.Procedures)
	assert.True(t, item.CreatedAt.Equal(got.CreatedAt))
}

func TestDecodeQueueItem_MissingData(t *testing.T) {
	_, err := DecodeQueueItem(map[string]interface{}{"other": 1})
	assert.Error(t, err)
}

func TestTokenSigner_IssueValidate(t *testing.T) {
	signer := NewTokenSigner([]byte("secret"), "fmsuplink")

	token, err := signer.Issue("ops-dashboard", "uplink", time.Hour)
	require.NoError(t, err)

	claims, err := signer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-dashboard", claims.Subject)
	assert.Equal(t, "uplink", claims.Scope)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenSigner_Rejects(t *testing.T) {
	signer := NewTokenSigner([]byte("secret"), "fmsuplink")

	expired, err := signer.Issue("a", "", -time.Minute)
	require.NoError(t, err)
	_, err = signer.Validate(expired)
	assert.Error(t, err)

	other, err := NewTokenSigner([]byte("other"), "fmsuplink").Issue("a", "", time.Hour)
	require.NoError(t, err)
	_, err = signer.Validate(other)
	assert.Error(t, err)

	foreign, err := NewTokenSigner([]byte("secret"), "someone-else").Issue("a", "", time.Hour)
	require.NoError(t, err)
	_, err = signer.Validate(foreign)
	assert.Error(t, err)

	_, err = signer.Validate(strings.Repeat("x", 20))
	assert.Error(t, err)

	_, err = NewTokenSigner(nil, "").Issue("a", "", time.Hour)
	assert.Error(t, err)
}
