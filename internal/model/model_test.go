package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthToken(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	tok := NewAuthToken(&LoginResponse{Token: "abc", RefreshToken: "r", ExpiresIn: 3600}, now)
	assert.Equal(t, "Bearer abc", tok.Token)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.Equal(t, time.UTC, tok.Expiration.Location())
	assert.True(t, tok.Expiration.Equal(now.Add(time.Hour)))

	tok = NewAuthToken(&LoginResponse{Token: "Bearer abc", RefreshToken: "r", ExpiresIn: 1}, now)
	assert.Equal(t, "Bearer abc", tok.Token)
}

func TestAuthToken_Valid(t *testing.T) {
	exp := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	tok := AuthToken{Token: "Bearer x", Expiration: exp}
	assert.True(t, tok.Valid(exp.Add(-time.Second)))
	assert.False(t, tok.Valid(exp))
	assert.False(t, AuthToken{}.Valid(exp))
	assert.True(t, AuthToken{}.IsZero())
	assert.False(t, tok.IsZero())
}

func TestLoginResponse_Validate(t *testing.T) {
	assert.NoError(t, (&LoginResponse{Token: "t", RefreshToken: "r", ExpiresIn: 10}).Validate())
	assert.Error(t, (&LoginResponse{RefreshToken: "r", ExpiresIn: 10}).Validate())
	assert.Error(t, (&LoginResponse{Token: "t", ExpiresIn: 10}).Validate())
	assert.Error(t, (&LoginResponse{Token: "t", RefreshToken: "r"}).Validate())
}

func TestCredentials_StringRedactsPassword(t *testing.T) {
	c := Credentials{Username: "reader@example.com", Password: "hunter2"}
	assert.NotContains(t, c.String(), "hunter2")
	assert.Contains(t, c.String(), "reader@example.com")
}

func TestBookFormat_Unmarshal(t *testing.T) {
	var e Edition
	require.NoError(t, json.Unmarshal([]byte(`{"isbn":"1","format":"eBook"}`), &e))
	assert.Equal(t, FormatEBook, e.Format)
	assert.Equal(t, ExtEBook, e.Format.Extension())

	require.NoError(t, json.Unmarshal([]byte(`{"isbn":"2","format":"audioBook"}`), &e))
	assert.Equal(t, ExtAudioBook, e.Format.Extension())

	err := json.Unmarshal([]byte(`{"isbn":"3","format":"podcast"}`), &e)
	assert.ErrorContains(t, err, `unknown book format "podcast"`)
}

func TestLicense_Locations(t *testing.T) {
	var lic License
	require.NoError(t, json.Unmarshal([]byte(`{"isbn":"A","filesize":5,"_links":{"stream":{"href":"https://s"}}}`), &lic))
	require.NoError(t, lic.Validate())
	_, ok := lic.DownloadURL()
	assert.False(t, ok)
	u, ok := lic.StreamURL()
	assert.True(t, ok)
	assert.Equal(t, "https://s", u)

	lic = License{ISBN: "A", Links: LicenseLinks{Download: &Link{}}}
	_, ok = lic.DownloadURL()
	assert.False(t, ok)

	assert.Error(t, (&License{}).Validate())
	assert.Error(t, (&License{ISBN: "A", FileSize: -1}).Validate())
}

func TestParseSizePolicy(t *testing.T) {
	cases := map[string]SizePolicy{
		"":         SizePolicyWarn,
		"warn":     SizePolicyWarn,
		" Enforce": SizePolicyEnforce,
		"IGNORE":   SizePolicyIgnore,
	}
	for in, want := range cases {
		got, ok := ParseSizePolicy(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSizePolicy("strict")
	assert.False(t, ok)
}

func TestFormats_Wants(t *testing.T) {
	f := Formats{Audio: true}
	assert.True(t, f.Wants(FormatAudioBook))
	assert.False(t, f.Wants(FormatEBook))
	assert.False(t, f.Wants(BookFormat("other")))
}

func TestArgs_HasSources(t *testing.T) {
	assert.False(t, (&Args{}).HasSources())
	assert.True(t, (&Args{Queries: []string{"x"}}).HasSources())
	assert.True(t, (&Args{IDFile: "ids.txt"}).HasSources())
}

func TestStatus_Validate(t *testing.T) {
	assert.NoError(t, (&Status{Type: StatusHealthy}).Validate())
	assert.Error(t, (&Status{}).Validate())
}

func TestUser_SubscribedRequiresRecord(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b"}`), &u))
	assert.Error(t, u.Validate())
	assert.False(t, u.Subscribed())

	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b","_embedded":{"subscriptioninfo":{"validsubscription":true}}}`), &u))
	assert.NoError(t, u.Validate())
	assert.True(t, u.Subscribed())
}

func TestSearch_ValidateDistinguishesEmptyFromMissing(t *testing.T) {
	var empty, missing Search
	require.NoError(t, json.Unmarshal([]byte(`{"count":0,"_embedded":{"books":[]}}`), &empty))
	require.NoError(t, json.Unmarshal([]byte(`{"count":0,"_embedded":{"books":null}}`), &missing))
	assert.NoError(t, empty.Validate())
	assert.Error(t, missing.Validate())
}
