package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInput_PresenceMarkers(t *testing.T) {
	in, err := DecodeInput([]byte(`{"firstName":"Anne","email_verified":false,"ship":null}`))
	require.NoError(t, err)

	assert.True(t, in.FirstName.Set)
	assert.Equal(t, "Anne", in.FirstName.Value)
	assert.True(t, in.EmailVerified.Set)
	assert.False(t, in.EmailVerified.Value)
	assert.False(t, in.Ship.Set, "null counts as not supplied")
	assert.False(t, in.Email.Set)
	assert.False(t, in.Password.Set)
	assert.Equal(t, 3, in.Keys)
}

func TestDecodeInput_EmptyPasswordNotSupplied(t *testing.T) {
	in, err := DecodeInput([]byte(`{"password":""}`))
	require.NoError(t, err)
	assert.False(t, in.Password.Set)
	assert.Equal(t, 1, in.Keys)
}

func TestDecodeInput_Empty(t *testing.T) {
	for _, body := range []string{"", "   ", "null"} {
		_, err := DecodeInput([]byte(body))
		assert.ErrorIs(t, err, ErrEmptyBody, "body %q", body)
	}

	in, err := DecodeInput([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, in.Keys)
}

func TestDecodeInput_Invalid(t *testing.T) {
	for _, body := range []string{`[1,2]`, `"str"`, `{"email":`, `{"email":42}`, `{"email_verified":"yes"}`} {
		_, err := DecodeInput([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidBody, "body %q", body)
	}
}

func TestApply_OnlySuppliedFields(t *testing.T) {
	p := &Pyrate{
		ID:           "id-1",
		Email:        "henry.morgan@potc.live",
		FirstName:    Str("Henry"),
		LastName:     Str("Morgan"),
		Ship:         Str("Satisfaction"),
		PasswordHash: "$2a$10$hash",
	}
	in := &PyrateInput{FirstName: Some("Harry")}
	in.Apply(p)

	assert.Equal(t, "Harry", *p.FirstName)
	assert.Equal(t, "Morgan", *p.LastName)
	assert.Equal(t, "henry.morgan@potc.live", p.Email)
	assert.Equal(t, "$2a$10$hash", p.PasswordHash)
	assert.Equal(t, "id-1", p.ID)
}

func TestSanitize_NoPasswordHash(t *testing.T) {
	p := &Pyrate{ID: "x", Email: "a@b.c", PasswordHash: "$2a$10$secret"}
	b, err := json.Marshal(p.Sanitize())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.NotContains(t, string(b), "password")
	assert.JSONEq(t, `{"_id":"x","email":"a@b.c","email_verified":false}`, string(b))

	// 直接序列化记录本身也不会泄露
	b, err = json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
}

func TestParseKey(t *testing.T) {
	assert.Equal(t, Key{Value: "a@b.c", ByEmail: true}, ParseKey("a@b.c"))
	assert.Equal(t, Key{Value: "35059dc7", ByEmail: false}, ParseKey("35059dc7"))
}

func TestClone_Independent(t *testing.T) {
	p := &Pyrate{ID: "x", FirstName: Str("Ned")}
	c := p.Clone()
	*c.FirstName = "Edward"
	assert.Equal(t, "Ned", *p.FirstName)
	assert.Nil(t, (*Pyrate)(nil).Clone())
}
