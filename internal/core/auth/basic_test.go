package auth

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrates-identitydb/internal/domain"
	"pyrates-identitydb/pkg/utils"
)

func basic(userpass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(userpass))
}

type brokenHasher struct{}

func (brokenHasher) Hash(string) (string, error) { return "", errors.New("hash backend down") }
func (brokenHasher) Verify(string, string) (bool, error) { return false, errors.New("verify backend down") }

// verifyHeader 与请求链路一致：中间件取出口令，再交给 Verifier
func verifyHeader(v *Verifier, header string, target *domain.Pyrate) (Decision, error) {
	_, pw, _ := ParseBasic(header)
	return v.Verify(pw, target)
}

func TestParseBasic(t *testing.T) {
	cases := []struct {
		name   string
		header string
		user   string
		pass   string
		ok     bool
	}{
		{"standard", basic("anne@potc.live:P!rates17"), "anne@potc.live", "P!rates17", true},
		{"lowercase scheme", "basic " + base64.StdEncoding.EncodeToString([]byte(":fake-secret")), "", "fake-secret", true},
		{"upper scheme", "BASIC " + base64.StdEncoding.EncodeToString([]byte("u:p")), "u", "p", true},
		{"colon in password", basic("u:a:b"), "u", "a:b", true},
		{"unpadded", "Basic " + base64.RawStdEncoding.EncodeToString([]byte("u:pw")), "u", "pw", true},
		{"empty header", "", "", "", false},
		{"bearer", "Bearer abc", "", "", false},
		{"not base64", "basic abc", "", "", false},
		{"no colon", basic("justuser"), "", "", false},
		{"scheme only", "Basic", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, p, ok := ParseBasic(tc.header)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.user, u)
				assert.Equal(t, tc.pass, p)
			}
		})
	}
}

func TestVerifier_Secret(t *testing.T) {
	v := NewVerifier("fake-secret", utils.Bcrypt{Cost: 4})

	d, err := verifyHeader(v, basic(":fake-secret"), nil)
	require.NoError(t, err)
	assert.Equal(t, Secret, d)

	// 用户名被忽略
	d, err = verifyHeader(v, basic("whoever@potc.live:fake-secret"), nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed())

	d, err = verifyHeader(v, basic(":wrong"), nil)
	require.NoError(t, err)
	assert.Equal(t, Denied, d)

	d, err = verifyHeader(v, "", nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed())
}

func TestVerifier_Password(t *testing.T) {
	h := utils.Bcrypt{Cost: 4}
	hash, err := h.Hash("x")
	require.NoError(t, err)
	target := &domain.Pyrate{ID: "1", Email: "a@b.c", PasswordHash: hash}
	v := NewVerifier("fake-secret", h)

	d, err := verifyHeader(v, basic("a@b.c:x"), target)
	require.NoError(t, err)
	assert.Equal(t, Password, d)

	d, err = verifyHeader(v, basic("a@b.c:y"), target)
	require.NoError(t, err)
	assert.Equal(t, Denied, d)

	// 没有目标记录时口令无效
	d, err = verifyHeader(v, basic("a@b.c:x"), nil)
	require.NoError(t, err)
	assert.Equal(t, Denied, d)

	// 服务密钥对任何目标都有效
	d, err = verifyHeader(v, basic(":fake-secret"), target)
	require.NoError(t, err)
	assert.Equal(t, Secret, d)
}

func TestVerifier_RecordWithoutPassword(t *testing.T) {
	v := NewVerifier("fake-secret", brokenHasher{})
	target := &domain.Pyrate{ID: "1", Email: "a@b.c"}

	d, err := v.Verify("anything", target)
	require.NoError(t, err, "hasher must not be consulted for a record without hash")
	assert.Equal(t, Denied, d)
}

func TestVerifier_EmptyPasswordNeverAllowed(t *testing.T) {
	v := NewVerifier("", utils.Bcrypt{Cost: 4})
	d, err := verifyHeader(v, basic("user:"), nil)
	require.NoError(t, err)
	assert.Equal(t, Denied, d)
}

func TestVerifier_BackendFailure(t *testing.T) {
	v := NewVerifier("fake-secret", brokenHasher{})
	target := &domain.Pyrate{ID: "1", Email: "a@b.c", PasswordHash: "$2a$10$abc"}

	_, err := v.Verify("not-the-secret", target)
	assert.Error(t, err)

	// 密钥匹配时不触达后端
	d, err := v.Verify("fake-secret", target)
	require.NoError(t, err)
	assert.Equal(t, Secret, d)
}
