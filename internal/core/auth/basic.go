package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"pyrates-identitydb/internal/domain"
	"pyrates-identitydb/pkg/utils"
)

// Decision 鉴权结果
type Decision string

const (
	Denied   Decision = "denied"
	Secret   Decision = "secret"
	Password Decision = "password"
)

func (d Decision) Allowed() bool { return d != Denied }

var authDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "identitydb_auth_decisions_total", Help: "Basic auth decisions by result"},
	[]string{"result"},
)

func init() { prometheus.MustRegister(authDecisions) }

// ParseBasic 解析 Authorization: Basic base64(user:pass)，scheme 大小写不敏感
func ParseBasic(header string) (username, password string, ok bool) {
	const prefix = "basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	enc := strings.TrimSpace(header[len(prefix):])
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(enc)
		if err != nil {
			return "", "", false
		}
	}
	username, password, ok = strings.Cut(string(raw), ":")
	return username, password, ok
}

// Verifier 服务密钥或记录口令二选一即可通过
type Verifier struct {
	Secret []byte
	Hasher utils.PasswordHasher
}

func NewVerifier(secret string, h utils.PasswordHasher) *Verifier {
	if h == nil {
		h = utils.NewBcrypt()
	}
	return &Verifier{Secret: []byte(secret), Hasher: h}
}

// Verify 只使用凭据中的口令部分，用户名被忽略。
// target 为 nil 时只有服务密钥能通过；err 仅表示哈希后端故障。
func (v *Verifier) Verify(password string, target *domain.Pyrate) (Decision, error) {
	d, err := v.decide(password, target)
	if err == nil {
		authDecisions.WithLabelValues(string(d)).Inc()
	}
	return d, err
}

func (v *Verifier) decide(password string, target *domain.Pyrate) (Decision, error) {
	if password == "" {
		return Denied, nil
	}
	if len(v.Secret) > 0 && subtle.ConstantTimeCompare([]byte(password), v.Secret) == 1 {
		return Secret, nil
	}
	if target == nil || !target.HasPassword() {
		return Denied, nil
	}
	ok, err := v.Hasher.Verify(password, target.PasswordHash)
	if err != nil {
		return Denied, err
	}
	if ok {
		return Password, nil
	}
	return Denied, nil
}
