package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct {
		name, in, user, pass, want string
	}{
		{"empty", "", "", "", ""},
		{"driver dsn untouched", "u:p@tcp(db:3306)/identitydb?parseTime=true", "", "", "u:p@tcp(db:3306)/identitydb?parseTime=true"},
		{
			"jdbc url",
			"jdbc:mysql://root:pw@localhost:3306/identitydb?useUnicode=true&characterEncoding=utf8&useSSL=false&serverTimezone=UTC",
			"", "",
			"root:pw@tcp(localhost:3306)/identitydb?charset=utf8&loc=UTC&parseTime=true&tls=false",
		},
		{
			"override credentials",
			"mysql://root:pw@localhost:3306/identitydb",
			"app", "s3",
			"app:s3@tcp(localhost:3306)/identitydb?charset=utf8mb4&parseTime=true",
		},
		{
			"credentials from query",
			"mysql://localhost:3306/identitydb?user=q&password=w",
			"", "",
			"q:w@tcp(localhost:3306)/identitydb?charset=utf8mb4&parseTime=true",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeMySQLDSN(tc.in, tc.user, tc.pass))
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "root:****@tcp(localhost:3306)/db", maskDSN("root:pw@tcp(localhost:3306)/db"))
	assert.Equal(t, "root@tcp(localhost:3306)/db", maskDSN("root@tcp(localhost:3306)/db"))
	assert.Equal(t, "tcp(localhost:3306)/db", maskDSN("tcp(localhost:3306)/db"))
}

func TestDialector(t *testing.T) {
	_, err := Dialector(Opts{Driver: "sqlite"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	d, err := Dialector(Opts{Driver: "postgres", DSN: "postgres://localhost/identitydb"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Dialector(Opts{Driver: "mysql", DSN: "mysql://root:pw@localhost:3306/identitydb"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())
}

func TestGormLevel(t *testing.T) {
	assert.NotEqual(t, gormLevel("info"), gormLevel("silent"))
	assert.Equal(t, gormLevel("warn"), gormLevel("unknown"))
}
