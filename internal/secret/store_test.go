package secret_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/secret"
)

type mapStore map[string][]byte

func (m mapStore) Get(key string) ([]byte, error) { return m[key], nil }
func (m mapStore) Set(key string, v []byte) error { m[key] = v; return nil }
func (m mapStore) Delete(key string) error        { delete(m, key); return nil }

func TestEnvName(t *testing.T) {
	assert.Equal(t, "PAGEBUILDER_SECRET_PROD_DB_PASSWORD", secret.EnvName("prod-db.password"))
}

func TestEnvStore(t *testing.T) {
	t.Setenv(secret.EnvName("api"), "tok")
	v, err := secret.EnvStore{}.Get("api")
	require.NoError(t, err)
	assert.Equal(t, "tok", string(v))

	v, err = secret.EnvStore{}.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestChainFallsThrough(t *testing.T) {
	first := mapStore{}
	second := mapStore{"db": []byte("from-second")}
	c := secret.Chain{first, second}

	v, err := c.Get("db")
	require.NoError(t, err)
	assert.Equal(t, "from-second", string(v))

	require.NoError(t, c.Set("db", []byte("from-first")))
	v, err = c.Get("db")
	require.NoError(t, err)
	assert.Equal(t, "from-first", string(v))

	require.NoError(t, c.Delete("db"))
	v, err = c.Get("db")
	require.NoError(t, err)
	assert.Nil(t, v)
}
