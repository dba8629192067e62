package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-lms/core/user"
)

func TestFields(t *testing.T) {
	l := NewNop()
	err := errors.New("boom")
	usr := user.User{ID: "u1", Username: "amy"}
	other := user.User{ID: "u2", Username: "zed"}

	kv, remote := l.fields("msg", []interface{}{err, usr, map[string]interface{}{"batch": "fr-a1"}, other, 42})

	assert.Equal(t, []interface{}{"error", err, "user", "amy", "batch", "fr-a1", "extra", 42}, kv)
	assert.Equal(t, []interface{}{"msg", err, map[string]interface{}{"batch": "fr-a1"}, 42}, remote)
}
