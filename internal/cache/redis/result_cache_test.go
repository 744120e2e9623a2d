package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ddtft/internal/cache/redis"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "ddtft:extraction:abc", redis.Key("", "abc"))
	assert.Equal(t, "test:extraction:abc", redis.Key("test:", "abc"))
}
