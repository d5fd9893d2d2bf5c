package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = 7
	}
	Identity(m)
	for i, v := range m {
		if i%5 == 0 {
			assert.Equal(t, float32(1), v, "diagonal %d", i)
		} else {
			assert.Zero(t, v, "off-diagonal %d", i)
		}
	}
}
