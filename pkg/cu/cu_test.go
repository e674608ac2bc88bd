package cu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMeter_Consume(t *testing.T) {
	cm := NewComputeMeter(1000)
	assert.NoError(t, cm.Consume(400))
	assert.Equal(t, uint64(400), cm.Used())
	assert.Equal(t, uint64(600), cm.Remaining())

	assert.ErrorIs(t, cm.Consume(601), ErrComputeExceeded)
	assert.True(t, cm.Exceeded())
	assert.Equal(t, uint64(1000), cm.Used())

	// stays exhausted
	assert.ErrorIs(t, cm.Consume(0), ErrComputeExceeded)
}
