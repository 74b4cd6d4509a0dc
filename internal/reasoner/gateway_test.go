package reasoner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_DoublesEachAttemptUntilCap(t *testing.T) {
	base := 2 * time.Second
	cap := 10 * time.Second

	assert.Equal(t, 2*time.Second, backoff(1, base, cap))
	assert.Equal(t, 4*time.Second, backoff(2, base, cap))
	assert.Equal(t, 8*time.Second, backoff(3, base, cap))
}

func TestBackoff_ClampsAtCap(t *testing.T) {
	base := 2 * time.Second
	cap := 10 * time.Second

	assert.Equal(t, cap, backoff(4, base, cap))
	assert.Equal(t, cap, backoff(10, base, cap))
}
