package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetFixed(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	restore := Set(Fixed(at))
	assert.True(t, Now().Equal(at))
	assert.Equal(t, time.UTC, UTCNow().Location())
	assert.True(t, UTCNow().Equal(at))

	restore()
	_, isSystem := Default.(systemClock)
	assert.True(t, isSystem)
}
