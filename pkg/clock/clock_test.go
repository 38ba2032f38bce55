package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystem_DefaultTimezone(t *testing.T) {
	c, err := NewSystem("")
	require.NoError(t, err)

	assert.Equal(t, DefaultTimezone, c.Location().String())
	assert.Equal(t, DefaultTimezone, c.Now().Location().String())
}

func TestNewSystem_UnknownTimezone(t *testing.T) {
	_, err := NewSystem("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestFixed_AdvanceAndSet(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	assert.Equal(t, start, c.Now())

	c.Advance(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
