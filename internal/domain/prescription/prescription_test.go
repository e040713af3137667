package prescription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusDispensed.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.False(t, StatusCreated.IsTerminal())
	assert.False(t, StatusCodeIssued.IsTerminal())
	assert.False(t, StatusNotified.IsTerminal())
}

func TestCanDispense(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusCreated:    false,
		StatusCodeIssued: true,
		StatusNotified:   true,
		StatusDispensed:  false,
		StatusExpired:    false,
	} {
		p := &Prescription{Status: status}
		assert.Equal(t, want, p.CanDispense(), "status %s", status)
	}
}

func TestIsExpired(t *testing.T) {
	expiry := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := &Prescription{ExpiresAt: expiry}

	assert.False(t, p.IsExpired(expiry.Add(-time.Second)))
	// The expiry instant itself is still valid.
	assert.False(t, p.IsExpired(expiry))
	assert.True(t, p.IsExpired(expiry.Add(time.Second)))
}
