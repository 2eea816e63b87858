package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "15551234567", normalizePhone("whatsapp:+1 (555) 123-4567"))
	assert.Equal(t, "5551234567", normalizePhone("+5551234567"))
}

func TestIsDuplicateWithinWindow(t *testing.T) {
	d := &Dispatcher{seen: make(map[string]time.Time)}

	assert.False(t, d.isDuplicate("SID1"))
	assert.True(t, d.isDuplicate("SID1"), "second delivery within the window is a duplicate")
	assert.False(t, d.isDuplicate("SID2"), "a different MessageSid is never a duplicate")
}
