package patient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeHealthCard(t *testing.T) {
	ref := EncodeHealthCard("HC-1234-5678")

	assert.Len(t, ref, 64)
	assert.NotContains(t, ref, "HC-1234-5678")
	// Deterministic: the same card re-encodes to the same reference.
	assert.Equal(t, ref, EncodeHealthCard("HC-1234-5678"))
	// Surrounding whitespace does not change identity.
	assert.Equal(t, ref, EncodeHealthCard("  HC-1234-5678  "))
	assert.NotEqual(t, ref, EncodeHealthCard("HC-1234-5679"))
}

func TestFullName(t *testing.T) {
	p := &Patient{FirstName: "Ada", LastName: "Nguyen"}
	assert.Equal(t, "Ada Nguyen", p.FullName())

	p = &Patient{FirstName: "Cher"}
	assert.Equal(t, "Cher", p.FullName())
}
