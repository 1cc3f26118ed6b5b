package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConfirmation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "paid", text: "I have PAID", want: true},
		{name: "payment phrase", text: "payment done via ecocash", want: true},
		{name: "proof of payment", text: "attached proof of payment", want: true},
		{name: "pop", text: "sent the POP", want: true},
		{name: "ecocash reference", text: "ref MP240611.1532.H12345", want: true},
		{name: "plain words", text: "thank you so much", want: false},
		{name: "long word without digit", text: "wonderful", want: false},
		{name: "phone number only", text: "263771234567", want: false},
		{name: "pop inside word", text: "popular items", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConfirmation(tt.text))
		})
	}
}

func TestReference(t *testing.T) {
	assert.Equal(t, "MP240611.1532.H12345", Reference("my ref is MP240611.1532.H12345."))
	assert.Equal(t, "ECO-7731AB", Reference("ECO-7731AB"))
	assert.Equal(t, "", Reference("AB12"))
	assert.Equal(t, "", Reference("1234567"))
}
