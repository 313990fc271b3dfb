package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestESP32_Check(t *testing.T) {
	tests := []struct {
		name    string
		pin     Pin
		need    []Capability
		wantErr bool
	}{
		{"adc1 analog", 32, []Capability{Analog}, false},
		{"input only analog", 35, []Capability{Analog}, false},
		{"input only as output", 35, []Capability{Output}, true},
		{"adc2 pin as analog", 25, []Capability{Analog}, true},
		{"plain output", 26, []Capability{Output}, false},
		{"flash pin", 6, []Capability{Output}, true},
		{"missing pin", 24, nil, true},
		{"out of range", 40, nil, true},
		{"negative", -1, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ESP32.Check(tc.pin, tc.need...)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestESP32_Strapping(t *testing.T) {
	assert.True(t, ESP32.IsStrapping(5))
	assert.True(t, ESP32.IsStrapping(12))
	assert.False(t, ESP32.IsStrapping(13))
	assert.False(t, ESP32.IsStrapping(99))
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "input+analog", (Input | Analog).String())
	assert.Equal(t, "none", Capability(0).String())
}
