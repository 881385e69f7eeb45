package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClone(t *testing.T) {
	assert.Nil(t, Clone[int64](nil))

	orig := To(int64(56))
	clone := Clone(orig)
	assert.Equal(t, int64(56), *clone)
	*clone = 57
	assert.Equal(t, int64(56), *orig)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *int64
		want bool
	}{
		{"both nil", nil, nil, true},
		{"left nil", nil, To(int64(1)), false},
		{"right nil", To(int64(1)), nil, false},
		{"same value", To(int64(23432)), To(int64(23432)), true},
		{"different value", To(int64(23432)), To(int64(23437)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestValue(t *testing.T) {
	assert.Equal(t, "", Value[string](nil))
	assert.Equal(t, "BUS", Value(To("BUS")))
}
