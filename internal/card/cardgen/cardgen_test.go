package cardgen

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number, err := GenerateNumber()
		require.NoError(t, err)

		assert.Len(t, number, NumberLength)
		assert.True(t, strings.HasPrefix(number, Prefix))
		for _, r := range number {
			assert.True(t, r >= '0' && r <= '9', "non-digit %q in %q", r, number)
		}
		seen[number] = true
	}
	// 100 draws over 10^12 possibilities colliding would indicate broken randomness.
	assert.Greater(t, len(seen), 95)
}

func TestGenerateCVV(t *testing.T) {
	for i := 0; i < 100; i++ {
		cvv, err := GenerateCVV()
		require.NoError(t, err)
		require.Len(t, cvv, 3)

		n, err := strconv.Atoi(cvv)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100)
		assert.LessOrEqual(t, n, 999)
	}
}

func TestLastFour(t *testing.T) {
	assert.Equal(t, "3456", LastFour("4111222233333456"))
	assert.Equal(t, "123", LastFour("123"))
}
