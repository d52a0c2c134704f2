package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCorrectsInvalidNumbers(t *testing.T) {
	t.Parallel()
	got, corrected := Config{IntervalMinutes: 0, ItemsPerRun: -3}.Normalize()
	assert.True(t, corrected)
	assert.Equal(t, DefaultIntervalMinutes, got.IntervalMinutes)
	assert.Equal(t, 1, got.ItemsPerRun)

	got, corrected = Config{IntervalMinutes: -10, ItemsPerRun: 4}.Normalize()
	assert.True(t, corrected)
	assert.Equal(t, 75, got.IntervalMinutes)
	assert.Equal(t, 4, got.ItemsPerRun)
}

func TestNormalizeCleansFilters(t *testing.T) {
	t.Parallel()
	got, corrected := Config{
		IntervalMinutes: 5,
		ItemsPerRun:     2,
		TypeFilter:      []string{" post ", "", "page", "post"},
		CategoryFilter:  []int64{3, 0, -1, 3, 9},
	}.Normalize()
	assert.False(t, corrected)
	assert.Equal(t, []string{"post", "page"}, got.TypeFilter)
	assert.Equal(t, []int64{3, 9}, got.CategoryFilter)
}

func TestEffectiveTypes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"post"}, Config{}.EffectiveTypes(DefaultTypes))
	assert.Equal(t, []string{"page"}, Config{TypeFilter: []string{"page"}}.EffectiveTypes(DefaultTypes))
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	d := Defaults()
	assert.Equal(t, 75, d.IntervalMinutes)
	assert.Equal(t, 1, d.ItemsPerRun)
	assert.Equal(t, []string{"post"}, d.TypeFilter)
	assert.True(t, d.LoggingEnabled)

	n, corrected := d.Normalize()
	assert.False(t, corrected)
	assert.True(t, n.Equal(d))
}
