package course

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dumeirei/edu-backoffice/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.TrialStatusRegistered, models.TrialStatusScheduled, true},
		{models.TrialStatusRegistered, models.TrialStatusMisOperation, true},
		{models.TrialStatusScheduled, models.TrialStatusCompleted, true},
		{models.TrialStatusCompleted, models.TrialStatusConverted, true},
		{models.TrialStatusScheduled, models.TrialStatusConverted, false},
		{models.TrialStatusCompleted, models.TrialStatusRegistered, false},
		{models.TrialStatusConverted, models.TrialStatusRefunded, false},
		{models.TrialStatusNotRegistered, models.TrialStatusRegistered, false},
		{models.TrialStatusMisOperation, models.TrialStatusRegistered, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusSets(t *testing.T) {
	for _, s := range []string{
		models.TrialStatusConverted,
		models.TrialStatusRefunded,
		models.TrialStatusNoAction,
		models.TrialStatusMisOperation,
		models.TrialStatusNotRegistered,
	} {
		assert.True(t, IsTerminal(s), s)
	}
	assert.False(t, IsTerminal(models.TrialStatusRegistered))

	assert.True(t, IsInitialStatus(models.TrialStatusScheduled))
	assert.False(t, IsInitialStatus(models.TrialStatusConverted))
	assert.False(t, IsInitialStatus(models.TrialStatusMisOperation))

	assert.True(t, IsValidStatus(models.TrialStatusNoAction))
	assert.False(t, IsValidStatus("unknown"))
}
