package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDisputeID(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)

	id := NewDisputeID(now)
	assert.Regexp(t, regexp.MustCompile(`^DSP-20260310150405-[0-9a-f]{4}$`), id)

	// Суффикс случайный, идентификаторы в одну секунду не совпадают.
	other := NewDisputeID(now)
	assert.NotEqual(t, id, other)
}

func TestDispute_IsResolved(t *testing.T) {
	d := &Dispute{Status: DisputeStatusUnderReview}
	assert.False(t, d.IsResolved())

	d.Status = DisputeStatusResolved
	assert.True(t, d.IsResolved())
}
