package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukex/newscast/pkg/models"
)

func TestArticleTransitions(t *testing.T) {
	cases := []struct {
		from    models.ArticleStatus
		to      models.ArticleStatus
		allowed bool
	}{
		{models.ArticleStatusDraft, models.ArticleStatusApproved, true},
		{models.ArticleStatusDraft, models.ArticleStatusArchived, true},
		{models.ArticleStatusDraft, models.ArticleStatusScheduled, false},
		{models.ArticleStatusDraft, models.ArticleStatusBroadcasted, false},
		{models.ArticleStatusApproved, models.ArticleStatusScheduled, true},
		{models.ArticleStatusApproved, models.ArticleStatusApproved, true},
		{models.ArticleStatusApproved, models.ArticleStatusDraft, false},
		{models.ArticleStatusScheduled, models.ArticleStatusBroadcasted, true},
		{models.ArticleStatusScheduled, models.ArticleStatusApproved, false},
		{models.ArticleStatusBroadcasted, models.ArticleStatusArchived, true},
		{models.ArticleStatusArchived, models.ArticleStatusDraft, false},
		{models.ArticleStatusArchived, models.ArticleStatusArchived, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestBroadcastTransitions(t *testing.T) {
	cases := []struct {
		from    models.BroadcastStatus
		to      models.BroadcastStatus
		allowed bool
	}{
		{models.BroadcastStatusScheduled, models.BroadcastStatusPreparing, true},
		{models.BroadcastStatusScheduled, models.BroadcastStatusReady, true},
		{models.BroadcastStatusScheduled, models.BroadcastStatusCompleted, false},
		{models.BroadcastStatusPreparing, models.BroadcastStatusReady, true},
		{models.BroadcastStatusPreparing, models.BroadcastStatusFailed, true},
		{models.BroadcastStatusPreparing, models.BroadcastStatusScheduled, false},
		{models.BroadcastStatusReady, models.BroadcastStatusCompleted, true},
		{models.BroadcastStatusReady, models.BroadcastStatusPreparing, false},
		{models.BroadcastStatusFailed, models.BroadcastStatusScheduled, true},
		{models.BroadcastStatusFailed, models.BroadcastStatusReady, false},
		{models.BroadcastStatusCompleted, models.BroadcastStatusScheduled, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, models.PriorityUrgent.Rank(), models.PriorityHigh.Rank())
	assert.Greater(t, models.PriorityHigh.Rank(), models.PriorityNormal.Rank())
	assert.Greater(t, models.PriorityNormal.Rank(), models.PriorityLow.Rank())
	assert.Zero(t, models.Priority("BOGUS").Rank())
}
