package repository

import (
	"context"
	"testing"

	"medinotes/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func TestConversationRepository_SelectExcludesIncompleteTurns(t *testing.T) {
	repo := NewPostgreSQLConversationRepository(nil, "messages", 50)

	query := repo.selectQuery()
	assert.Contains(t, query, "query IS NOT NULL", "half-written turns must not surface")
	assert.Contains(t, query, "response IS NOT NULL", "half-written turns must not surface")
	assert.Contains(t, query, "role = 'assistant'")
	assert.Contains(t, query, "deleted_at IS NULL")
	assert.Contains(t, query, "LIMIT 50")
	assert.Contains(t, query, "FROM messages")
}

func TestConversationRepository_IsReadOnly(t *testing.T) {
	repo := NewPostgreSQLConversationRepository(nil, "messages", 0)

	assert.True(t, repo.ReadOnly())
	assert.ErrorIs(t, repo.Set(context.Background(), "s", nil), ErrReadOnly)
	assert.ErrorIs(t, repo.Add(context.Background(), "s", entity.ConversationRecord{}), ErrReadOnly)
	assert.ErrorIs(t, repo.Clear(context.Background(), "s"), ErrReadOnly)
}
