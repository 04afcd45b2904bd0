package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/auth"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, fromUsername, toUsername, text string) (models.Message, error) {
	args := m.Called(ctx, fromUsername, toUsername, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Thread(ctx context.Context, userA, userB string) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) AllForUser(ctx context.Context, username string) ([]models.Message, error) {
	args := m.Called(ctx, username)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) All(ctx context.Context) ([]models.Message, error) {
	args := m.Called(ctx)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type TokenVerifierMock struct {
	mock.Mock
}

func (m *TokenVerifierMock) Verify(token string) (auth.Identity, error) {
	args := m.Called(token)
	var identity auth.Identity
	if val := args.Get(0); val != nil {
		identity = val.(auth.Identity)
	}
	return identity, args.Error(1)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ auth.TokenVerifier = (*TokenVerifierMock)(nil)
