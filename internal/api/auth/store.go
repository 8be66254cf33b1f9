package auth

import (
	"context"

	"github.com/taskpin/taskpin-be/internal/api/model"
)

// ProfileStore is the slice of the storage layer the store-backed
// authenticator needs.
type ProfileStore interface {
	GetWorkerBySessionToken(ctx context.Context, token string) (*model.WorkerProfile, error)
	GetAgentByKey(ctx context.Context, apiKey string) (*model.AgentProfile, error)
}

// StoreAuthenticator resolves credentials against the database.
type StoreAuthenticator struct {
	store ProfileStore
}

// NewStoreAuthenticator creates a database-backed authenticator.
func NewStoreAuthenticator(store ProfileStore) *StoreAuthenticator {
	return &StoreAuthenticator{store: store}
}

// AuthenticateWorker resolves a session token to a worker identity.
func (a *StoreAuthenticator) AuthenticateWorker(ctx context.Context, token string) (*WorkerIdentity, error) {
	profile, err := a.store.GetWorkerBySessionToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &WorkerIdentity{ID: profile.ID, TrustLevel: profile.TrustLevel}, nil
}

// AuthenticateAgent resolves an API key to an agent identity.
func (a *StoreAuthenticator) AuthenticateAgent(ctx context.Context, key string) (*AgentIdentity, error) {
	profile, err := a.store.GetAgentByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	return &AgentIdentity{ID: profile.ID, Key: key}, nil
}
