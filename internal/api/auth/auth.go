// Package auth resolves caller identity from request credentials.
// Workers present opaque session tokens, agents present API keys;
// both resolve against the database. Credential issuance and rotation
// live outside this service.
package auth

import (
	"context"

	"github.com/taskpin/taskpin-be/internal/api/domain"
)

// WorkerIdentity is an authenticated worker caller.
type WorkerIdentity struct {
	ID         string
	TrustLevel domain.TrustLevel
}

// AgentIdentity is an authenticated agent caller. Key is retained so
// escrow holds can be opened against the agent's ledger account.
type AgentIdentity struct {
	ID  string
	Key string
}

// WorkerAuthenticator resolves a worker session token.
type WorkerAuthenticator interface {
	AuthenticateWorker(ctx context.Context, token string) (*WorkerIdentity, error)
}

// AgentAuthenticator resolves an agent API key.
type AgentAuthenticator interface {
	AuthenticateAgent(ctx context.Context, key string) (*AgentIdentity, error)
}
