// Package credentials stores encrypted brokerage access tokens in the
// key-value config store.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/secret"
)

// TokenMapKey is the config store key holding every account's token.
const TokenMapKey = "kite_tokens"

// Service implements CredentialStore
type Service struct {
	store  interfaces.ConfigStore
	cipher *secret.Cipher
	logger *common.Logger
	now    func() time.Time

	// The store has no nested-key update, so every write rewrites the whole
	// map. mu serialises writers within this process.
	mu sync.Mutex
}

var _ interfaces.CredentialStore = (*Service)(nil)

// NewService creates a credential store
func NewService(store interfaces.ConfigStore, cipher *secret.Cipher, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		cipher: cipher,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) readTokenMap(ctx context.Context) (models.TokenMap, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read token map: %w", err)
	}

	tokens := models.TokenMap{}
	for _, item := range items {
		if item.Key != TokenMapKey {
			continue
		}
		if len(item.Value) == 0 || string(item.Value) == "null" {
			break
		}
		if err := json.Unmarshal(item.Value, &tokens); err != nil {
			return nil, fmt.Errorf("failed to decode token map: %w", err)
		}
		break
	}
	return tokens, nil
}

// Get returns the decrypted access token for the account. It returns ""
// without error when no token is stored or the stored token cannot be
// decrypted; the caller then treats the account as logged out.
func (s *Service) Get(ctx context.Context, accountID string) (string, error) {
	tokens, err := s.readTokenMap(ctx)
	if err != nil {
		return "", err
	}

	stored, ok := tokens[accountID]
	if !ok || stored.Token == "" {
		return "", nil
	}

	token, err := s.cipher.Decrypt(stored.Token)
	if err != nil {
		// Key rotation or corruption looks the same as being logged out here
		s.logger.Warn().Err(err).Str("account", accountID).Msg("Failed to decrypt stored Kite token")
		return "", nil
	}
	return token, nil
}

// Lookup returns the stored (still encrypted) record for the account
func (s *Service) Lookup(ctx context.Context, accountID string) (*models.StoredToken, error) {
	tokens, err := s.readTokenMap(ctx)
	if err != nil {
		return nil, err
	}
	stored, ok := tokens[accountID]
	if !ok {
		return nil, nil
	}
	return &stored, nil
}

// Set encrypts the token and writes it back with the rest of the map
func (s *Service) Set(ctx context.Context, accountID, token string) error {
	ciphertext, err := s.cipher.Encrypt(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readTokenMap(ctx)
	if err != nil {
		return err
	}

	tokens[accountID] = models.StoredToken{
		Token:     ciphertext,
		UpdatedAt: s.now().UTC(),
	}

	value, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode token map: %w", err)
	}
	if err := s.store.Upsert(ctx, TokenMapKey, value); err != nil {
		return fmt.Errorf("failed to store token map: %w", err)
	}

	s.logger.Info().Str("account", accountID).Msg("Stored Kite access token")
	return nil
}
