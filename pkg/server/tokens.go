package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// DefaultTokensPath is the token file consulted by the streamable-HTTP
// transport, relative to the server's working directory.
const DefaultTokensPath = ".tokens"

const tokenPrefix = "jmcp_"

// tokenRecord is one entry in the tokens file, keyed by token ID.
type tokenRecord struct {
	Token       string `json:"token"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// TokenInfo describes a token without exposing its value.
type TokenInfo struct {
	ID          string
	Description string
	Created     string
}

// TokenStore manages API tokens in a JSON file. Every call re-reads the
// file, so tokens generated or revoked while the server runs take effect
// on the next request.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	if path == "" {
		path = DefaultTokensPath
	}
	return &TokenStore{path: path}
}

func (s *TokenStore) load() (map[string]tokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]tokenRecord{}, nil
		}
		return nil, fmt.Errorf("reading token file %s: %w", s.path, err)
	}
	tokens := map[string]tokenRecord{}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", s.path, err)
	}
	return tokens, nil
}

func (s *TokenStore) save(tokens map[string]tokenRecord) error {
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Generate creates a new token under id and returns its value. The value
// is only available here; List never shows it again.
func (s *TokenStore) Generate(id, description string) (string, error) {
	tokens, err := s.load()
	if err != nil {
		return "", err
	}
	if _, exists := tokens[id]; exists {
		return "", util.ConflictError("token ID %q already exists", id)
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token := tokenPrefix + base64.RawURLEncoding.EncodeToString(raw)

	if description == "" {
		description = "Token for " + id
	}
	tokens[id] = tokenRecord{
		Token:       token,
		Description: description,
		Created:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.save(tokens); err != nil {
		return "", err
	}
	return token, nil
}

// List returns token metadata without values.
func (s *TokenStore) List() ([]TokenInfo, error) {
	tokens, err := s.load()
	if err != nil {
		return nil, err
	}
	infos := make([]TokenInfo, 0, len(tokens))
	for id, rec := range tokens {
		infos = append(infos, TokenInfo{ID: id, Description: rec.Description, Created: rec.Created})
	}
	return infos, nil
}

// Revoke deletes the token under id.
func (s *TokenStore) Revoke(id string) error {
	tokens, err := s.load()
	if err != nil {
		return err
	}
	if _, exists := tokens[id]; !exists {
		return util.NotFoundError("token ID %q not found", id)
	}
	delete(tokens, id)
	return s.save(tokens)
}

// HasTokens reports whether the file holds at least one token. A missing,
// empty, or unreadable file counts as no tokens.
func (s *TokenStore) HasTokens() bool {
	tokens, err := s.load()
	return err == nil && len(tokens) > 0
}

// Validate reports whether token matches any stored token value.
func (s *TokenStore) Validate(token string) bool {
	tokens, err := s.load()
	if err != nil {
		return false
	}
	for _, rec := range tokens {
		if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
