package application

import (
	"encoding/hex"
	"fmt"
	"strings"

	"thirdcoast.systems/scout/internal/config"
	"thirdcoast.systems/scout/internal/credentials"
)

// InitCredentialSealer builds the sealer for stored platform credentials.
// CREDENTIALS_KEY must be a 64-character hex string (32 bytes). It returns
// nil without error when no key is configured; credential lookups then
// report every credential as missing.
func InitCredentialSealer(conf config.Config) (*credentials.Sealer, error) {
	keyHex := strings.TrimSpace(conf.CredentialsKeyHex)
	if keyHex == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid CREDENTIALS_KEY format (must be 64-char hex string): %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("CREDENTIALS_KEY must be exactly 32 bytes (64 hex chars), got %d bytes", len(key))
	}

	sealer, err := credentials.NewSealer(credentials.CipherType(strings.ToLower(conf.CredentialsCipher)), key)
	if err != nil {
		return nil, fmt.Errorf("create credential sealer: %w", err)
	}
	return sealer, nil
}
