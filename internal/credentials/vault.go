package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no credential is stored for a tenant and platform.
var ErrNotFound = errors.New("credential not found")

// Credential is what a platform client needs to act on a tenant's behalf.
type Credential struct {
	// Cookies is Netscape cookies.txt content.
	Cookies string `json:"cookies"`
}

// Store persists sealed credential blobs. Get returns ErrNotFound when absent.
type Store interface {
	GetSealedCredential(ctx context.Context, tenantID, platform string) ([]byte, error)
	PutSealedCredential(ctx context.Context, tenantID, platform string, sealed []byte) error
}

// Vault seals credentials on write and opens them on read.
type Vault struct {
	store  Store
	sealer *Sealer
}

func NewVault(store Store, sealer *Sealer) *Vault {
	return &Vault{store: store, sealer: sealer}
}

func associatedData(tenantID, platform string) []byte {
	return []byte(tenantID + "|" + platform)
}

func (v *Vault) Get(ctx context.Context, tenantID, platform string) (*Credential, error) {
	if v == nil || v.sealer == nil {
		return nil, ErrNotFound
	}
	sealed, err := v.store.GetSealedCredential(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	plain, err := v.sealer.Open(sealed, associatedData(tenantID, platform))
	if err != nil {
		return nil, fmt.Errorf("open credential for %s/%s: %w", tenantID, platform, err)
	}
	var c Credential
	if err := json.Unmarshal(plain, &c); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &c, nil
}

func (v *Vault) Put(ctx context.Context, tenantID, platform string, c Credential) error {
	if v == nil || v.sealer == nil {
		return errors.New("credential sealing is not configured")
	}
	c.Cookies = NormalizeCookies(c.Cookies)
	plain, err := json.Marshal(c)
	if err != nil {
		return err
	}
	sealed, err := v.sealer.Seal(plain, associatedData(tenantID, platform))
	if err != nil {
		return err
	}
	return v.store.PutSealedCredential(ctx, tenantID, platform, sealed)
}

const cookiesHeader = "# Netscape HTTP Cookie File"

// NormalizeCookies unifies line endings, drops malformed lines, and ensures
// the Netscape header yt-dlp expects.
func NormalizeCookies(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := []string{cookiesHeader}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		// domain, flag, path, secure, expiration, name, value
		if len(strings.Split(trimmed, "\t")) < 7 {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, "\n") + "\n"
}
