package schwab

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// accountNumberSource fetches the raw account-number listing from the
// API. Implemented by Client; abstracted so resolver tests can count
// transport calls without a live server.
type accountNumberSource interface {
	accountNumbers(ctx context.Context) (accountNumberListing, error)
}

// AccountResolver translates user-visible plaintext account numbers into
// the encrypted identifiers the API requires in URL paths.
//
// Most path-parameterized endpoints (orders, transactions, preferences)
// reject plaintext account numbers, so every account-scoped service
// method passes its account identifier through Resolve before building
// a URL. The plaintext-to-encrypted mapping is fetched lazily from the
// account-numbers listing endpoint, cached for the lifetime of the
// owning Client, and refreshed once on a miss to pick up accounts
// linked after the last load.
//
// Safe for concurrent use. One resolver belongs to exactly one Client
// and shares no state across clients.
type AccountResolver struct {
	source accountNumberSource

	// mu serializes all access to mappings and the loaded transition.
	// One coarse lock keeps check-loaded, load, and lookup a single
	// atomic step; the load path is rare enough that granularity does
	// not matter.
	mu       sync.Mutex
	mappings map[string]string
	loaded   atomic.Bool
}

func newAccountResolver(source accountNumberSource) *AccountResolver {
	return &AccountResolver{
		source:   source,
		mappings: make(map[string]string),
	}
}

// Resolve returns the identifier to embed in an account-scoped URL path.
//
// Identifiers that already look encrypted (alphanumeric with at least
// one letter) are returned unchanged without touching the cache or the
// transport. Plaintext (all-digit) identifiers are looked up in the
// cached mapping, loading it first if necessary. A miss forces exactly
// one reload before failing with *AccountNotFoundError.
//
// Callers are responsible for percent-encoding the result.
func (r *AccountResolver) Resolve(ctx context.Context, identifier string) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("%w: account number is required", ErrInvalidRequest)
	}

	// Pass-through requires no shared state, so it never contends with
	// an in-flight load.
	if isEncryptedAccountID(identifier) {
		return identifier, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded.Load() {
		if err := r.load(ctx); err != nil {
			return "", err
		}
	}

	if hash, ok := r.mappings[identifier]; ok {
		return hash, nil
	}

	// The account may have been linked after the last load. Reload once,
	// then fail.
	if err := r.load(ctx); err != nil {
		return "", err
	}
	if hash, ok := r.mappings[identifier]; ok {
		return hash, nil
	}

	return "", newAccountNotFoundError(identifier, r.mappings)
}

// Refresh discards the cached mapping and reloads it from the API.
// Use after linking or unlinking accounts out-of-band.
func (r *AccountResolver) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded.Store(false)
	return r.load(ctx)
}

// Mappings returns a copy of the plaintext-to-encrypted mapping,
// loading it first if it has never been loaded. Mutating the returned
// map does not affect the resolver. Intended for diagnostics.
func (r *AccountResolver) Mappings(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded.Load() {
		if err := r.load(ctx); err != nil {
			return nil, err
		}
	}

	out := make(map[string]string, len(r.mappings))
	for plain, hash := range r.mappings {
		out[plain] = hash
	}
	return out, nil
}

// Loaded reports whether at least one load has completed. It never
// triggers a load and never blocks on one.
func (r *AccountResolver) Loaded() bool {
	return r.loaded.Load()
}

// load fetches the listing and replaces the mapping wholesale.
// Callers must hold r.mu. On failure the previous mapping is kept
// untouched and loaded is left false only if it already was.
func (r *AccountResolver) load(ctx context.Context) error {
	listing, err := r.source.accountNumbers(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]string, len(listing.Records))
	for _, rec := range listing.Records {
		// Records missing either field are tolerated, not fatal.
		if rec.AccountNumber == "" || rec.HashValue == "" {
			continue
		}
		fresh[rec.AccountNumber] = rec.HashValue
	}

	r.mappings = fresh
	r.loaded.Store(true)
	return nil
}

// isEncryptedAccountID reports whether the identifier already looks like
// an encrypted account hash: ASCII alphanumeric with at least one
// letter. All-digit strings are plaintext account numbers.
//
// There is deliberately no minimum length: short mixed strings like
// "ABC123" pass through unresolved even though real hashes are much
// longer. Tightening this would silently change which inputs hit the
// resolver, so it stays as is.
func isEncryptedAccountID(s string) bool {
	hasLetter := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			hasLetter = true
		default:
			return false
		}
	}
	return hasLetter
}

// accountNumberRecord is one entry of the account-numbers listing.
// The API has been observed to emit both camelCase and snake_case
// keys, so decoding tries both, camelCase first.
type accountNumberRecord struct {
	AccountNumber string
	HashValue     string
}

func (r *accountNumberRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		AccountNumber      string `json:"accountNumber"`
		HashValue          string `json:"hashValue"`
		AccountNumberSnake string `json:"account_number"`
		HashValueSnake     string `json:"hash_value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.AccountNumber = raw.AccountNumber
	if r.AccountNumber == "" {
		r.AccountNumber = raw.AccountNumberSnake
	}
	r.HashValue = raw.HashValue
	if r.HashValue == "" {
		r.HashValue = raw.HashValueSnake
	}
	return nil
}

// accountNumberListing normalizes the two response shapes the listing
// endpoint returns: a bare array of records, or the same array wrapped
// under an "accounts" key.
type accountNumberListing struct {
	Records []accountNumberRecord
}

func (l *accountNumberListing) UnmarshalJSON(data []byte) error {
	var records []accountNumberRecord
	if err := json.Unmarshal(data, &records); err == nil {
		l.Records = records
		return nil
	}

	var wrapped struct {
		Accounts []accountNumberRecord `json:"accounts"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("schwab: malformed account numbers response: %w", err)
	}
	l.Records = wrapped.Accounts
	return nil
}
