package schwab

import (
	"context"
	"strconv"
)

// UserPreferenceService handles account preference reads.
type UserPreferenceService struct {
	client *Client
}

// AccountPreference holds the user's display settings for one account.
type AccountPreference struct {
	AccountNumber      string `json:"accountNumber"`
	NickName           string `json:"nickName,omitempty"`
	AccountColor       string `json:"accountColor,omitempty"`
	DisplayAcctID      string `json:"displayAcctId,omitempty"`
	AutoPositionEffect bool   `json:"autoPositionEffect,omitempty"`
	IsPrimary          bool   `json:"primaryAccount,omitempty"`
}

// Get retrieves the preferences for an account. accountNumber may be
// plaintext or an encrypted hash.
func (s *UserPreferenceService) Get(ctx context.Context, accountNumber string) (*AccountPreference, error) {
	path, err := s.client.accountPath(ctx, accountNumber, "preferences")
	if err != nil {
		return nil, err
	}

	var pref AccountPreference
	if err := s.client.get(ctx, path, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

// itoa formats an int64 path segment.
func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
