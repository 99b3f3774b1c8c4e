package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
)

// Private metadata keys shared with the storefront.
const (
	keyEligible = "firstOrderDiscountEligible"
	keyUsed     = "firstOrderDiscountUsed"
	keyExpires  = "firstOrderDiscountExp"
	keyPercent  = "firstOrderDiscountPercent"
)

// userAPI is the subset of the Clerk users client used here.
type userAPI interface {
	Get(ctx context.Context, id string) (*clerk.User, error)
	UpdateMetadata(ctx context.Context, id string, params *user.UpdateMetadataParams) (*clerk.User, error)
}

// ClerkStore keeps eligibility in the Clerk user's private metadata.
type ClerkStore struct {
	users userAPI
}

func NewClerkStore(users userAPI) *ClerkStore {
	return &ClerkStore{users: users}
}

func (s *ClerkStore) Get(ctx context.Context, userID string) (domain.Eligibility, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.Eligibility{}, err
	}
	if u == nil {
		return domain.Eligibility{}, errors.New("clerk returned no user")
	}
	return decodeMetadata(u.PrivateMetadata)
}

// Put writes the four discount keys. Clerk merges private metadata, so other
// keys on the user are preserved.
func (s *ClerkStore) Put(ctx context.Context, userID string, record domain.Eligibility) error {
	raw, err := encodeMetadata(record)
	if err != nil {
		return err
	}
	_, err = s.users.UpdateMetadata(ctx, userID, &user.UpdateMetadataParams{
		PrivateMetadata: &raw,
	})
	return err
}

func encodeMetadata(record domain.Eligibility) (json.RawMessage, error) {
	payload := map[string]any{
		keyEligible: record.Eligible,
		keyUsed:     record.Used,
		keyExpires:  record.ExpiresAt,
		keyPercent:  record.Percent,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func decodeMetadata(raw json.RawMessage) (domain.Eligibility, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.Eligibility{}, nil
	}

	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()
	var metadata map[string]any
	if err := decoder.Decode(&metadata); err != nil {
		return domain.Eligibility{}, fmt.Errorf("decode private metadata: %w", err)
	}

	record := domain.Eligibility{
		Eligible:  readBool(metadata, keyEligible),
		Used:      readBool(metadata, keyUsed),
		ExpiresAt: readInt64(metadata, keyExpires),
		Percent:   int(readInt64(metadata, keyPercent)),
	}
	if record.Percent <= 0 {
		record.Percent = domain.DefaultPercent
	}
	return record, nil
}

func readBool(metadata map[string]any, key string) bool {
	switch v := metadata[key].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	default:
		return false
	}
}

func readInt64(metadata map[string]any, key string) int64 {
	switch v := metadata[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	case float64:
		return int64(v)
	}
	return 0
}
