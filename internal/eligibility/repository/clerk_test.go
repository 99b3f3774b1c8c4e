package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	metadata json.RawMessage
	getErr   error
	updated  []json.RawMessage
}

func (f *fakeUsers) Get(ctx context.Context, id string) (*clerk.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &clerk.User{ID: id, PrivateMetadata: f.metadata}, nil
}

func (f *fakeUsers) UpdateMetadata(ctx context.Context, id string, params *user.UpdateMetadataParams) (*clerk.User, error) {
	f.updated = append(f.updated, *params.PrivateMetadata)
	f.metadata = *params.PrivateMetadata
	return &clerk.User{ID: id, PrivateMetadata: f.metadata}, nil
}

func TestDecodeMetadata(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Eligibility
	}{
		{
			name: "empty metadata",
			raw:  ``,
			want: domain.Eligibility{},
		},
		{
			name: "null metadata",
			raw:  `null`,
			want: domain.Eligibility{},
		},
		{
			name: "granted record",
			raw:  `{"firstOrderDiscountEligible":true,"firstOrderDiscountUsed":false,"firstOrderDiscountExp":1700086400,"firstOrderDiscountPercent":10}`,
			want: domain.Eligibility{Eligible: true, ExpiresAt: 1700086400, Percent: 10},
		},
		{
			name: "missing percent defaults",
			raw:  `{"firstOrderDiscountEligible":true,"firstOrderDiscountExp":1700086400}`,
			want: domain.Eligibility{Eligible: true, ExpiresAt: 1700086400, Percent: domain.DefaultPercent},
		},
		{
			name: "string encoded values",
			raw:  `{"firstOrderDiscountEligible":"true","firstOrderDiscountUsed":"false","firstOrderDiscountExp":"1700086400","firstOrderDiscountPercent":"15"}`,
			want: domain.Eligibility{Eligible: true, ExpiresAt: 1700086400, Percent: 15},
		},
		{
			name: "unrelated keys only",
			raw:  `{"plan":"gold"}`,
			want: domain.Eligibility{Percent: domain.DefaultPercent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeMetadata(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeMetadataRejectsGarbage(t *testing.T) {
	_, err := decodeMetadata(json.RawMessage(`{"firstOrderDiscountEligible":`))
	assert.Error(t, err)
}

func TestClerkStoreRoundTrip(t *testing.T) {
	users := &fakeUsers{}
	store := NewClerkStore(users)
	record := domain.Eligibility{Eligible: true, ExpiresAt: 1700086400, Percent: 10}

	require.NoError(t, store.Put(context.Background(), "user_1", record))
	require.Len(t, users.updated, 1)

	var written map[string]any
	require.NoError(t, json.Unmarshal(users.updated[0], &written))
	assert.Equal(t, true, written["firstOrderDiscountEligible"])
	assert.Equal(t, false, written["firstOrderDiscountUsed"])
	assert.EqualValues(t, 1700086400, written["firstOrderDiscountExp"])
	assert.EqualValues(t, 10, written["firstOrderDiscountPercent"])

	got, err := store.Get(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestClerkStoreGetError(t *testing.T) {
	store := NewClerkStore(&fakeUsers{getErr: errors.New("clerk down")})
	_, err := store.Get(context.Background(), "user_1")
	assert.EqualError(t, err, "clerk down")
}
