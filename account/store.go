package account

import "context"

// Store persists account state. SaveAccounts upserts by address.
type Store interface {
	SaveAccounts(ctx context.Context, accounts []*Account) error
	GetAccount(ctx context.Context, address string) (*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
}
