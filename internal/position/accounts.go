package position

import (
	"context"

	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/pkg/conn"
)

// AccountRow is the persisted account identity. Credentials stay in the
// database; the engine only needs the venue address and sub-account to
// resolve ids before balance sync.
type AccountRow struct {
	ID         uint32 `gorm:"column:id;primaryKey"`
	Venue      string `gorm:"column:venue"`
	Name       string `gorm:"column:name"`
	SubAccount string `gorm:"column:sub_account"`
	Enabled    bool   `gorm:"column:enabled"`
}

// TableName implements the gorm table naming convention.
func (AccountRow) TableName() string { return "trading_accounts" }

// AccountStore loads account identities from PostgreSQL.
type AccountStore struct {
	client *conn.Client
}

// NewAccountStore creates a store on an open connection.
func NewAccountStore(client *conn.Client) *AccountStore {
	return &AccountStore{client: client}
}

// ResolveAccounts loads every enabled account row and registers it in the
// registry. It runs once at session start, before any balance event is
// applied.
func (s *AccountStore) ResolveAccounts(ctx context.Context, reg *schema.Registry) error {
	var rows []AccountRow
	if err := s.client.DB().WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&rows).Error; err != nil {
		return errors.Wrap(err, "load trading accounts")
	}

	for _, row := range rows {
		venueID, ok := reg.VenueIDByName(row.Venue)
		if !ok {
			return errors.Errorf("account %q references unknown venue %q", row.Name, row.Venue)
		}
		if _, err := reg.AddAccount(row.Name, venueID, row.SubAccount); err != nil {
			return errors.Wrap(err, "register account")
		}
	}
	return nil
}
