package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type AccountRow struct {
	ID           uint32
	Name         string
	PasswordHash string
	Security     uint8
	Expansion    uint8
	Locale       string
	Banned       bool
	MuteTime     int64 // unix time the mute expires, 0 = not muted
	Online       bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

type AccountRepo struct {
	db Querier
}

func NewAccountRepo(db Querier) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Load(ctx context.Context, name string) (*AccountRow, error) {
	row := &AccountRow{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, password_hash, security, expansion, COALESCE(locale,''),
		        banned, mute_time, online, created_at, last_login
		 FROM accounts WHERE name = $1`, name,
	).Scan(
		&row.ID, &row.Name, &row.PasswordHash, &row.Security, &row.Expansion, &row.Locale,
		&row.Banned, &row.MuteTime, &row.Online, &row.CreatedAt, &row.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) ValidatePassword(hash string, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

func (r *AccountRepo) SetOnline(ctx context.Context, id uint32, online bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET online = $2 WHERE id = $1`, id, online)
	return err
}

func (r *AccountRepo) UpdateLastLogin(ctx context.Context, id uint32, ip string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET last_login = NOW(), last_ip = $2 WHERE id = $1`,
		id, ip)
	return err
}

// LoadAccountData returns the account-scoped client data blobs (types
// 0,2,4,6 of the account data mask).
func (r *AccountRepo) LoadAccountData(ctx context.Context, accountID uint32) ([]AccountDataRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT type, time, data FROM account_data WHERE account = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccountDataRow
	for rows.Next() {
		var d AccountDataRow
		if err := rows.Scan(&d.Type, &d.Time, &d.Data); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *AccountRepo) SaveAccountData(ctx context.Context, accountID uint32, dataType uint8, t int64, data []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO account_data (account, type, time, data) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (account, type) DO UPDATE SET time = $3, data = $4`,
		accountID, dataType, t, data)
	return err
}

func (r *AccountRepo) SaveCharacterData(ctx context.Context, guid uint64, dataType uint8, t int64, data []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO character_account_data (guid, type, time, data) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (guid, type) DO UPDATE SET time = $3, data = $4`,
		guid, dataType, t, data)
	return err
}

// LoadTutorials returns the 8 tutorial bitmask words of an account, zeroed
// when the row does not exist yet.
func (r *AccountRepo) LoadTutorials(ctx context.Context, accountID uint32) ([8]uint32, error) {
	var t [8]uint32
	err := r.db.QueryRow(ctx,
		`SELECT tut0, tut1, tut2, tut3, tut4, tut5, tut6, tut7
		 FROM account_tutorial WHERE account = $1`, accountID,
	).Scan(&t[0], &t[1], &t[2], &t[3], &t[4], &t[5], &t[6], &t[7])
	if errors.Is(err, pgx.ErrNoRows) {
		return t, nil
	}
	return t, err
}

func (r *AccountRepo) SaveTutorials(ctx context.Context, accountID uint32, t [8]uint32) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO account_tutorial (account, tut0, tut1, tut2, tut3, tut4, tut5, tut6, tut7)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (account) DO UPDATE SET
		   tut0=$2, tut1=$3, tut2=$4, tut3=$5, tut4=$6, tut5=$7, tut6=$8, tut7=$9`,
		accountID, t[0], t[1], t[2], t[3], t[4], t[5], t[6], t[7])
	return err
}
