package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wowgo/server/internal/net/packet"
)

// CharEnumRow is one entry of the character selection screen.
type CharEnumRow struct {
	GUID         uint64
	Name         string
	Race         uint8
	Class        uint8
	Gender       uint8
	Skin         uint8
	Face         uint8
	HairStyle    uint8
	HairColor    uint8
	FacialStyle  uint8
	Level        uint8
	Zone         uint32
	Map          uint32
	X            float32
	Y            float32
	Z            float32
	GuildID      uint32
	PlayerFlags  uint32
	AtLogin      uint16
	PetDisplayID uint32
	PetLevel     uint32
	PetFamily    uint32
	Equipment    string // serialized equipment cache, display ids per slot
}

// NameRow is the answer to a character name query.
type NameRow struct {
	GUID   uint64
	Name   string
	Race   uint8
	Class  uint8
	Gender uint8
}

// CharSummary is the lightweight by-name lookup used for social additions.
type CharSummary struct {
	GUID   uint64
	Name   string
	Race   uint8
	Class  uint8
	Level  uint8
	Online bool
}

// CharCreateInfo carries the fields of CMSG_CHAR_CREATE plus the defaults
// filled in from the race/class starting tables.
type CharCreateInfo struct {
	AccountID   uint32
	Name        string
	Race        uint8
	Class       uint8
	Gender      uint8
	Skin        uint8
	Face        uint8
	HairStyle   uint8
	HairColor   uint8
	FacialStyle uint8

	Map     uint32
	Zone    uint32
	X       float32
	Y       float32
	Z       float32
	O       float32
	Level   uint8
	Health  uint32
	AtLogin uint16
}

type CharacterRepo struct {
	db Querier
}

func NewCharacterRepo(db Querier) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// Enum lists an account's characters, oldest first, for SMSG_CHAR_ENUM.
func (r *CharacterRepo) Enum(ctx context.Context, accountID uint32) ([]CharEnumRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.guid, c.name, c.race, c.class, c.gender,
		        c.skin, c.face, c.hair_style, c.hair_color, c.facial_style,
		        c.level, c.zone, c.map, c.position_x, c.position_y, c.position_z,
		        COALESCE(gm.guild_id, 0), c.player_flags, c.at_login,
		        COALESCE(p.modelid, 0), COALESCE(p.level, 0), COALESCE(p.family, 0),
		        c.equipmentcache
		 FROM characters c
		 LEFT JOIN guild_member gm ON gm.guid = c.guid
		 LEFT JOIN character_pet p ON p.owner = c.guid AND p.slot = 0
		 WHERE c.account = $1 AND c.deleted_at IS NULL
		 ORDER BY c.guid`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CharEnumRow
	for rows.Next() {
		var c CharEnumRow
		if err := rows.Scan(
			&c.GUID, &c.Name, &c.Race, &c.Class, &c.Gender,
			&c.Skin, &c.Face, &c.HairStyle, &c.HairColor, &c.FacialStyle,
			&c.Level, &c.Zone, &c.Map, &c.X, &c.Y, &c.Z,
			&c.GuildID, &c.PlayerFlags, &c.AtLogin,
			&c.PetDisplayID, &c.PetLevel, &c.PetFamily,
			&c.Equipment,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CharacterRepo) NameByGUID(ctx context.Context, guid uint64) (*NameRow, error) {
	row := &NameRow{GUID: guid}
	err := r.db.QueryRow(ctx,
		`SELECT name, race, class, gender FROM characters
		 WHERE guid = $1 AND deleted_at IS NULL`, guid,
	).Scan(&row.Name, &row.Race, &row.Class, &row.Gender)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *CharacterRepo) ByName(ctx context.Context, name string) (*CharSummary, error) {
	row := &CharSummary{}
	err := r.db.QueryRow(ctx,
		`SELECT guid, name, race, class, level, online FROM characters
		 WHERE name = $1 AND deleted_at IS NULL`, name,
	).Scan(&row.GUID, &row.Name, &row.Race, &row.Class, &row.Level, &row.Online)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *CharacterRepo) CountByAccount(ctx context.Context, accountID uint32) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM characters WHERE account = $1 AND deleted_at IS NULL`,
		accountID,
	).Scan(&n)
	return n, err
}

// OwnerOf returns the owning account of a character, 0 if none.
func (r *CharacterRepo) OwnerOf(ctx context.Context, guid uint64) (uint32, error) {
	var account uint32
	err := r.db.QueryRow(ctx,
		`SELECT account FROM characters WHERE guid = $1 AND deleted_at IS NULL`, guid,
	).Scan(&account)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return account, err
}

// Create inserts a new character with its home bind. Name uniqueness rides
// on the unique index; a conflict maps to the name-in-use response.
func (r *CharacterRepo) Create(ctx context.Context, info *CharCreateInfo) (uint64, error) {
	var guid uint64
	err := r.db.QueryRow(ctx,
		`INSERT INTO characters
		   (account, name, race, class, gender, skin, face, hair_style, hair_color, facial_style,
		    level, map, zone, position_x, position_y, position_z, orientation,
		    health, at_login, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		 RETURNING guid`,
		info.AccountID, info.Name, info.Race, info.Class, info.Gender,
		info.Skin, info.Face, info.HairStyle, info.HairColor, info.FacialStyle,
		info.Level, info.Map, info.Zone, info.X, info.Y, info.Z, info.O,
		info.Health, info.AtLogin, time.Now(),
	).Scan(&guid)
	if err != nil {
		return 0, err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO character_homebind (guid, map, zone, position_x, position_y, position_z)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		guid, info.Map, info.Zone, info.X, info.Y, info.Z,
	)
	if err != nil {
		return 0, err
	}
	return guid, nil
}

// Delete soft-deletes a character after verifying ownership. The name is
// freed immediately so it can be reused; the row stays for support.
func (r *CharacterRepo) Delete(ctx context.Context, guid uint64, accountID uint32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE characters
		 SET deleted_at = NOW(), deleted_name = name, name = ''
		 WHERE guid = $1 AND account = $2 AND deleted_at IS NULL`,
		guid, accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Rename applies a pending rename. The rename at-login flag gates it and
// is cleared by the same statement that writes the name, so a retried
// packet cannot rename twice.
func (r *CharacterRepo) Rename(ctx context.Context, guid uint64, accountID uint32, newName string) (uint8, error) {
	taken, err := r.NameExists(ctx, newName)
	if err != nil {
		return packet.CharNameFailure, err
	}
	if taken {
		return packet.CharCreateNameInUse, nil
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE characters
		 SET name = $3, at_login = at_login & ~$4::int
		 WHERE guid = $1 AND account = $2 AND deleted_at IS NULL AND (at_login & $4) <> 0`,
		guid, accountID, newName, AtLoginRename,
	)
	if err != nil {
		return packet.CharNameFailure, err
	}
	if tag.RowsAffected() == 0 {
		return packet.CharNameFailure, nil
	}
	return packet.ResponseSuccess, nil
}

func (r *CharacterRepo) NameExists(ctx context.Context, name string) (bool, error) {
	var guid uint64
	err := r.db.QueryRow(ctx,
		`SELECT guid FROM characters WHERE name = $1 AND deleted_at IS NULL`, name,
	).Scan(&guid)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddSocial upserts one friend or ignore entry, OR-ing the new flag into
// an existing row.
func (r *CharacterRepo) AddSocial(ctx context.Context, owner, friend uint64, flags uint8, note string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO character_social (guid, friend_guid, flags, note) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (guid, friend_guid) DO UPDATE SET flags = character_social.flags | $3, note = $4`,
		owner, friend, flags, note)
	return err
}

// RemoveSocialFlag drops one flag from a social entry and deletes the row
// once no flags remain.
func (r *CharacterRepo) RemoveSocialFlag(ctx context.Context, owner, friend uint64, flags uint8) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE character_social SET flags = flags & ~$3::int WHERE guid = $1 AND friend_guid = $2`,
		owner, friend, flags); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`DELETE FROM character_social WHERE guid = $1 AND friend_guid = $2 AND flags = 0`,
		owner, friend)
	return err
}

func (r *CharacterRepo) SetOnline(ctx context.Context, guid uint64, online bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE characters SET online = $2 WHERE guid = $1`, guid, online)
	return err
}

// ClearAtLoginFlag clears a one-shot at-login flag after its action ran.
func (r *CharacterRepo) ClearAtLoginFlag(ctx context.Context, guid uint64, flag uint16) error {
	_, err := r.db.Exec(ctx,
		`UPDATE characters SET at_login = at_login & ~$2::int WHERE guid = $1`,
		guid, flag)
	return err
}

// MarkCinematicSeen records that the intro cinematic played, so it never
// plays again for this character.
func (r *CharacterRepo) MarkCinematicSeen(ctx context.Context, guid uint64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE characters SET cinematic = TRUE WHERE guid = $1`, guid)
	return err
}

// SavePosition writes back position and vitals at logout.
func (r *CharacterRepo) SavePosition(ctx context.Context, guid uint64, mapID, zone uint32, x, y, z, o float32, health uint32, logoutTime int64, resting bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE characters
		 SET map = $2, zone = $3, position_x = $4, position_y = $5, position_z = $6,
		     orientation = $7, health = $8, logout_time = $9, is_logout_resting = $10
		 WHERE guid = $1`,
		guid, mapID, zone, x, y, z, o, health, logoutTime, resting)
	return err
}
