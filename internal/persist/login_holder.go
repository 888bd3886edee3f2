package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Statement ids for the login holder. Every id must have an entry in
// loginStatements or Initialize fails and the login is refused.
const (
	stmtCharLoad = iota
	stmtCharGroup
	stmtCharInstanceBinds
	stmtCharAuras
	stmtCharSpells
	stmtCharQuestStatus
	stmtCharDailyQuests
	stmtCharWeeklyQuests
	stmtCharRewardedQuests
	stmtCharReputation
	stmtCharInventory
	stmtCharActionButtons
	stmtCharMailCount
	stmtCharMailDate
	stmtCharSocialList
	stmtCharHomeBind
	stmtCharSpellCooldowns
	stmtCharDeclinedNames
	stmtCharAchievements
	stmtCharCriteria
	stmtCharEquipmentSets
	stmtCharGlyphs
	stmtCharTalents
	stmtCharAccountData
	stmtCharSkills
	stmtCharRandomBG
	stmtCharBanned
	stmtCharPets
	stmtCharGuild
	stmtCharMax
)

var loginStatements = map[int]string{
	stmtCharLoad: `SELECT guid, account, name, race, class, gender, level, xp, money,
	        skin, face, hair_style, hair_color, facial_style,
	        map, zone, position_x, position_y, position_z, orientation,
	        taximask, cinematic, total_time, level_time, rest_bonus, logout_time,
	        is_logout_resting, reset_talents_cost, reset_talents_time,
	        trans_x, trans_y, trans_z, trans_o, transguid,
	        extra_flags, stable_slots, at_login, death_expire_time, taxi_path,
	        total_kills, today_kills, yesterday_kills, chosen_title,
	        watched_faction, drunk, health, power1, power2, power3,
	        instance_id, talent_groups, active_talent_group, exploredzones,
	        equipmentcache, knowntitles, actionbars, grantable_levels, online
	 FROM characters WHERE guid = $1`,
	stmtCharGroup:          `SELECT group_id FROM group_member WHERE guid = $1`,
	stmtCharInstanceBinds:  `SELECT map, instance_id, permanent, difficulty, reset_time FROM character_instance WHERE guid = $1`,
	stmtCharAuras:          `SELECT caster_guid, spell, effect_mask, stack_count, amount0, amount1, amount2, max_duration, remain_time, remain_charges FROM character_aura WHERE guid = $1`,
	stmtCharSpells:         `SELECT spell, active, disabled FROM character_spell WHERE guid = $1`,
	stmtCharQuestStatus:    `SELECT quest, status, explored, timer, mobcount1, mobcount2, mobcount3, mobcount4, itemcount1, itemcount2, itemcount3, itemcount4, playercount FROM character_queststatus WHERE guid = $1`,
	stmtCharDailyQuests:    `SELECT quest, time_done FROM character_queststatus_daily WHERE guid = $1`,
	stmtCharWeeklyQuests:   `SELECT quest FROM character_queststatus_weekly WHERE guid = $1`,
	stmtCharRewardedQuests: `SELECT quest FROM character_queststatus_rewarded WHERE guid = $1`,
	stmtCharReputation:     `SELECT faction, standing, flags FROM character_reputation WHERE guid = $1`,
	stmtCharInventory: `SELECT bag, slot, item_guid, item_entry, count, enchantments, durability, random_property_id
	 FROM character_inventory WHERE guid = $1 ORDER BY bag, slot`,
	stmtCharActionButtons: `SELECT spec, button, action, type FROM character_action WHERE guid = $1 ORDER BY button`,
	stmtCharMailCount:     `SELECT COUNT(*) FROM mail WHERE receiver = $1 AND checked = 0 AND deliver_time <= $2`,
	stmtCharMailDate:      `SELECT COALESCE(MAX(deliver_time), 0) FROM mail WHERE receiver = $1 AND checked = 0`,
	stmtCharSocialList:    `SELECT friend_guid, flags, note FROM character_social WHERE guid = $1`,
	stmtCharHomeBind:      `SELECT map, zone, position_x, position_y, position_z FROM character_homebind WHERE guid = $1`,
	stmtCharSpellCooldowns: `SELECT spell, item, expire_time FROM character_spell_cooldown
	 WHERE guid = $1 AND expire_time > $2`,
	stmtCharDeclinedNames: `SELECT genitive, dative, accusative, instrumental, prepositional FROM character_declinedname WHERE guid = $1`,
	stmtCharAchievements:  `SELECT achievement, date FROM character_achievement WHERE guid = $1`,
	stmtCharCriteria:      `SELECT criteria, counter, date FROM character_achievement_progress WHERE guid = $1`,
	stmtCharEquipmentSets: `SELECT setguid, setindex, name, iconname, item0, item1, item2, item3, item4, item5, item6, item7, item8,
	        item9, item10, item11, item12, item13, item14, item15, item16, item17, item18
	 FROM character_equipmentsets WHERE guid = $1 ORDER BY setindex`,
	stmtCharGlyphs:      `SELECT talent_group, glyph1, glyph2, glyph3, glyph4, glyph5, glyph6 FROM character_glyphs WHERE guid = $1`,
	stmtCharTalents:     `SELECT spell, talent_group FROM character_talent WHERE guid = $1`,
	stmtCharAccountData: `SELECT type, time, data FROM character_account_data WHERE guid = $1`,
	stmtCharSkills:      `SELECT skill, value, max FROM character_skills WHERE guid = $1`,
	stmtCharRandomBG:    `SELECT guid FROM character_battleground_random WHERE guid = $1`,
	stmtCharBanned:      `SELECT guid FROM character_banned WHERE guid = $1 AND active = 1`,
	stmtCharPets: `SELECT id, entry, owner, modelid, level, exp, slot, name, renamed, cur_health, cur_mana
	 FROM character_pet WHERE owner = $1 ORDER BY slot`,
	stmtCharGuild: `SELECT guild_id, rank FROM guild_member WHERE guid = $1`,
}

// ErrHolderStatement means a login holder statement could not be bound.
// Login fails closed: a character loaded from a partial result set would
// be silently corrupt.
var ErrHolderStatement = errors.New("login holder statement unavailable")

type boundQuery struct {
	id   int
	sql  string
	args []any
}

// LoginQueryHolder gathers every row a character login needs in a single
// off-thread pass. Initialize binds all statements up front and fails if
// any one cannot be bound; Execute runs them and scans the results into
// typed fields the login sequence consumes on the session thread.
type LoginQueryHolder struct {
	AccountID uint32
	GUID      uint64

	queries []boundQuery

	Char           *CharacterRow
	GroupID        uint32
	GuildID        uint32
	GuildRank      uint8
	InstanceBinds  []InstanceBindRow
	Auras          []AuraRow
	Spells         []SpellRow
	QuestStatus    []QuestStatusRow
	DailyQuests    []DailyQuestRow
	WeeklyQuests   []uint32
	RewardedQuests []uint32
	Reputation     []ReputationRow
	Inventory      []InventoryRow
	ActionButtons  []ActionButtonRow
	UnreadMails    uint32
	LastMailTime   int64
	Social         []SocialRow
	HomeBind       *HomeBindRow
	SpellCooldowns []SpellCooldownRow
	DeclinedNames  *DeclinedNamesRow
	Achievements   []AchievementRow
	Criteria       []CriteriaRow
	EquipmentSets  []EquipmentSetRow
	Glyphs         []GlyphRow
	Talents        []TalentRow
	AccountData    []AccountDataRow
	Skills         []SkillRow
	RandomBGWinner bool
	Banned         bool
	Pets           []PetRow
}

// NewLoginQueryHolder binds every login statement for one character. A nil
// error guarantees Execute will attempt the full set.
func NewLoginQueryHolder(accountID uint32, guid uint64) (*LoginQueryHolder, error) {
	h := &LoginQueryHolder{AccountID: accountID, GUID: guid}

	now := time.Now().Unix()
	ok := true
	for id := 0; id < stmtCharMax; id++ {
		sql, found := loginStatements[id]
		if !found || sql == "" {
			ok = false
			continue
		}
		args := []any{guid}
		switch id {
		case stmtCharMailCount, stmtCharSpellCooldowns:
			args = []any{guid, now}
		}
		h.queries = append(h.queries, boundQuery{id: id, sql: sql, args: args})
	}
	if !ok {
		return nil, fmt.Errorf("%w: character %d", ErrHolderStatement, guid)
	}
	return h, nil
}

// Execute runs every bound statement. The character row is the only one
// whose absence is fatal; empty child tables are normal.
func (h *LoginQueryHolder) Execute(ctx context.Context, db Querier) error {
	for _, q := range h.queries {
		if err := h.runOne(ctx, db, q); err != nil {
			return fmt.Errorf("login holder stmt %d: %w", q.id, err)
		}
	}
	if h.Char == nil {
		return fmt.Errorf("character %d not found", h.GUID)
	}
	return nil
}

func (h *LoginQueryHolder) runOne(ctx context.Context, db Querier, q boundQuery) error {
	switch q.id {
	case stmtCharLoad:
		row := &CharacterRow{}
		err := db.QueryRow(ctx, q.sql, q.args...).Scan(
			&row.GUID, &row.Account, &row.Name, &row.Race, &row.Class, &row.Gender,
			&row.Level, &row.XP, &row.Money,
			&row.Skin, &row.Face, &row.HairStyle, &row.HairColor, &row.FacialStyle,
			&row.Map, &row.Zone, &row.X, &row.Y, &row.Z, &row.O,
			&row.TaxiMask, &row.Cinematic, &row.TotalTime, &row.LevelTime,
			&row.RestBonus, &row.LogoutTime, &row.IsLogoutResting,
			&row.ResetTalentsCost, &row.ResetTalentsTime,
			&row.TransX, &row.TransY, &row.TransZ, &row.TransO, &row.TransGUID,
			&row.ExtraFlags, &row.StableSlots, &row.AtLogin, &row.DeathExpireTime,
			&row.TaxiPath, &row.TotalKills, &row.TodayKills, &row.YesterdayKills,
			&row.ChosenTitle, &row.WatchedFaction, &row.Drunk,
			&row.Health, &row.Power1, &row.Power2, &row.Power3,
			&row.InstanceID, &row.TalentGroups, &row.ActiveTalentGroup,
			&row.ExploredZones, &row.EquipmentCache, &row.KnownTitles,
			&row.ActionBars, &row.GrantableLevels, &row.Online,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		h.Char = row
		return nil

	case stmtCharGroup:
		err := db.QueryRow(ctx, q.sql, q.args...).Scan(&h.GroupID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err

	case stmtCharGuild:
		err := db.QueryRow(ctx, q.sql, q.args...).Scan(&h.GuildID, &h.GuildRank)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err

	case stmtCharMailCount:
		return db.QueryRow(ctx, q.sql, q.args...).Scan(&h.UnreadMails)

	case stmtCharMailDate:
		return db.QueryRow(ctx, q.sql, q.args...).Scan(&h.LastMailTime)

	case stmtCharHomeBind:
		row := &HomeBindRow{}
		err := db.QueryRow(ctx, q.sql, q.args...).Scan(&row.Map, &row.Zone, &row.X, &row.Y, &row.Z)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		h.HomeBind = row
		return nil

	case stmtCharDeclinedNames:
		row := &DeclinedNamesRow{}
		err := db.QueryRow(ctx, q.sql, q.args...).Scan(
			&row.Genitive, &row.Dative, &row.Accusative, &row.Instrumental, &row.Prepositional)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		h.DeclinedNames = row
		return nil

	case stmtCharRandomBG:
		var guid uint64
		err := db.QueryRow(ctx, q.sql, q.args...).Scan(&guid)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		h.RandomBGWinner = true
		return nil

	case stmtCharBanned:
		var guid uint64
		err := db.QueryRow(ctx, q.sql, q.args...).Scan(&guid)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		h.Banned = true
		return nil
	}

	rows, err := db.Query(ctx, q.sql, q.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := h.scanRow(q.id, rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (h *LoginQueryHolder) scanRow(id int, rows pgx.Rows) error {
	switch id {
	case stmtCharInstanceBinds:
		var r InstanceBindRow
		if err := rows.Scan(&r.Map, &r.InstanceID, &r.Permanent, &r.Difficulty, &r.ResetTime); err != nil {
			return err
		}
		h.InstanceBinds = append(h.InstanceBinds, r)
	case stmtCharAuras:
		var r AuraRow
		if err := rows.Scan(&r.CasterGUID, &r.Spell, &r.EffectMask, &r.StackCount,
			&r.Amount0, &r.Amount1, &r.Amount2, &r.MaxDuration, &r.RemainTime, &r.RemainCharges); err != nil {
			return err
		}
		h.Auras = append(h.Auras, r)
	case stmtCharSpells:
		var r SpellRow
		if err := rows.Scan(&r.Spell, &r.Active, &r.Disabled); err != nil {
			return err
		}
		h.Spells = append(h.Spells, r)
	case stmtCharQuestStatus:
		var r QuestStatusRow
		if err := rows.Scan(&r.Quest, &r.Status, &r.Explored, &r.Timer,
			&r.MobCount[0], &r.MobCount[1], &r.MobCount[2], &r.MobCount[3],
			&r.ItemCount[0], &r.ItemCount[1], &r.ItemCount[2], &r.ItemCount[3],
			&r.PlayerCount); err != nil {
			return err
		}
		h.QuestStatus = append(h.QuestStatus, r)
	case stmtCharDailyQuests:
		var r DailyQuestRow
		if err := rows.Scan(&r.Quest, &r.TimeDone); err != nil {
			return err
		}
		h.DailyQuests = append(h.DailyQuests, r)
	case stmtCharWeeklyQuests:
		var quest uint32
		if err := rows.Scan(&quest); err != nil {
			return err
		}
		h.WeeklyQuests = append(h.WeeklyQuests, quest)
	case stmtCharRewardedQuests:
		var quest uint32
		if err := rows.Scan(&quest); err != nil {
			return err
		}
		h.RewardedQuests = append(h.RewardedQuests, quest)
	case stmtCharReputation:
		var r ReputationRow
		if err := rows.Scan(&r.Faction, &r.Standing, &r.Flags); err != nil {
			return err
		}
		h.Reputation = append(h.Reputation, r)
	case stmtCharInventory:
		var r InventoryRow
		if err := rows.Scan(&r.Bag, &r.Slot, &r.ItemGUID, &r.ItemEntry, &r.Count,
			&r.Enchantments, &r.Durability, &r.RandomPropertyID); err != nil {
			return err
		}
		h.Inventory = append(h.Inventory, r)
	case stmtCharActionButtons:
		var r ActionButtonRow
		if err := rows.Scan(&r.Spec, &r.Button, &r.Action, &r.Type); err != nil {
			return err
		}
		h.ActionButtons = append(h.ActionButtons, r)
	case stmtCharSocialList:
		var r SocialRow
		if err := rows.Scan(&r.FriendGUID, &r.Flags, &r.Note); err != nil {
			return err
		}
		h.Social = append(h.Social, r)
	case stmtCharSpellCooldowns:
		var r SpellCooldownRow
		if err := rows.Scan(&r.Spell, &r.Item, &r.ExpireTime); err != nil {
			return err
		}
		h.SpellCooldowns = append(h.SpellCooldowns, r)
	case stmtCharAchievements:
		var r AchievementRow
		if err := rows.Scan(&r.Achievement, &r.Date); err != nil {
			return err
		}
		h.Achievements = append(h.Achievements, r)
	case stmtCharCriteria:
		var r CriteriaRow
		if err := rows.Scan(&r.Criteria, &r.Counter, &r.Date); err != nil {
			return err
		}
		h.Criteria = append(h.Criteria, r)
	case stmtCharEquipmentSets:
		var r EquipmentSetRow
		dest := []any{&r.SetGUID, &r.SetIndex, &r.Name, &r.IconName}
		for i := range r.Items {
			dest = append(dest, &r.Items[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		h.EquipmentSets = append(h.EquipmentSets, r)
	case stmtCharGlyphs:
		var r GlyphRow
		if err := rows.Scan(&r.TalentGroup,
			&r.Glyphs[0], &r.Glyphs[1], &r.Glyphs[2], &r.Glyphs[3], &r.Glyphs[4], &r.Glyphs[5]); err != nil {
			return err
		}
		h.Glyphs = append(h.Glyphs, r)
	case stmtCharTalents:
		var r TalentRow
		if err := rows.Scan(&r.Spell, &r.TalentGroup); err != nil {
			return err
		}
		h.Talents = append(h.Talents, r)
	case stmtCharAccountData:
		var r AccountDataRow
		if err := rows.Scan(&r.Type, &r.Time, &r.Data); err != nil {
			return err
		}
		h.AccountData = append(h.AccountData, r)
	case stmtCharSkills:
		var r SkillRow
		if err := rows.Scan(&r.Skill, &r.Value, &r.Max); err != nil {
			return err
		}
		h.Skills = append(h.Skills, r)
	case stmtCharPets:
		var r PetRow
		if err := rows.Scan(&r.ID, &r.Entry, &r.Owner, &r.ModelID, &r.Level, &r.Exp,
			&r.Slot, &r.Name, &r.Renamed, &r.CurHealth, &r.CurMana); err != nil {
			return err
		}
		h.Pets = append(h.Pets, r)
	default:
		return fmt.Errorf("unexpected multi-row statement %d", id)
	}
	return nil
}
