package persist

// CharacterRow is the core characters-table row loaded at login.
type CharacterRow struct {
	GUID    uint64
	Account uint32
	Name    string
	Race    uint8
	Class   uint8
	Gender  uint8
	Level   uint8
	XP      uint32
	Money   uint32

	Skin        uint8
	Face        uint8
	HairStyle   uint8
	HairColor   uint8
	FacialStyle uint8

	Map  uint32
	Zone uint32
	X    float32
	Y    float32
	Z    float32
	O    float32

	TaxiMask         string
	Cinematic        bool
	TotalTime        uint32
	LevelTime        uint32
	RestBonus        float32
	LogoutTime       int64
	IsLogoutResting  bool
	ResetTalentsCost uint32
	ResetTalentsTime int64

	TransX    float32
	TransY    float32
	TransZ    float32
	TransO    float32
	TransGUID uint64

	ExtraFlags      uint32
	StableSlots     uint8
	AtLogin         uint16
	DeathExpireTime int64
	TaxiPath        string

	TotalKills     uint32
	TodayKills     uint16
	YesterdayKills uint16
	ChosenTitle    uint32
	WatchedFaction int32
	Drunk          uint8

	Health uint32
	Power1 uint32
	Power2 uint32
	Power3 uint32

	InstanceID        uint32
	TalentGroups      uint8
	ActiveTalentGroup uint8
	ExploredZones     string
	EquipmentCache    string
	KnownTitles       string
	ActionBars        uint8
	GrantableLevels   uint8
	Online            bool
}

// At-login one-shot flags, cleared after their action runs once.
const (
	AtLoginRename       uint16 = 0x01
	AtLoginResetSpells  uint16 = 0x02
	AtLoginResetTalents uint16 = 0x04
	AtLoginCustomize    uint16 = 0x08
	AtLoginResetPetTree uint16 = 0x10
	AtLoginFirst        uint16 = 0x20
)

type InstanceBindRow struct {
	Map        uint32
	InstanceID uint32
	Permanent  bool
	Difficulty uint8
	ResetTime  int64
}

type AuraRow struct {
	CasterGUID    uint64
	Spell         uint32
	EffectMask    uint8
	StackCount    uint8
	Amount0       int32
	Amount1       int32
	Amount2       int32
	MaxDuration   int32
	RemainTime    int32
	RemainCharges uint8
}

type SpellRow struct {
	Spell    uint32
	Active   bool
	Disabled bool
}

type QuestStatusRow struct {
	Quest       uint32
	Status      uint8
	Explored    bool
	Timer       int64
	MobCount    [4]uint16
	ItemCount   [4]uint16
	PlayerCount uint16
}

type DailyQuestRow struct {
	Quest    uint32
	TimeDone int64
}

type ReputationRow struct {
	Faction  uint32
	Standing int32
	Flags    uint16
}

type InventoryRow struct {
	Bag              uint8
	Slot             uint8
	ItemGUID         uint64
	ItemEntry        uint32
	Count            uint32
	Enchantments     string
	Durability       uint16
	RandomPropertyID int32
}

type ActionButtonRow struct {
	Spec   uint8
	Button uint8
	Action uint32
	Type   uint8
}

type SocialRow struct {
	FriendGUID uint64
	Flags      uint8
	Note       string
}

// Social list flags.
const (
	SocialFlagFriend uint8 = 0x01
	SocialFlagIgnore uint8 = 0x02
	SocialFlagMuted  uint8 = 0x04
)

type HomeBindRow struct {
	Map  uint32
	Zone uint32
	X    float32
	Y    float32
	Z    float32
}

type SpellCooldownRow struct {
	Spell      uint32
	Item       uint32
	ExpireTime int64
}

type DeclinedNamesRow struct {
	Genitive      string
	Dative        string
	Accusative    string
	Instrumental  string
	Prepositional string
}

type AchievementRow struct {
	Achievement uint32
	Date        int64
}

type CriteriaRow struct {
	Criteria uint32
	Counter  uint64
	Date     int64
}

type EquipmentSetRow struct {
	SetGUID  uint64
	SetIndex uint8
	Name     string
	IconName string
	Items    [19]uint64
}

type GlyphRow struct {
	TalentGroup uint8
	Glyphs      [6]uint32
}

type TalentRow struct {
	Spell       uint32
	TalentGroup uint8
}

type AccountDataRow struct {
	Type uint8
	Time int64
	Data []byte
}

type SkillRow struct {
	Skill uint16
	Value uint16
	Max   uint16
}

type PetRow struct {
	ID        uint32
	Entry     uint32
	Owner     uint64
	ModelID   uint32
	Level     uint8
	Exp       uint32
	Slot      uint8
	Name      string
	Renamed   bool
	CurHealth uint32
	CurMana   uint32
}
