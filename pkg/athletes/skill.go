package athletes

// Discipline identifies a racing discipline tracked independently on a
// profile. Skill levels and age categories never cross disciplines.
type Discipline string

// Known disciplines.
const (
	DisciplineRoad       Discipline = "ROAD"
	DisciplineCyclocross Discipline = "CYCLOCROSS"
	DisciplineTrack      Discipline = "TRACK"
	DisciplineMTB        Discipline = "MTB"
)

// Skill level bounds. Level 1 is the fastest category, level 5 is novice.
const (
	SkillLevelTop    = 1
	SkillLevelNovice = 5
)

// Confidence values attached to an estimated upgrade date. A change observed
// directly in a category assignment is certain; one inferred from accumulated
// points is a guess that should never surface in the recently-upgraded view.
const (
	UpgradeConfidenceObserved = 1.0
	UpgradeConfidenceInferred = 0.5
)

// SkillLevel records an athlete's current level in one discipline together
// with the most recent estimated upgrade.
type SkillLevel struct {
	Level      int     `json:"level" yaml:"level"`
	UpgradedAt *Date   `json:"upgradedAt,omitempty" yaml:"upgradedAt,omitempty"`
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// ValidLevel reports whether a level falls inside the recognized range.
func ValidLevel(level int) bool {
	return level >= SkillLevelTop && level <= SkillLevelNovice
}
