package models

type MemoryCategory string

const (
	// MemoryCulprit names the culprit without explaining the motive or placing them at the scene.
	MemoryCulprit MemoryCategory = "culprit"
	// MemoryMotive explains the motive without identifying the culprit.
	MemoryMotive MemoryCategory = "motive"
	// MemoryVague is non-committal and may gesture at several suspects.
	MemoryVague MemoryCategory = "vague"
)

// MemoryFragment is the partial knowledge one character holds about the crime.
type MemoryFragment struct {
	CharacterID string         `json:"characterId"`
	Category    MemoryCategory `json:"category"`
	Text        string         `json:"text"`
}
