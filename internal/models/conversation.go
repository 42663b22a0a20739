package models

type ChatRole string

const (
	ChatRolePlayer    ChatRole = "player"
	ChatRoleCharacter ChatRole = "character"
)

// ChatMessage is one turn of a player's conversation with a character.
type ChatMessage struct {
	Role    ChatRole `json:"role" db:"role"`
	Content string   `json:"content" db:"content"`
}
