package models

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Genders lists the genders a generated character can have.
var Genders = []Gender{GenderMale, GenderFemale} //nolint:gochecknoglobals // constant list

// Character is a non-player character of a case. Characters are generated once per case and never change.
type Character struct {
	ID           string `json:"characterId"`
	Name         string `json:"characterName"`
	Gender       Gender `json:"gender"`
	Age          int    `json:"age"`
	Backstory    string `json:"backstory"`
	HonestyTrait string `json:"honesty"`
}
