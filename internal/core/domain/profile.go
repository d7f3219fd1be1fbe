package domain

import "time"

// FamilyProfile supplies the names, ages, and contact details used to fill
// registration forms. It is provided by configuration, not stored here.
type FamilyProfile struct {
	ParentName string  `json:"parent_name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Children   []Child `json:"children"`
}

// Child is one registrable family member.
type Child struct {
	Name      string `json:"name"`
	BirthYear int    `json:"birth_year"`
}

// Age returns the child's age in whole years as of now.
func (c Child) Age() int {
	age := time.Now().Year() - c.BirthYear
	if age < 0 {
		return 0
	}
	return age
}
