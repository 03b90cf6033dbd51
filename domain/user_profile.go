package domain

type Sex string

const (
	SexFemale Sex = "F"
	SexMale   Sex = "M"
)

type AgeBracket string

const (
	Age10s AgeBracket = "10s"
	Age20s AgeBracket = "20s"
	Age30s AgeBracket = "30s"
	Age40s AgeBracket = "40s"
	Age50s AgeBracket = "50s"
	Age60s AgeBracket = "60s"
)

type InterestKeyword string

const (
	InterestSoloCooking InterestKeyword = "SOLO_COOKING"
	InterestFineDining  InterestKeyword = "FINE_DINING"
	InterestDiet        InterestKeyword = "DIET"
	InterestHealthy     InterestKeyword = "HEALTHY"
	InterestVegan       InterestKeyword = "VEGAN"
	InterestKids        InterestKeyword = "KIDS"
	InterestGeneral     InterestKeyword = "GENERAL"
)

// UserProfile is what the user service reports about a requester.
// Empty fields are unknown attributes.
type UserProfile struct {
	UserID   uint            `json:"user_id"`
	Sex      Sex             `json:"sex,omitempty"`
	Age      AgeBracket      `json:"age_group,omitempty"`
	Interest InterestKeyword `json:"interest,omitempty"`
}
