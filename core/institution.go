package core

// Institution is the school an operator administers.
type Institution struct {
	Code  string `json:"code" db:"institution_code"`
	Name  string `json:"name" db:"institution_name"`
	Email string `json:"email" db:"institution_email"`
}
