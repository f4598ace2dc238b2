package models

// SignupData is the final step of the signup flow.
type SignupData struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,max=150,username"`
	Password  string `json:"password" validate:"required"`
	FullName  string `json:"full_name" validate:"required,max=255"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender    string `json:"gender" validate:"required,oneof=Male Female Other"`
	IsStudent *bool  `json:"is_student" validate:"required"`
}

// Credentials is the login request body. Username may hold either a
// username or an email address.
type Credentials struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}
