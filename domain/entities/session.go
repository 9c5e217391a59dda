package entities

import "errors"

// User represents the authenticated user's profile as stored by the backend.
type User struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Language string `json:"language"`
	Location string `json:"location"`
}

// Session holds the bearer token and profile for the current login. Exactly
// one Session exists per process; it is replaced on login/signup and cleared
// on logout or token invalidation.
type Session struct {
	Token         string
	User          *User
	Authenticated bool
}

// Credentials are the login inputs.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupProfile is the full registration payload.
type SignupProfile struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language"`
	Location string `json:"location"`
}

func (c Credentials) Validate() error {
	if c.Email == "" {
		return errors.New("email is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

func (p SignupProfile) Validate() error {
	if err := (Credentials{Email: p.Email, Password: p.Password}).Validate(); err != nil {
		return err
	}
	if p.Language == "" {
		return errors.New("language is required")
	}
	if p.Location == "" {
		return errors.New("location is required")
	}
	return nil
}
