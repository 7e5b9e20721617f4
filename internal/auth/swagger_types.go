package auth

// SignupRequest is the request body for POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username" example:"ada"`
	Password string `json:"password" example:"correct-horse-battery"`
}

// SignupResponse is returned by POST /auth/signup.
type SignupResponse struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" example:"ada"`
	Password string `json:"password" example:"correct-horse-battery"`
}

// RefreshRequest is the request body for POST /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" example:"dGhpcyBpcyBhIHJlZnJl..."`
}
