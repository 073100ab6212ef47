package domain

// TokenPair is what a successful login or refresh mints: the short-lived
// access JWT and the long-lived refresh JWT, always issued together.
// Neither value ever appears in a response body; they travel only as
// HttpOnly cookies.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
