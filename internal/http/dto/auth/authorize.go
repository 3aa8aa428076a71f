package auth

// AuthorizeRequest son los parámetros de query del endpoint de redirect.
type AuthorizeRequest struct {
	ClientID      string
	State         string
	CodeChallenge string
	RedirectURI   string
}
