package auth

// CallbackRequest es el body (form o JSON) del callback de autorización.
type CallbackRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
	GrantType    string `json:"grant_type"`
}

// CallbackResponse es la respuesta exitosa del callback.
type CallbackResponse struct {
	IDToken string `json:"id_token"`
}
