package models

// Tokens is the bearer token pair issued by the backend.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// KeyMaterial is what the backend stores about the decryption passphrase:
// the Argon2 salt and the verifier of the derived master key.
type KeyMaterial struct {
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}
