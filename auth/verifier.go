package auth

import (
	"strings"

	"pairchat/contract"
	"pairchat/domain/chat"
)

// CredentialVerifier accepts either the account password or a token
// previously issued for the same username.
type CredentialVerifier struct {
	tokens TokenIssuer
}

var _ contract.ICredentialVerifier = CredentialVerifier{}

func NewCredentialVerifier(tokens TokenIssuer) CredentialVerifier {
	return CredentialVerifier{tokens: tokens}
}

func (v CredentialVerifier) Verify(identity chat.Identity, credential string) bool {
	if credential == "" {
		return false
	}
	if looksLikeToken(credential) {
		if claims, err := v.tokens.Validate(credential); err == nil {
			return claims.Username == identity.Name
		}
	}
	match, err := ComparePassword(credential, identity.PasswordHash)
	return err == nil && match
}

func looksLikeToken(credential string) bool {
	return strings.HasPrefix(credential, "eyJ") && strings.Count(credential, ".") == 2
}
