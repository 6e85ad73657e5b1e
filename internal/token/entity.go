package token

import "github.com/golang-jwt/jwt/v5"

// Claims is the snapshot of the account carried by an auth token.
type Claims struct {
	Access           string `json:"access"`
	Role             string `json:"role"`
	AccountCompleted bool   `json:"accountCompleted"`
	Status           string `json:"status"`
	jwt.RegisteredClaims
}
