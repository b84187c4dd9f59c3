package services

import (
	"net/http"
)

type AuthEngine interface {
	GetAppToken() string
	SetAppToken(request *http.Request)
}

// AppTokenAuth carries the static application token SEFAZ hands out per
// registered consumer.
type AppTokenAuth struct {
	appToken string
}

func (a *AppTokenAuth) GetAppToken() string {
	return a.appToken
}

func (a *AppTokenAuth) SetAppToken(request *http.Request) {
	request.Header.Set("AppToken", a.appToken)
}

func NewAppTokenAuth(appToken string) *AppTokenAuth {
	if appToken == "" {
		return nil
	}
	return &AppTokenAuth{appToken: appToken}
}
