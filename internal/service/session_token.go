package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/imsebeom/ai-survey/internal/model"
)

// SessionTokens signs and checks the opaque tokens that identify interview sessions
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	return &SessionTokens{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue creates a token for a session. It expires together with the stored session.
func (t *SessionTokens) Issue(sessionID, surveyID string) (string, error) {
	now := time.Now()
	claims := &model.InterviewClaims{
		SessionID: sessionID,
		SurveyID:  surveyID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token and returns its claims
func (t *SessionTokens) Parse(tokenString string) (*model.InterviewClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.InterviewClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*model.InterviewClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, model.ErrInvalidSession
	}
	return claims, nil
}
