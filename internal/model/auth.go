package model

import "github.com/golang-jwt/jwt/v5"

// InterviewClaims are JWT claims binding a session token to one interview session
type InterviewClaims struct {
	SessionID string `json:"sid"`
	SurveyID  string `json:"surveyId"`
	jwt.RegisteredClaims
}
