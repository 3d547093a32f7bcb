package models

import "time"

type Credentials struct {
	TenantID string
	Username string
	Password string
}

type Driver struct {
	ID     string
	Name   string
	Email  string
	Phone  string
	Code   string
	Gender string
}

type Session struct {
	AccessToken  string
	RefreshToken string
	TenantID     string
	Driver       Driver
	LoggedInAt   time.Time
}
