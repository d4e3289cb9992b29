package model

import "time"

// Every endpoint answers with {success, data, message}. Each endpoint gets
// its own envelope type so the data shape is fixed per route.

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type HealthEnvelope struct {
	Success bool            `json:"success"`
	Data    *HealthResponse `json:"data"`
	Message string          `json:"message"`
}

type AuthEnvelope struct {
	Success bool        `json:"success"`
	Data    *AuthResult `json:"data"`
	Message string      `json:"message"`
}

type StatsEnvelope struct {
	Success bool           `json:"success"`
	Data    *StatsSnapshot `json:"data"`
	Message string         `json:"message"`
}

// ErrorEnvelope is the failure shape shared by all endpoints; data is always null.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Data    *struct{} `json:"data"`
	Message string    `json:"message"`
}

func NewErrorEnvelope(message string) ErrorEnvelope {
	return ErrorEnvelope{Message: message}
}
