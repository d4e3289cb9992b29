package model

type ServerStatus string

const ServerStatusOK ServerStatus = "OK"

type StatsSnapshot struct {
	TotalUsers     int64        `json:"totalUsers"`
	ActiveSessions int64        `json:"activeSessions"`
	ServerStatus   ServerStatus `json:"serverStatus"`
	ServerUptime   int64        `json:"serverUptime"`
}
