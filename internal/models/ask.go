package models

import "strconv"

// Source values reported in AskResponse.
const (
	SourceCache     = "cache"
	SourceGenerated = "generated"
)

// AskRequest is the inbound question for one application.
type AskRequest struct {
	ApplicationID int    `json:"application_id"`
	Question      string `json:"question"`
}

// AskResponse is the answer and where it came from.
type AskResponse struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}

// SourceOf maps a cache-hit flag to the response source.
func SourceOf(fromCache bool) string {
	if fromCache {
		return SourceCache
	}
	return SourceGenerated
}

// ScopeOf returns the cache scope string for an application id.
func ScopeOf(appID int) string {
	return strconv.Itoa(appID)
}

// ApplicationStatus describes a declared application for listing endpoints.
type ApplicationStatus struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Loaded bool   `json:"loaded"`
}
