package store

import "strings"

// Logical collection names.
const (
	Stories  = "stories"
	Comments = "comments"
	Feedback = "feedback"
)

// DefaultAppID namespaces collections when no app id is configured.
const DefaultAppID = "default-app-id"

// Paths resolves logical collection names inside one app namespace.
type Paths struct {
	AppID string
}

func (p Paths) appID() string {
	if id := strings.TrimSpace(p.AppID); id != "" {
		return id
	}
	return DefaultAppID
}

// Collection returns artifacts/{appId}/public/data/{name}.
func (p Paths) Collection(name string) string {
	return "artifacts/" + p.appID() + "/public/data/" + name
}

func (p Paths) Stories() string  { return p.Collection(Stories) }
func (p Paths) Comments() string { return p.Collection(Comments) }
func (p Paths) Feedback() string { return p.Collection(Feedback) }
