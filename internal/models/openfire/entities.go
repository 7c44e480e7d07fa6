// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package openfire

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// User is a registered account on the Openfire server.
type User struct {
	Username   string     `json:"username"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Properties Properties `json:"properties"`
}

// Property is one custom key/value pair attached to a user.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Properties is the user property collection. Depending on plugin version it
// is serialized either as a plain array of {key,value} objects or wrapped in
// a {"property": [...]} envelope.
type Properties struct {
	Property FlexList[Property] `json:"property"`
}

// UnmarshalJSON accepts both the enveloped and the plain-array encoding.
func (p *Properties) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		p.Property = nil
		return nil
	}
	if trimmed[0] == '[' {
		return p.Property.UnmarshalJSON(data)
	}
	type alias Properties
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Properties(a)
	return nil
}

// Map flattens the property list into key -> value form. Later duplicates win.
func (p Properties) Map() map[string]string {
	m := make(map[string]string, len(p.Property))
	for _, prop := range p.Property {
		if prop.Key != "" {
			m[prop.Key] = prop.Value
		}
	}
	return m
}

// Room is a multi-user chat room configuration record.
type Room struct {
	RoomName                  string           `json:"roomName"`
	NaturalName               string           `json:"naturalName"`
	Description               string           `json:"description"`
	Subject                   string           `json:"subject"`
	ServiceName               string           `json:"serviceName"`
	CreationDate              EpochMillis      `json:"creationDate"`
	ModificationDate          EpochMillis      `json:"modificationDate"`
	MaxUsers                  int              `json:"maxUsers"`
	Persistent                bool             `json:"persistent"`
	PublicRoom                bool             `json:"publicRoom"`
	RegistrationEnabled       bool             `json:"registrationEnabled"`
	CanAnyoneDiscoverJID      bool             `json:"canAnyoneDiscoverJID"`
	CanOccupantsChangeSubject bool             `json:"canOccupantsChangeSubject"`
	CanOccupantsInvite        bool             `json:"canOccupantsInvite"`
	CanChangeNickname         bool             `json:"canChangeNickname"`
	LogEnabled                bool             `json:"logEnabled"`
	LoginRestrictedToNickname bool             `json:"loginRestrictedToNickname"`
	MembersOnly               bool             `json:"membersOnly"`
	Moderated                 bool             `json:"moderated"`
	BroadcastPresenceRoles    FlexList[string] `json:"broadcastPresenceRoles"`
	AllowPM                   string           `json:"allowPM"`
	Owners                    FlexList[string] `json:"owners"`
	Admins                    FlexList[string] `json:"admins"`
	Members                   FlexList[string] `json:"members"`
	Outcasts                  FlexList[string] `json:"outcasts"`
	OwnerGroups               FlexList[string] `json:"ownerGroups"`
	AdminGroups               FlexList[string] `json:"adminGroups"`
	MemberGroups              FlexList[string] `json:"memberGroups"`
	OutcastGroups             FlexList[string] `json:"outcastGroups"`
}

// Occupant is one participant currently joined to a room.
type Occupant struct {
	JID         string `json:"jid"`
	Nick        string `json:"nick"`
	Role        string `json:"role"`
	Affiliation string `json:"affiliation"`
}

// Nickname returns the occupant's room nickname. MUC full JIDs carry the
// nickname in the resource part (room@service/nick); fall back to the nick
// field, then to "Unknown".
func (o Occupant) Nickname() string {
	if idx := strings.LastIndex(o.JID, "/"); idx >= 0 && idx < len(o.JID)-1 {
		return o.JID[idx+1:]
	}
	if o.Nick != "" {
		return o.Nick
	}
	return "Unknown"
}

// Session is one live client connection belonging to a user.
type Session struct {
	SessionID        string      `json:"sessionId"`
	Username         string      `json:"username"`
	Resource         string      `json:"resource"`
	Node             string      `json:"node"`
	SessionStatus    string      `json:"sessionStatus"`
	PresenceStatus   string      `json:"presenceStatus"`
	PresencePriority int         `json:"priority"`
	HostAddress      string      `json:"hostAddress"`
	HostName         string      `json:"hostName"`
	CreationDate     EpochMillis `json:"creationDate"`
	LastActionDate   EpochMillis `json:"lastActionDate"`
	Secure           bool        `json:"secure"`
}

// knownClients maps resource-name prefixes to client product names. The XMPP
// resource is chosen by the client and commonly starts with the product name.
var knownClients = []string{
	"Spark", "Pidgin", "Conversations", "Gajim", "Psi", "Adium", "Dino",
	"Monal", "Smack", "Swift",
}

// ClientType derives the client product from the session resource when the
// resource follows the common <product>-or-<product><suffix> convention.
// Returns the empty string when nothing can be derived.
func (s Session) ClientType() string {
	for _, name := range knownClients {
		if strings.HasPrefix(strings.ToLower(s.Resource), strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

// SecurityLogEntry is one row from the server's security audit log.
// Timestamp is epoch seconds; the client normalizes it at the API boundary
// so no other layer deals in milliseconds.
type SecurityLogEntry struct {
	LogID     int64  `json:"logId"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
	Summary   string `json:"summary"`
	Node      string `json:"node"`
	Details   string `json:"details"`
}

// EpochMillis is an upstream timestamp in milliseconds since the Unix epoch.
// Zero means absent.
type EpochMillis int64

// Time converts to a UTC time.Time.
func (m EpochMillis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// ISO8601 renders the timestamp as RFC 3339 UTC, or "" when absent.
func (m EpochMillis) ISO8601() string {
	if m == 0 {
		return ""
	}
	return m.Time().Format(time.RFC3339)
}
