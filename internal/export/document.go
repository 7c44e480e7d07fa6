// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

/*
document.go - Export Document Types and Assembly

Each export run emits self-contained JSON documents, one per primary entity.
Every document carries the same metadata block:

	"@timestamp"      capture time, ISO-8601 with offset
	"type"            document type discriminator
	"host.name"       hostname of the machine running the export
	"openfire.server" the Openfire host exported from
	"openfire.domain" the XMPP domain, when discoverable

Field names follow the shipped index conventions (snake_case) so documents
from different tool versions stay queryable side by side.
*/
package export

import (
	"os"
	"time"

	"github.com/goccy/go-json"

	models "github.com/openfire-tools/ofexport/internal/models/openfire"
)

// Document types.
const (
	TypeUser        = "openfire_user"
	TypeRoom        = "openfire_muc_room"
	TypeSecurityLog = "openfire_security_log"
)

// Metadata is the block common to all export documents.
type Metadata struct {
	Timestamp string     `json:"@timestamp"`
	Type      string     `json:"type"`
	Host      HostInfo   `json:"host"`
	Openfire  ServerInfo `json:"openfire"`
}

// HostInfo identifies the exporting machine.
type HostInfo struct {
	Name string `json:"name"`
}

// ServerInfo identifies the Openfire deployment exported from.
type ServerInfo struct {
	Server string `json:"server"`
	Domain string `json:"domain,omitempty"`
}

// Assembler stamps metadata onto documents. Clock and Hostname are injectable
// so document assembly is deterministic under test.
type Assembler struct {
	// Clock supplies the capture time. Nil means time.Now.
	Clock func() time.Time

	// Hostname is the exporting machine's name for host.name.
	Hostname string

	// Server is the Openfire host documents are exported from.
	Server string

	// Domain is the XMPP domain; empty when discovery failed, in which case
	// the field is omitted from documents.
	Domain string
}

// NewAssembler creates an Assembler with the local hostname and wall clock.
func NewAssembler(server, domain string) *Assembler {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Assembler{Hostname: hostname, Server: server, Domain: domain}
}

func (a *Assembler) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}

// metadata builds the common block for one document type at capture time.
func (a *Assembler) metadata(docType string) Metadata {
	return Metadata{
		Timestamp: a.now().Format(time.RFC3339),
		Type:      docType,
		Host:      HostInfo{Name: a.Hostname},
		Openfire:  ServerInfo{Server: a.Server, Domain: a.Domain},
	}
}

// UserDocument is one exported user. RoomMemberships and LoginStatus are
// present only when the corresponding enrichment was requested.
type UserDocument struct {
	Metadata
	Username        string            `json:"username"`
	Name            string            `json:"name,omitempty"`
	Email           string            `json:"email,omitempty"`
	Properties      map[string]string `json:"properties,omitempty"`
	RoomMemberships *RoomMemberships  `json:"room_memberships,omitempty"`
	LoginStatus     *LoginStatus      `json:"login_status,omitempty"`
}

// UserDocument assembles a user export document without enrichment fields.
func (a *Assembler) UserDocument(u models.User) *UserDocument {
	return &UserDocument{
		Metadata:   a.metadata(TypeUser),
		Username:   u.Username,
		Name:       u.Name,
		Email:      u.Email,
		Properties: u.Properties.Map(),
	}
}

// RoomMemberships is the per-user room join. When the secondary fetch failed
// the field renders as the documented sentinel {"unavailable": true}; when it
// succeeded, all affiliation buckets are present even if empty.
type RoomMemberships struct {
	Unavailable     bool
	CurrentRooms    []string
	AffiliatedRooms AffiliatedRooms
}

// AffiliatedRooms holds the four stored-affiliation buckets.
type AffiliatedRooms struct {
	Owner   []string `json:"owner"`
	Admin   []string `json:"admin"`
	Member  []string `json:"member"`
	Outcast []string `json:"outcast"`
}

// MarshalJSON renders either the sentinel or the full membership object.
func (m RoomMemberships) MarshalJSON() ([]byte, error) {
	if m.Unavailable {
		return json.Marshal(unavailableSentinel{Unavailable: true})
	}
	return json.Marshal(struct {
		CurrentRooms    []string        `json:"current_rooms"`
		AffiliatedRooms AffiliatedRooms `json:"affiliated_rooms"`
	}{
		CurrentRooms:    emptyIfNil(m.CurrentRooms),
		AffiliatedRooms: m.AffiliatedRooms.normalized(),
	})
}

func (r AffiliatedRooms) normalized() AffiliatedRooms {
	return AffiliatedRooms{
		Owner:   emptyIfNil(r.Owner),
		Admin:   emptyIfNil(r.Admin),
		Member:  emptyIfNil(r.Member),
		Outcast: emptyIfNil(r.Outcast),
	}
}

// LoginStatus is the per-user session join, sentinel-rendered on failure.
type LoginStatus struct {
	Unavailable bool
	Sessions    []SessionEntry
}

// SessionEntry is one live session in a login_status block.
type SessionEntry struct {
	Resource    string `json:"resource"`
	Status      string `json:"status,omitempty"`
	Priority    int    `json:"priority"`
	ClientType  string `json:"client_type,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	ConnectedAt string `json:"connected_at,omitempty"`
}

// MarshalJSON renders either the sentinel or the full status object.
// is_online is derived, never stored.
func (l LoginStatus) MarshalJSON() ([]byte, error) {
	if l.Unavailable {
		return json.Marshal(unavailableSentinel{Unavailable: true})
	}
	sessions := l.Sessions
	if sessions == nil {
		sessions = []SessionEntry{}
	}
	return json.Marshal(struct {
		IsOnline     bool           `json:"is_online"`
		SessionCount int            `json:"session_count"`
		Sessions     []SessionEntry `json:"sessions"`
	}{
		IsOnline:     len(sessions) > 0,
		SessionCount: len(sessions),
		Sessions:     sessions,
	})
}

// NewSessionEntry converts a wire session into a document entry.
func NewSessionEntry(s models.Session) SessionEntry {
	return SessionEntry{
		Resource:    s.Resource,
		Status:      s.SessionStatus,
		Priority:    s.PresencePriority,
		ClientType:  s.ClientType(),
		IPAddress:   s.HostAddress,
		ConnectedAt: s.CreationDate.ISO8601(),
	}
}

// RoomDocument is one exported chat room with its configuration, affiliation
// rosters and current occupants.
type RoomDocument struct {
	Metadata
	RoomName                  string          `json:"room_name"`
	NaturalName               string          `json:"natural_name,omitempty"`
	Description               string          `json:"description,omitempty"`
	Subject                   string          `json:"subject,omitempty"`
	ServiceName               string          `json:"service_name"`
	CreationDate              string          `json:"creation_date,omitempty"`
	ModificationDate          string          `json:"modification_date,omitempty"`
	MaxUsers                  int             `json:"max_users"`
	Persistent                bool            `json:"persistent"`
	PublicRoom                bool            `json:"public_room"`
	RegistrationEnabled       bool            `json:"registration_enabled"`
	CanAnyoneDiscoverJID      bool            `json:"can_anyone_discover_jid"`
	CanOccupantsChangeSubject bool            `json:"can_occupants_change_subject"`
	CanOccupantsInvite        bool            `json:"can_occupants_invite"`
	CanChangeNickname         bool            `json:"can_change_nickname"`
	LogEnabled                bool            `json:"log_enabled"`
	LoginRestrictedToNickname bool            `json:"login_restricted_to_nickname"`
	MembersOnly               bool            `json:"members_only"`
	Moderated                 bool            `json:"moderated"`
	BroadcastPresenceRoles    []string        `json:"broadcast_presence_roles"`
	AllowPM                   string          `json:"allow_pm,omitempty"`
	Users                     RoomUsers       `json:"users"`
	Groups                    RoomGroups      `json:"groups"`
	Occupants                 *OccupantRoster `json:"occupants"`
	OccupantCount             int             `json:"occupant_count"`
}

// RoomUsers holds per-affiliation user JIDs.
type RoomUsers struct {
	Owners   []string `json:"owners"`
	Admins   []string `json:"admins"`
	Members  []string `json:"members"`
	Outcasts []string `json:"outcasts"`
}

// RoomGroups holds per-affiliation group names.
type RoomGroups struct {
	OwnerGroups   []string `json:"owner_groups"`
	AdminGroups   []string `json:"admin_groups"`
	MemberGroups  []string `json:"member_groups"`
	OutcastGroups []string `json:"outcast_groups"`
}

// OccupantRoster is the current occupant join, sentinel-rendered on failure.
type OccupantRoster struct {
	Unavailable bool
	Occupants   []OccupantEntry
}

// OccupantEntry is one room occupant.
type OccupantEntry struct {
	Nickname    string `json:"nickname"`
	JID         string `json:"jid,omitempty"`
	Role        string `json:"role,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// MarshalJSON renders either the sentinel or the occupant list.
func (o OccupantRoster) MarshalJSON() ([]byte, error) {
	if o.Unavailable {
		return json.Marshal(unavailableSentinel{Unavailable: true})
	}
	occupants := o.Occupants
	if occupants == nil {
		occupants = []OccupantEntry{}
	}
	return json.Marshal(occupants)
}

// RoomDocument assembles a room export document. The occupant roster is
// attached separately by the pipeline once the secondary fetch resolves.
func (a *Assembler) RoomDocument(r models.Room) *RoomDocument {
	return &RoomDocument{
		Metadata:                  a.metadata(TypeRoom),
		RoomName:                  r.RoomName,
		NaturalName:               r.NaturalName,
		Description:               r.Description,
		Subject:                   r.Subject,
		ServiceName:               r.ServiceName,
		CreationDate:              r.CreationDate.ISO8601(),
		ModificationDate:          r.ModificationDate.ISO8601(),
		MaxUsers:                  r.MaxUsers,
		Persistent:                r.Persistent,
		PublicRoom:                r.PublicRoom,
		RegistrationEnabled:       r.RegistrationEnabled,
		CanAnyoneDiscoverJID:      r.CanAnyoneDiscoverJID,
		CanOccupantsChangeSubject: r.CanOccupantsChangeSubject,
		CanOccupantsInvite:        r.CanOccupantsInvite,
		CanChangeNickname:         r.CanChangeNickname,
		LogEnabled:                r.LogEnabled,
		LoginRestrictedToNickname: r.LoginRestrictedToNickname,
		MembersOnly:               r.MembersOnly,
		Moderated:                 r.Moderated,
		BroadcastPresenceRoles:    emptyIfNil(r.BroadcastPresenceRoles.Slice()),
		AllowPM:                   r.AllowPM,
		Users: RoomUsers{
			Owners:   emptyIfNil(r.Owners.Slice()),
			Admins:   emptyIfNil(r.Admins.Slice()),
			Members:  emptyIfNil(r.Members.Slice()),
			Outcasts: emptyIfNil(r.Outcasts.Slice()),
		},
		Groups: RoomGroups{
			OwnerGroups:   emptyIfNil(r.OwnerGroups.Slice()),
			AdminGroups:   emptyIfNil(r.AdminGroups.Slice()),
			MemberGroups:  emptyIfNil(r.MemberGroups.Slice()),
			OutcastGroups: emptyIfNil(r.OutcastGroups.Slice()),
		},
		Occupants: &OccupantRoster{},
	}
}

// SecurityLogDocument is one exported audit entry. timestamp carries the
// upstream epoch seconds, event_time its ISO-8601 rendering; @timestamp is
// capture time like every other document.
type SecurityLogDocument struct {
	Metadata
	LogID     int64  `json:"log_id"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
	EventTime string `json:"event_time,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Node      string `json:"node,omitempty"`
	Details   string `json:"details,omitempty"`
}

// SecurityLogDocument assembles an audit entry export document.
func (a *Assembler) SecurityLogDocument(e models.SecurityLogEntry) *SecurityLogDocument {
	eventTime := ""
	if e.Timestamp > 0 {
		eventTime = time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339)
	}
	return &SecurityLogDocument{
		Metadata:  a.metadata(TypeSecurityLog),
		LogID:     e.LogID,
		Username:  e.Username,
		Timestamp: e.Timestamp,
		EventTime: eventTime,
		Summary:   e.Summary,
		Node:      e.Node,
		Details:   e.Details,
	}
}

// unavailableSentinel is the documented marker for a failed secondary fetch.
type unavailableSentinel struct {
	Unavailable bool `json:"unavailable"`
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
