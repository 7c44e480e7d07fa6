// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/goccy/go-json"

	models "github.com/openfire-tools/ofexport/internal/models/openfire"
)

func testAssembler() *Assembler {
	return &Assembler{
		Clock:    func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
		Hostname: "export-host",
		Server:   "xmpp.example.org",
		Domain:   "example.org",
	}
}

func marshalToMap(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestUserDocumentMetadata(t *testing.T) {
	doc := testAssembler().UserDocument(models.User{Username: "alice", Name: "Alice", Email: "alice@example.org"})
	m := marshalToMap(t, doc)

	if m["@timestamp"] != "2026-08-30T12:00:00Z" {
		t.Errorf("@timestamp: got %v", m["@timestamp"])
	}
	if m["type"] != TypeUser {
		t.Errorf("type: got %v", m["type"])
	}
	host, _ := m["host"].(map[string]interface{})
	if host["name"] != "export-host" {
		t.Errorf("host.name: got %v", host["name"])
	}
	of, _ := m["openfire"].(map[string]interface{})
	if of["server"] != "xmpp.example.org" || of["domain"] != "example.org" {
		t.Errorf("openfire block: got %v", of)
	}
	if m["username"] != "alice" {
		t.Errorf("username: got %v", m["username"])
	}
}

func TestDomainOmittedWhenUndiscovered(t *testing.T) {
	asm := testAssembler()
	asm.Domain = ""
	m := marshalToMap(t, asm.UserDocument(models.User{Username: "alice"}))

	of, _ := m["openfire"].(map[string]interface{})
	if _, present := of["domain"]; present {
		t.Error("domain should be omitted when discovery failed")
	}
	if of["server"] != "xmpp.example.org" {
		t.Errorf("server must survive missing domain: got %v", of["server"])
	}
}

func TestDocumentStableModuloTimestamp(t *testing.T) {
	asm := testAssembler()
	user := models.User{Username: "alice", Name: "Alice"}

	first, err := json.Marshal(asm.UserDocument(user))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	asm.Clock = func() time.Time { return time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC) }
	second, err := json.Marshal(asm.UserDocument(user))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	normalize := func(data []byte) []byte {
		return bytes.Replace(data, []byte(`"@timestamp":"2026-08-30T13:00:00Z"`), []byte(`"@timestamp":"2026-08-30T12:00:00Z"`), 1)
	}
	if !bytes.Equal(first, normalize(second)) {
		t.Errorf("documents differ beyond @timestamp:\n%s\n%s", first, second)
	}
}

func TestRoomMembershipsBucketsAlwaysPresent(t *testing.T) {
	m := marshalToMap(t, RoomMemberships{})

	current, ok := m["current_rooms"].([]interface{})
	if !ok {
		t.Fatalf("current_rooms missing or not an array: %v", m["current_rooms"])
	}
	if len(current) != 0 {
		t.Errorf("empty join should render empty array, got %v", current)
	}

	affiliated, ok := m["affiliated_rooms"].(map[string]interface{})
	if !ok {
		t.Fatalf("affiliated_rooms missing: %v", m)
	}
	for _, bucket := range []string{"owner", "admin", "member", "outcast"} {
		if _, ok := affiliated[bucket].([]interface{}); !ok {
			t.Errorf("bucket %s missing or not an array: %v", bucket, affiliated[bucket])
		}
	}
}

func TestRoomMembershipsSentinel(t *testing.T) {
	m := marshalToMap(t, RoomMemberships{Unavailable: true})

	if m["unavailable"] != true {
		t.Errorf("sentinel: got %v", m)
	}
	if len(m) != 1 {
		t.Errorf("sentinel must be the only field: got %v", m)
	}
}

func TestLoginStatusDerivedOnline(t *testing.T) {
	offline := marshalToMap(t, LoginStatus{})
	if offline["is_online"] != false {
		t.Errorf("no sessions: is_online got %v", offline["is_online"])
	}
	if offline["session_count"] != float64(0) {
		t.Errorf("no sessions: session_count got %v", offline["session_count"])
	}

	online := marshalToMap(t, LoginStatus{Sessions: []SessionEntry{{Resource: "Spark"}}})
	if online["is_online"] != true {
		t.Errorf("one session: is_online got %v", online["is_online"])
	}
	if online["session_count"] != float64(1) {
		t.Errorf("one session: session_count got %v", online["session_count"])
	}
}

func TestLoginStatusSentinel(t *testing.T) {
	m := marshalToMap(t, LoginStatus{Unavailable: true})
	if m["unavailable"] != true || len(m) != 1 {
		t.Errorf("sentinel: got %v", m)
	}
}

func TestRoomDocumentFields(t *testing.T) {
	room := models.Room{
		RoomName:    "lobby",
		NaturalName: "The Lobby",
		ServiceName: "conference",
		MaxUsers:    30,
		Persistent:  true,
		PublicRoom:  true,
		CreationDate: models.EpochMillis(1700000000000),
	}
	doc := testAssembler().RoomDocument(room)
	m := marshalToMap(t, doc)

	if m["room_name"] != "lobby" || m["service_name"] != "conference" {
		t.Errorf("identity fields: got %v / %v", m["room_name"], m["service_name"])
	}
	if m["creation_date"] != "2023-11-14T22:13:20Z" {
		t.Errorf("creation_date: got %v", m["creation_date"])
	}
	users, _ := m["users"].(map[string]interface{})
	for _, bucket := range []string{"owners", "admins", "members", "outcasts"} {
		if _, ok := users[bucket].([]interface{}); !ok {
			t.Errorf("users.%s missing or not an array: %v", bucket, users[bucket])
		}
	}
	groups, _ := m["groups"].(map[string]interface{})
	for _, bucket := range []string{"owner_groups", "admin_groups", "member_groups", "outcast_groups"} {
		if _, ok := groups[bucket].([]interface{}); !ok {
			t.Errorf("groups.%s missing or not an array: %v", bucket, groups[bucket])
		}
	}
}

func TestOccupantRosterSentinel(t *testing.T) {
	m := marshalToMap(t, struct {
		Occupants *OccupantRoster `json:"occupants"`
	}{Occupants: &OccupantRoster{Unavailable: true}})

	sentinel, ok := m["occupants"].(map[string]interface{})
	if !ok || sentinel["unavailable"] != true {
		t.Errorf("occupants sentinel: got %v", m["occupants"])
	}
}

func TestSecurityLogDocumentTimestamps(t *testing.T) {
	doc := testAssembler().SecurityLogDocument(models.SecurityLogEntry{
		LogID:     42,
		Username:  "admin",
		Timestamp: 1700000000,
		Summary:   "Logged in",
	})
	m := marshalToMap(t, doc)

	if m["timestamp"] != float64(1700000000) {
		t.Errorf("timestamp must stay epoch seconds: got %v", m["timestamp"])
	}
	if m["event_time"] != "2023-11-14T22:13:20Z" {
		t.Errorf("event_time: got %v", m["event_time"])
	}
	if m["@timestamp"] != "2026-08-30T12:00:00Z" {
		t.Errorf("@timestamp must be capture time: got %v", m["@timestamp"])
	}
	if m["type"] != TypeSecurityLog {
		t.Errorf("type: got %v", m["type"])
	}
}

func TestUserPropertiesFlattened(t *testing.T) {
	var user models.User
	payload := `{"username":"alice","properties":{"property":[{"key":"vcard.nick","value":"Ali"},{"key":"lang","value":"en"}]}}`
	if err := json.Unmarshal([]byte(payload), &user); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}

	m := marshalToMap(t, testAssembler().UserDocument(user))
	props, ok := m["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("properties missing: %v", m)
	}
	if props["vcard.nick"] != "Ali" || props["lang"] != "en" {
		t.Errorf("flattened properties: got %v", props)
	}
}
