// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	models "github.com/openfire-tools/ofexport/internal/models/openfire"
	"github.com/openfire-tools/ofexport/internal/openfire"
	"github.com/openfire-tools/ofexport/internal/sink"
	"github.com/openfire-tools/ofexport/internal/timewindow"
)

// stubUserDirectory serves canned users and fails selected secondary fetches.
type stubUserDirectory struct {
	users        []models.User
	listErr      error
	sessions     map[string][]models.Session
	sessionErrs  map[string]error
	rooms        map[string][]string
	roomErrs     map[string]error
	sessionCalls int
}

func (s *stubUserDirectory) ListUsers(_ context.Context, _ string) ([]models.User, error) {
	return s.users, s.listErr
}

func (s *stubUserDirectory) GetUserSessions(_ context.Context, username string) ([]models.Session, error) {
	s.sessionCalls++
	if err := s.sessionErrs[username]; err != nil {
		return nil, err
	}
	return s.sessions[username], nil
}

func (s *stubUserDirectory) GetUserRooms(_ context.Context, username, _ string) ([]string, error) {
	if err := s.roomErrs[username]; err != nil {
		return nil, err
	}
	return s.rooms[username], nil
}

// stubRoomDirectory serves canned rooms and occupant rosters.
type stubRoomDirectory struct {
	rooms        []models.Room
	listErr      error
	occupants    map[string][]models.Occupant
	occupantErrs map[string]error
}

func (s *stubRoomDirectory) ListRooms(_ context.Context, _, _, _ string) ([]models.Room, error) {
	return s.rooms, s.listErr
}

func (s *stubRoomDirectory) GetRoomOccupants(_ context.Context, _, room string) ([]models.Occupant, error) {
	if err := s.occupantErrs[room]; err != nil {
		return nil, err
	}
	return s.occupants[room], nil
}

// recordingSink captures delivered documents and optionally fails some.
type recordingSink struct {
	docs     []interface{}
	failNext map[int]bool // by zero-based delivery index
}

func (r *recordingSink) Deliver(_ context.Context, doc interface{}) error {
	idx := len(r.docs)
	r.docs = append(r.docs, doc)
	if r.failNext[idx] {
		return fmt.Errorf("%w: sink returned HTTP 503", sink.ErrDelivery)
	}
	return nil
}

func docJSON(t *testing.T, doc interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal doc: %v", err)
	}
	return m
}

func TestExportUsersPartialEnrichmentFailure(t *testing.T) {
	dir := &stubUserDirectory{
		users: []models.User{
			{Username: "user1"},
			{Username: "user2"},
			{Username: "user3"},
		},
		sessions: map[string][]models.Session{
			"user1": {{Resource: "Spark 3.0.2", SessionStatus: "Authenticated"}},
		},
		sessionErrs: map[string]error{
			"user2": fmt.Errorf("get user sessions: %w", openfire.ErrTransport),
		},
	}
	snk := &recordingSink{}

	summary, err := ExportUsers(context.Background(), dir, testAssembler(), snk, UsersOptions{IncludeSessions: true})
	if err != nil {
		t.Fatalf("ExportUsers: unexpected error: %v", err)
	}

	if summary.Processed != 3 || summary.Delivered != 3 || summary.Failed != 0 {
		t.Errorf("summary tallies: got %+v", summary)
	}
	if summary.Recovered != 1 {
		t.Errorf("recovered: got %d, want 1", summary.Recovered)
	}
	if len(snk.docs) != 3 {
		t.Fatalf("document count: got %d, want 3", len(snk.docs))
	}

	// user1 has a real login_status, user2 the sentinel, user3 is offline.
	one := docJSON(t, snk.docs[0])
	status, _ := one["login_status"].(map[string]interface{})
	if status["is_online"] != true {
		t.Errorf("user1 login_status: got %v", one["login_status"])
	}

	two := docJSON(t, snk.docs[1])
	sentinel, _ := two["login_status"].(map[string]interface{})
	if sentinel["unavailable"] != true {
		t.Errorf("user2 should carry the unavailable sentinel: got %v", two["login_status"])
	}

	three := docJSON(t, snk.docs[2])
	offline, _ := three["login_status"].(map[string]interface{})
	if offline["is_online"] != false {
		t.Errorf("user3 login_status: got %v", three["login_status"])
	}
}

func TestExportUsersPrimaryFailureFatal(t *testing.T) {
	dir := &stubUserDirectory{listErr: fmt.Errorf("list users: %w", openfire.ErrServer)}
	snk := &recordingSink{}

	_, err := ExportUsers(context.Background(), dir, testAssembler(), snk, UsersOptions{})
	if err == nil {
		t.Fatal("primary fetch failure must be fatal")
	}
	if len(snk.docs) != 0 {
		t.Errorf("no documents should be delivered after a fatal error, got %d", len(snk.docs))
	}
}

func TestExportUsersNoEnrichmentNoSecondaryCalls(t *testing.T) {
	dir := &stubUserDirectory{users: []models.User{{Username: "alice"}}}
	snk := &recordingSink{}

	_, err := ExportUsers(context.Background(), dir, testAssembler(), snk, UsersOptions{})
	if err != nil {
		t.Fatalf("ExportUsers: %v", err)
	}
	if dir.sessionCalls != 0 {
		t.Errorf("sessions fetched without IncludeSessions: %d calls", dir.sessionCalls)
	}

	doc := docJSON(t, snk.docs[0])
	if _, present := doc["login_status"]; present {
		t.Error("login_status should be absent without IncludeSessions")
	}
	if _, present := doc["room_memberships"]; present {
		t.Error("room_memberships should be absent without IncludeRooms")
	}
}

func TestExportUsersRoomMembershipBuckets(t *testing.T) {
	dir := &stubUserDirectory{
		users: []models.User{{Username: "alice"}},
		rooms: map[string][]string{"alice": {"lobby"}},
	}
	snk := &recordingSink{}

	summary, err := ExportUsers(context.Background(), dir, testAssembler(), snk, UsersOptions{IncludeRooms: true})
	if err != nil {
		t.Fatalf("ExportUsers: %v", err)
	}
	if summary.Recovered != 0 {
		t.Errorf("recovered: got %d, want 0", summary.Recovered)
	}

	doc := docJSON(t, snk.docs[0])
	memberships, _ := doc["room_memberships"].(map[string]interface{})
	affiliated, _ := memberships["affiliated_rooms"].(map[string]interface{})
	for _, bucket := range []string{"owner", "admin", "member", "outcast"} {
		if _, ok := affiliated[bucket].([]interface{}); !ok {
			t.Errorf("bucket %s missing: %v", bucket, affiliated)
		}
	}
}

func TestExportRoomsOccupantCountMatchesRoster(t *testing.T) {
	dir := &stubRoomDirectory{
		rooms: []models.Room{
			{RoomName: "lobby", ServiceName: "conference"},
			{RoomName: "dev", ServiceName: "conference"},
		},
		occupants: map[string][]models.Occupant{
			"lobby": {
				{JID: "lobby@conference.example.org/alice", Role: "moderator", Affiliation: "owner"},
				{JID: "lobby@conference.example.org/bob", Role: "participant"},
			},
		},
	}
	snk := &recordingSink{}

	summary, err := ExportRooms(context.Background(), dir, testAssembler(), snk, RoomsOptions{Service: "conference", RoomType: "all"})
	if err != nil {
		t.Fatalf("ExportRooms: %v", err)
	}
	if summary.Processed != 2 || summary.Delivered != 2 {
		t.Errorf("summary: got %+v", summary)
	}

	lobby := docJSON(t, snk.docs[0])
	occupants, _ := lobby["occupants"].([]interface{})
	if len(occupants) != 2 {
		t.Fatalf("lobby occupants: got %v", lobby["occupants"])
	}
	if lobby["occupant_count"] != float64(2) {
		t.Errorf("occupant_count must equal roster length: got %v", lobby["occupant_count"])
	}
	first, _ := occupants[0].(map[string]interface{})
	if first["nickname"] != "alice" {
		t.Errorf("nickname derivation: got %v", first["nickname"])
	}

	dev := docJSON(t, snk.docs[1])
	if dev["occupant_count"] != float64(0) {
		t.Errorf("empty room occupant_count: got %v", dev["occupant_count"])
	}
}

func TestExportRoomsOccupantFetchRecovered(t *testing.T) {
	dir := &stubRoomDirectory{
		rooms: []models.Room{{RoomName: "lobby", ServiceName: "conference"}},
		occupantErrs: map[string]error{
			"lobby": fmt.Errorf("get room occupants: %w", openfire.ErrTransport),
		},
	}
	snk := &recordingSink{}

	summary, err := ExportRooms(context.Background(), dir, testAssembler(), snk, RoomsOptions{Service: "conference"})
	if err != nil {
		t.Fatalf("ExportRooms: %v", err)
	}
	if summary.Recovered != 1 || summary.Delivered != 1 {
		t.Errorf("summary: got %+v", summary)
	}

	doc := docJSON(t, snk.docs[0])
	sentinel, _ := doc["occupants"].(map[string]interface{})
	if sentinel["unavailable"] != true {
		t.Errorf("occupants sentinel: got %v", doc["occupants"])
	}
}

func TestExportSecurityLogsWindowForwarded(t *testing.T) {
	var gotQuery openfire.SecurityLogQuery
	stub := securityLogFunc(func(_ context.Context, q openfire.SecurityLogQuery) ([]models.SecurityLogEntry, error) {
		gotQuery = q
		return []models.SecurityLogEntry{{LogID: 1, Username: "admin", Timestamp: 1700000000}}, nil
	})
	snk := &recordingSink{}

	w, err := resolveTestWindow(1699990000, 1700000000)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	summary, err := ExportSecurityLogs(context.Background(), stub, testAssembler(), snk, SecLogsOptions{
		Username: "admin",
		Limit:    100,
		Window:   w,
	})
	if err != nil {
		t.Fatalf("ExportSecurityLogs: %v", err)
	}

	if gotQuery.StartTime != 1699990000 || gotQuery.EndTime != 1700000000 {
		t.Errorf("window bounds: got %+v", gotQuery)
	}
	if gotQuery.Username != "admin" || gotQuery.Limit != 100 {
		t.Errorf("query: got %+v", gotQuery)
	}
	if summary.Processed != 1 || summary.Delivered != 1 {
		t.Errorf("summary: got %+v", summary)
	}
}

func TestDeliveryFailureTalliedNotFatal(t *testing.T) {
	dir := &stubUserDirectory{
		users: []models.User{{Username: "user1"}, {Username: "user2"}, {Username: "user3"}},
	}
	snk := &recordingSink{failNext: map[int]bool{1: true}}

	summary, err := ExportUsers(context.Background(), dir, testAssembler(), snk, UsersOptions{})
	if err != nil {
		t.Fatalf("ExportUsers: %v", err)
	}
	if summary.Processed != 3 || summary.Delivered != 2 || summary.Failed != 1 {
		t.Errorf("summary: got %+v", summary)
	}
	if summary.Ok() {
		t.Error("a run with delivery failures must not report Ok")
	}
}

func TestDryRunRendersWithoutDelivery(t *testing.T) {
	dir := &stubUserDirectory{users: []models.User{{Username: "alice"}, {Username: "bob"}}}
	var buf bytes.Buffer

	summary, err := ExportUsers(context.Background(), dir, testAssembler(), sink.NewDryRunSink(&buf), UsersOptions{})
	if err != nil {
		t.Fatalf("ExportUsers: %v", err)
	}
	if summary.Delivered != 2 || summary.Failed != 0 {
		t.Errorf("summary: got %+v", summary)
	}
	out := buf.String()
	if strings.Count(out, `"username"`) != 2 {
		t.Errorf("dry run should render both documents:\n%s", out)
	}
}

func TestSummaryString(t *testing.T) {
	s := Summary{Processed: 3, Delivered: 2, Failed: 1, Recovered: 1}
	want := "processed=3 delivered=2 failed=1 recovered=1"
	if got := s.String(); got != want {
		t.Errorf("summary line: got %q, want %q", got, want)
	}
}

func resolveTestWindow(start, end int64) (timewindow.Window, error) {
	return timewindow.Resolve(timewindow.Options{StartTime: start, EndTime: end}, time.Now())
}

// securityLogFunc adapts a function to openfire.SecurityAuditLog.
type securityLogFunc func(ctx context.Context, q openfire.SecurityLogQuery) ([]models.SecurityLogEntry, error)

func (f securityLogFunc) GetSecurityLogs(ctx context.Context, q openfire.SecurityLogQuery) ([]models.SecurityLogEntry, error) {
	return f(ctx, q)
}
