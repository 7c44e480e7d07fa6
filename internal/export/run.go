// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

/*
run.go - Export Pipelines

Each pipeline fetches its primary entity set, optionally joins secondary
entities, assembles documents and hands them to the sink one at a time,
sequentially. Failure handling follows a fixed policy:

  - Primary fetch failure is fatal: no documents, error returned.
  - Secondary (enrichment) fetch failure is recovered: the affected field
    renders the unavailable sentinel, a warning is logged with the entity id
    and cause, and the run continues.
  - Delivery failure is per-document: it is counted and logged, and the run
    continues with the next document.
*/
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/openfire-tools/ofexport/internal/logging"
	"github.com/openfire-tools/ofexport/internal/metrics"
	"github.com/openfire-tools/ofexport/internal/openfire"
	"github.com/openfire-tools/ofexport/internal/sink"
	"github.com/openfire-tools/ofexport/internal/timewindow"
)

// Pipeline names, used in logs, metrics and summaries.
const (
	PipelineUsers   = "users"
	PipelineRooms   = "rooms"
	PipelineSecLogs = "seclogs"
)

// Summary tallies one export run.
type Summary struct {
	// Processed counts documents assembled from primary entities.
	Processed int

	// Delivered counts documents accepted by the sink.
	Delivered int

	// Failed counts documents the sink rejected.
	Failed int

	// Recovered counts secondary fetches that failed and were replaced by
	// the unavailable sentinel.
	Recovered int
}

// Ok reports whether the run completed without delivery failures.
func (s Summary) Ok() bool {
	return s.Failed == 0
}

// String renders the human-readable run summary line.
func (s Summary) String() string {
	return fmt.Sprintf("processed=%d delivered=%d failed=%d recovered=%d",
		s.Processed, s.Delivered, s.Failed, s.Recovered)
}

// UsersOptions selects and shapes a user export.
type UsersOptions struct {
	// Search is an optional wildcard filter on usernames.
	Search string

	// IncludeRooms joins per-user room memberships.
	IncludeRooms bool

	// IncludeSessions joins per-user live sessions.
	IncludeSessions bool
}

// ExportUsers runs the user pipeline: list users, enrich each per opts,
// deliver one document per user.
func ExportUsers(ctx context.Context, dir openfire.UserDirectory, asm *Assembler, snk sink.Sink, opts UsersOptions) (Summary, error) {
	start := time.Now()
	defer func() {
		metrics.ExportDuration.WithLabelValues(PipelineUsers).Observe(time.Since(start).Seconds())
	}()

	users, err := dir.ListUsers(ctx, opts.Search)
	if err != nil {
		return Summary{}, fmt.Errorf("list users: %w", err)
	}
	logging.Info().Int("count", len(users)).Str("pipeline", PipelineUsers).Msg("Fetched users")

	var summary Summary
	for _, u := range users {
		doc := asm.UserDocument(u)

		if opts.IncludeRooms {
			doc.RoomMemberships = fetchRoomMemberships(ctx, dir, u.Username, &summary)
		}
		if opts.IncludeSessions {
			doc.LoginStatus = fetchLoginStatus(ctx, dir, u.Username, &summary)
		}

		deliver(ctx, snk, PipelineUsers, u.Username, doc, &summary)
	}
	return summary, nil
}

// fetchRoomMemberships joins the five room-name buckets for one user. Any
// bucket failing marks the whole field unavailable; partially joined
// memberships would be indistinguishable from empty ones.
func fetchRoomMemberships(ctx context.Context, dir openfire.UserDirectory, username string, summary *Summary) *RoomMemberships {
	m := &RoomMemberships{}

	current, err := dir.GetUserRooms(ctx, username, openfire.AffiliationCurrent)
	if err != nil {
		return recoverMemberships(username, err, summary)
	}
	m.CurrentRooms = current

	buckets := map[string]*[]string{
		openfire.AffiliationOwner:   &m.AffiliatedRooms.Owner,
		openfire.AffiliationAdmin:   &m.AffiliatedRooms.Admin,
		openfire.AffiliationMember:  &m.AffiliatedRooms.Member,
		openfire.AffiliationOutcast: &m.AffiliatedRooms.Outcast,
	}
	for _, affiliation := range openfire.AffiliationBuckets {
		rooms, err := dir.GetUserRooms(ctx, username, affiliation)
		if err != nil {
			return recoverMemberships(username, err, summary)
		}
		*buckets[affiliation] = rooms
	}
	return m
}

func recoverMemberships(username string, err error, summary *Summary) *RoomMemberships {
	summary.Recovered++
	metrics.EnrichmentFailures.WithLabelValues(PipelineUsers, "rooms").Inc()
	logging.Warn().Err(err).Str("username", username).Msg("Room membership fetch failed, marking unavailable")
	return &RoomMemberships{Unavailable: true}
}

// fetchLoginStatus joins live sessions for one user.
func fetchLoginStatus(ctx context.Context, dir openfire.UserDirectory, username string, summary *Summary) *LoginStatus {
	sessions, err := dir.GetUserSessions(ctx, username)
	if err != nil {
		summary.Recovered++
		metrics.EnrichmentFailures.WithLabelValues(PipelineUsers, "sessions").Inc()
		logging.Warn().Err(err).Str("username", username).Msg("Session fetch failed, marking unavailable")
		return &LoginStatus{Unavailable: true}
	}

	entries := make([]SessionEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, NewSessionEntry(s))
	}
	return &LoginStatus{Sessions: entries}
}

// RoomsOptions selects a room export.
type RoomsOptions struct {
	// Service is the group-chat service name, e.g. "conference".
	Service string

	// RoomType is "public" or "all".
	RoomType string

	// Search is an optional wildcard filter on room names.
	Search string
}

// ExportRooms runs the room pipeline: list rooms on the service, join the
// current occupant roster for each, deliver one document per room.
func ExportRooms(ctx context.Context, dir openfire.RoomDirectory, asm *Assembler, snk sink.Sink, opts RoomsOptions) (Summary, error) {
	start := time.Now()
	defer func() {
		metrics.ExportDuration.WithLabelValues(PipelineRooms).Observe(time.Since(start).Seconds())
	}()

	rooms, err := dir.ListRooms(ctx, opts.Service, opts.RoomType, opts.Search)
	if err != nil {
		return Summary{}, fmt.Errorf("list rooms: %w", err)
	}
	logging.Info().Int("count", len(rooms)).Str("service", opts.Service).Str("pipeline", PipelineRooms).Msg("Fetched rooms")

	var summary Summary
	for _, r := range rooms {
		doc := asm.RoomDocument(r)

		occupants, err := dir.GetRoomOccupants(ctx, opts.Service, r.RoomName)
		if err != nil {
			summary.Recovered++
			metrics.EnrichmentFailures.WithLabelValues(PipelineRooms, "occupants").Inc()
			logging.Warn().Err(err).Str("room", r.RoomName).Msg("Occupant fetch failed, marking unavailable")
			doc.Occupants = &OccupantRoster{Unavailable: true}
			doc.OccupantCount = 0
		} else {
			entries := make([]OccupantEntry, 0, len(occupants))
			for _, o := range occupants {
				entries = append(entries, OccupantEntry{
					Nickname:    o.Nickname(),
					JID:         o.JID,
					Role:        o.Role,
					Affiliation: o.Affiliation,
				})
			}
			doc.Occupants = &OccupantRoster{Occupants: entries}
			doc.OccupantCount = len(entries)
		}

		deliver(ctx, snk, PipelineRooms, r.RoomName, doc, &summary)
	}
	return summary, nil
}

// SecLogsOptions selects a security audit log export.
type SecLogsOptions struct {
	// Username filters to one user; empty means all.
	Username string

	// Offset and Limit page through the log.
	Offset int
	Limit  int

	// Window bounds the export in time.
	Window timewindow.Window
}

// ExportSecurityLogs runs the audit log pipeline.
func ExportSecurityLogs(ctx context.Context, auditLog openfire.SecurityAuditLog, asm *Assembler, snk sink.Sink, opts SecLogsOptions) (Summary, error) {
	start := time.Now()
	defer func() {
		metrics.ExportDuration.WithLabelValues(PipelineSecLogs).Observe(time.Since(start).Seconds())
	}()

	entries, err := auditLog.GetSecurityLogs(ctx, openfire.SecurityLogQuery{
		Username:  opts.Username,
		Offset:    opts.Offset,
		Limit:     opts.Limit,
		StartTime: opts.Window.StartSeconds(),
		EndTime:   opts.Window.EndSeconds(),
	})
	if err != nil {
		return Summary{}, fmt.Errorf("get security logs: %w", err)
	}
	logging.Info().Int("count", len(entries)).Str("window", opts.Window.String()).Str("pipeline", PipelineSecLogs).Msg("Fetched security log entries")

	var summary Summary
	for _, e := range entries {
		doc := asm.SecurityLogDocument(e)
		deliver(ctx, snk, PipelineSecLogs, fmt.Sprintf("log %d", e.LogID), doc, &summary)
	}
	return summary, nil
}

// deliver hands one document to the sink and updates tallies. Delivery
// failure is per-document, never fatal.
func deliver(ctx context.Context, snk sink.Sink, pipeline, entity string, doc interface{}, summary *Summary) {
	summary.Processed++
	metrics.DocumentsProcessed.WithLabelValues(pipeline).Inc()

	if err := snk.Deliver(ctx, doc); err != nil {
		summary.Failed++
		metrics.DocumentsFailed.WithLabelValues(pipeline).Inc()
		logging.Error().Err(err).Str("pipeline", pipeline).Str("entity", entity).Msg("Document delivery failed")
		return
	}
	summary.Delivered++
	metrics.DocumentsDelivered.WithLabelValues(pipeline).Inc()
}
