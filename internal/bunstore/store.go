// Package bunstore persists domain membership in SQL through bun and exposes
// it as a membercache.Store. It is dialect-agnostic; tests and the bundled
// examples run it on SQLite and Postgres.
package bunstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/avid-im/go-member-cache/membercache"
)

type memberRow struct {
	bun.BaseModel `bun:"table:domain_members,alias:dm"`

	DomainID string    `bun:"domain_id,pk"`
	MemberID string    `bun:"member_id,pk"`
	Alias    string    `bun:"alias,notnull"`
	IsAdmin  bool      `bun:"is_admin,notnull,default:false"`
	IsOwner  bool      `bun:"is_owner,notnull,default:false"`
	Picture  string    `bun:"picture,nullzero"`
	JoinedAt time.Time `bun:"joined_at,notnull"`
}

func (r memberRow) toMember() membercache.Member {
	return membercache.Member{
		ID:       r.MemberID,
		Alias:    r.Alias,
		IsAdmin:  r.IsAdmin,
		IsOwner:  r.IsOwner,
		Picture:  r.Picture,
		JoinedAt: r.JoinedAt,
	}
}

type memberRoleRow struct {
	bun.BaseModel `bun:"table:domain_member_roles,alias:dmr"`

	DomainID string `bun:"domain_id,pk"`
	MemberID string `bun:"member_id,pk"`
	RoleID   string `bun:"role_id,pk"`
}

var _ membercache.Store = (*Store)(nil)

// Store reads and writes domain membership through a bun database handle.
type Store struct {
	db     *bun.DB
	logger *zap.Logger
}

// New creates a Store on top of db. A nil logger falls back to a no-op
// logger.
func New(db *bun.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// ResetSchema drops and recreates the membership tables. Meant for tests and
// local setups, not for production migrations.
func (s *Store) ResetSchema(ctx context.Context) error {
	if err := s.db.ResetModel(ctx, (*memberRow)(nil), (*memberRoleRow)(nil)); err != nil {
		return fmt.Errorf("bunstore: reset schema: %w", err)
	}
	s.logger.Info("reset membership schema")
	return nil
}

// UpsertMembers writes members into domainID, replacing existing rows and
// their role assignments.
func (s *Store) UpsertMembers(ctx context.Context, domainID string, members []membercache.Member) error {
	if len(members) == 0 {
		return nil
	}

	rows := make([]memberRow, len(members))
	ids := make([]string, len(members))
	var roles []memberRoleRow
	for i, m := range members {
		rows[i] = memberRow{
			DomainID: domainID,
			MemberID: m.ID,
			Alias:    m.Alias,
			IsAdmin:  m.IsAdmin,
			IsOwner:  m.IsOwner,
			Picture:  m.Picture,
			JoinedAt: m.JoinedAt,
		}
		ids[i] = m.ID
		for _, roleID := range m.RoleIDs {
			roles = append(roles, memberRoleRow{DomainID: domainID, MemberID: m.ID, RoleID: roleID})
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&rows).
			On("CONFLICT (domain_id, member_id) DO UPDATE").
			Set("alias = EXCLUDED.alias").
			Set("is_admin = EXCLUDED.is_admin").
			Set("is_owner = EXCLUDED.is_owner").
			Set("picture = EXCLUDED.picture").
			Set("joined_at = EXCLUDED.joined_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert members: %w", err)
		}

		if _, err := tx.NewDelete().Model((*memberRoleRow)(nil)).
			Where("domain_id = ?", domainID).
			Where("member_id IN (?)", bun.In(ids)).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear member roles: %w", err)
		}

		if len(roles) > 0 {
			if _, err := tx.NewInsert().Model(&roles).Exec(ctx); err != nil {
				return fmt.Errorf("insert member roles: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bunstore: %w", err)
	}

	s.logger.Debug("upserted domain members",
		zap.String("domain", domainID),
		zap.Int("members", len(members)))
	return nil
}

// RemoveMembers deletes members and their role assignments from domainID.
// Unknown ids are ignored.
func (s *Store) RemoveMembers(ctx context.Context, domainID string, memberIDs ...string) error {
	if len(memberIDs) == 0 {
		return nil
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*memberRoleRow)(nil)).
			Where("domain_id = ?", domainID).
			Where("member_id IN (?)", bun.In(memberIDs)).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete member roles: %w", err)
		}
		if _, err := tx.NewDelete().Model((*memberRow)(nil)).
			Where("domain_id = ?", domainID).
			Where("member_id IN (?)", bun.In(memberIDs)).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bunstore: %w", err)
	}
	return nil
}

// FetchDomainMembers returns the members for memberIDs in request order. An
// id without a row in the domain is an error; callers treat absence
// explicitly instead of skipping holes.
func (s *Store) FetchDomainMembers(ctx context.Context, domainID string, memberIDs []string) ([]membercache.Member, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}

	var rows []memberRow
	if err := s.db.NewSelect().Model(&rows).
		Where("dm.domain_id = ?", domainID).
		Where("dm.member_id IN (?)", bun.In(memberIDs)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("bunstore: fetch members: %w", err)
	}

	byID := make(map[string]memberRow, len(rows))
	for _, r := range rows {
		byID[r.MemberID] = r
	}

	members := make([]membercache.Member, len(memberIDs))
	for i, id := range memberIDs {
		row, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("bunstore: member %s not in domain %s", id, domainID)
		}
		members[i] = row.toMember()
	}

	if err := s.attachRoles(ctx, domainID, members); err != nil {
		return nil, err
	}
	return members, nil
}

// QueryDomainMembers runs the combined filter query: alias search, role
// inclusion or exclusion, admins ahead of everyone else, then alias order.
// The total is computed only when q.WithCount is set and is -1 otherwise.
func (s *Store) QueryDomainMembers(ctx context.Context, domainID string, q membercache.MemberQuery) ([]membercache.Member, int, error) {
	var rows []memberRow
	sel := s.db.NewSelect().Model(&rows).
		Where("dm.domain_id = ?", domainID)

	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		sel = sel.Where(`lower(dm.alias) LIKE ? ESCAPE '\'`, pattern)
	}
	if q.IncludeRole != "" {
		sel = sel.Where(
			"EXISTS (SELECT 1 FROM domain_member_roles AS dmr WHERE dmr.domain_id = dm.domain_id AND dmr.member_id = dm.member_id AND dmr.role_id = ?)",
			q.IncludeRole)
	} else if q.ExcludeRole != "" {
		sel = sel.Where(
			"NOT EXISTS (SELECT 1 FROM domain_member_roles AS dmr WHERE dmr.domain_id = dm.domain_id AND dmr.member_id = dm.member_id AND dmr.role_id = ?)",
			q.ExcludeRole)
	}

	sel = sel.OrderExpr("dm.is_admin DESC, lower(dm.alias) ASC, dm.member_id ASC")
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}

	total := -1
	if q.WithCount {
		n, err := sel.ScanAndCount(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("bunstore: query members: %w", err)
		}
		total = n
	} else if err := sel.Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("bunstore: query members: %w", err)
	}

	members := make([]membercache.Member, len(rows))
	for i, r := range rows {
		members[i] = r.toMember()
	}
	if err := s.attachRoles(ctx, domainID, members); err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// attachRoles fills in RoleIDs for the given members with one query.
func (s *Store) attachRoles(ctx context.Context, domainID string, members []membercache.Member) error {
	if len(members) == 0 {
		return nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	var rows []memberRoleRow
	if err := s.db.NewSelect().Model(&rows).
		Where("dmr.domain_id = ?", domainID).
		Where("dmr.member_id IN (?)", bun.In(ids)).
		Order("role_id ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("bunstore: fetch member roles: %w", err)
	}

	byMember := make(map[string][]string, len(members))
	for _, r := range rows {
		byMember[r.MemberID] = append(byMember[r.MemberID], r.RoleID)
	}
	for i := range members {
		members[i].RoleIDs = byMember[members[i].ID]
	}
	return nil
}

// escapeLike escapes LIKE wildcards so search input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
