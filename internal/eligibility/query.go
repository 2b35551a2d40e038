// Package eligibility builds the single parameterized filter of
// spec §4.4 as one shared template, with only the placeholder syntax,
// the now()-equivalent function, and the nulls-last descending sort
// swapped per SQL dialect. This is
// the "two storage backends with divergent SQL" concern re-architected
// per spec §9: one query shape, a tiny Dialect seam, two drivers.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/brightfunnel/disposition/internal/domain"
	"github.com/brightfunnel/disposition/internal/store"
)

// Dialect abstracts the handful of syntax differences between the
// Postgres and MySQL query builders: positional placeholder style, the
// current-timestamp function, and nulls-last descending ordering.
type Dialect interface {
	// Placeholder returns the bind marker for the nth (1-based) bound
	// argument: "$3" for Postgres, "?" for MySQL.
	Placeholder(n int) string
	// Now returns the SQL current-timestamp expression.
	Now() string
	// NullsLastDesc renders "<expr> DESC" with nulls sorted after
	// non-null values; Postgres supports this natively, MySQL needs an
	// IS NULL tie-break column instead.
	NullsLastDesc(expr string) string
}

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string     { return fmt.Sprintf("$%d", n) }
func (postgresDialect) Now() string                  { return "NOW()" }
func (postgresDialect) NullsLastDesc(expr string) string {
	return expr + " DESC NULLS LAST"
}

type mysqlDialect struct{}

func (mysqlDialect) Placeholder(int) string { return "?" }
func (mysqlDialect) Now() string            { return "UTC_TIMESTAMP()" }
func (mysqlDialect) NullsLastDesc(expr string) string {
	return fmt.Sprintf("(%s IS NULL), %s DESC", expr, expr)
}

// Postgres and MySQL are the two Dialect implementations the store
// drivers use.
var (
	Postgres Dialect = postgresDialect{}
	MySQL    Dialect = mysqlDialect{}
)

// channelColumn maps a Channel to its column name prefix; every
// channel carries the same three-column shape
// (<channel>_suppressed, <channel>_cooldown_until, <channel>_last_contacted).
func channelColumn(ch domain.Channel, suffix string) string {
	return fmt.Sprintf("%s_%s", ch, suffix)
}

// Build renders the eligibility SELECT and its bound argument list for
// the given dialect and filter. The column list matches
// internal/store/postgres and internal/store/mysql's row scanners.
func Build(d Dialect, f store.EligibilityFilter) (string, []any) {
	var where []string
	var args []any
	n := 0
	bind := func(v any) string {
		n++
		args = append(args, v)
		return d.Placeholder(n)
	}

	where = append(where, fmt.Sprintf("c.client_id = %s", bind(f.ClientID)))

	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			placeholders[i] = bind(string(st))
		}
		where = append(where, fmt.Sprintf("c.disposition_status IN (%s)", strings.Join(placeholders, ",")))
	}

	suppressedCol := channelColumn(f.Channel, "suppressed")
	cooldownCol := channelColumn(f.Channel, "cooldown_until")
	where = append(where, fmt.Sprintf("c.%s = false", suppressedCol))
	where = append(where, fmt.Sprintf("(c.%s IS NULL OR c.%s <= %s)", cooldownCol, cooldownCol, d.Now()))

	where = append(where, "co.company_suppressed = false")
	where = append(where, "co.is_customer = false")
	where = append(where, fmt.Sprintf("(co.client_owner_id = %s OR co.client_owner_id IS NULL)", bind(f.ClientID)))

	if !f.FreshnessCutoff.IsZero() {
		where = append(where, fmt.Sprintf("(c.data_enriched_at IS NULL OR c.data_enriched_at > %s)", bind(f.FreshnessCutoff)))
	}

	if len(f.TitleKeywords) > 0 {
		var kwClauses []string
		for _, kw := range f.TitleKeywords {
			kwClauses = append(kwClauses, fmt.Sprintf("LOWER(c.title) LIKE %s", bind("%"+strings.ToLower(kw)+"%")))
		}
		where = append(where, "("+strings.Join(kwClauses, " OR ")+")")
	}

	orderBy := fmt.Sprintf(`ORDER BY
		CASE WHEN c.disposition_status = 'FRESH' THEN 0 ELSE 1 END ASC,
		%s,
		c.sequence_count ASC`, d.NullsLastDesc("c.data_enriched_at"))

	limitSQL := ""
	if f.Limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %s", bind(f.Limit))
	}

	query := fmt.Sprintf(`
		SELECT
			c.id, c.email, c.client_id, c.company_domain, c.first_name, c.last_name,
			c.title, c.company_name, c.disposition_status, c.disposition_updated_at,
			c.email_last_contacted, c.email_cooldown_until, c.email_suppressed,
			c.linkedin_last_contacted, c.linkedin_cooldown_until, c.linkedin_suppressed,
			c.phone_last_contacted, c.phone_cooldown_until, c.phone_suppressed,
			c.data_enriched_at, c.sequence_count, c.source_system, c.source_id,
			c.created_at, c.updated_at
		FROM contacts c
		JOIN companies co ON co.domain = c.company_domain
		WHERE %s
		%s
		%s
	`, strings.Join(where, " AND "), orderBy, limitSQL)

	return query, args
}
