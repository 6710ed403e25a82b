package doctor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var ErrDoctorNotFound = fmt.Errorf("doctor not found")

type Repository interface {
	// Find returns one page of matching records plus the total count over
	// the filtered set.
	Find(ctx context.Context, p Params) ([]Doctor, int, error)
	// FindAll returns every matching record up to cap, for exports.
	FindAll(ctx context.Context, p Params, cap int) ([]Doctor, error)
	// BulkSetEmailSent flips the contacted flag on the given records in a
	// single statement and reports how many matched.
	BulkSetEmailSent(ctx context.Context, ids []uuid.UUID, status bool) (int64, error)
	// ToggleEmailSent flips one record's contacted flag and returns the
	// updated record.
	ToggleEmailSent(ctx context.Context, id uuid.UUID) (*Doctor, error)
}

type postgresRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(db *sql.DB, logger *zap.Logger) Repository {
	return &postgresRepo{db: db, logger: logger}
}

const doctorColumns = `id, name, email, phone, specialization, address, website, email_sent, created_at, updated_at`

// buildFilter renders the WHERE clause for the given params. The website
// presence filter coalesces all three "unset" forms (sentinel, empty
// string, NULL), matching the behavior of existing stored data.
func buildFilter(p Params) (string, []any) {
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Search != "" {
		pat := arg("%" + p.Search + "%")
		clauses = append(clauses, fmt.Sprintf(
			"(name ILIKE %[1]s OR email ILIKE %[1]s OR specialization ILIKE %[1]s OR address ILIKE %[1]s)", pat))
	}
	if p.Specialization != "" {
		clauses = append(clauses, "specialization = "+arg(p.Specialization))
	}
	if p.EmailSent != nil {
		clauses = append(clauses, "email_sent = "+arg(*p.EmailSent))
	}
	if p.HasPhone != nil {
		if *p.HasPhone {
			clauses = append(clauses, "phone <> "+arg(SentinelPhone))
		} else {
			clauses = append(clauses, "phone = "+arg(SentinelPhone))
		}
	}
	if p.HasWebsite != nil {
		if *p.HasWebsite {
			clauses = append(clauses, fmt.Sprintf(
				"(website IS NOT NULL AND website <> '' AND website <> %s)", arg(SentinelWebsite)))
		} else {
			clauses = append(clauses, fmt.Sprintf(
				"(website IS NULL OR website = '' OR website = %s)", arg(SentinelWebsite)))
		}
	}
	if p.HasAddress != nil {
		if *p.HasAddress {
			clauses = append(clauses, "address <> "+arg(SentinelAddress))
		} else {
			clauses = append(clauses, "address = "+arg(SentinelAddress))
		}
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *postgresRepo) Find(ctx context.Context, p Params) ([]Doctor, int, error) {
	where, args := buildFilter(p)

	var total int
	countQuery := "SELECT COUNT(*) FROM doctors" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count doctors: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM doctors%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		doctorColumns, where, p.SortBy, p.SortOrder, len(args)+1, len(args)+2)
	args = append(args, p.Limit, (p.Page-1)*p.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query doctors: %w", err)
	}
	defer rows.Close()

	doctors, err := scanDoctors(rows)
	if err != nil {
		return nil, 0, err
	}
	return doctors, total, nil
}

func (r *postgresRepo) FindAll(ctx context.Context, p Params, cap int) ([]Doctor, error) {
	where, args := buildFilter(p)
	query := fmt.Sprintf("SELECT %s FROM doctors%s ORDER BY %s %s LIMIT $%d",
		doctorColumns, where, p.SortBy, p.SortOrder, len(args)+1)
	args = append(args, cap)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}
	defer rows.Close()
	return scanDoctors(rows)
}

func scanDoctors(rows *sql.Rows) ([]Doctor, error) {
	var doctors []Doctor
	for rows.Next() {
		var d Doctor
		var website sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.Specialization,
			&d.Address, &website, &d.EmailSent, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		// NULL collapses to the sentinel at the boundary so responses keep
		// the shape clients already expect.
		if website.Valid {
			d.Website = website.String
		} else {
			d.Website = SentinelWebsite
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}

func (r *postgresRepo) BulkSetEmailSent(ctx context.Context, ids []uuid.UUID, status bool) (int64, error) {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE doctors SET email_sent = $1, updated_at = NOW() WHERE id = ANY($2)`,
		status, pq.Array(idStrs))
	if err != nil {
		return 0, fmt.Errorf("failed to update doctors: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.logger.Info("bulk contacted-status update", zap.Int64("modified", count), zap.Bool("status", status))
	return count, nil
}

func (r *postgresRepo) ToggleEmailSent(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE doctors SET email_sent = NOT email_sent, updated_at = NOW() WHERE id = $1 RETURNING `+doctorColumns,
		id)

	var d Doctor
	var website sql.NullString
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.Specialization,
		&d.Address, &website, &d.EmailSent, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if website.Valid {
		d.Website = website.String
	} else {
		d.Website = SentinelWebsite
	}
	return &d, nil
}
