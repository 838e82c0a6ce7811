package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = user.ErrNotFound
	ErrEmailAlreadyUsed = user.ErrEmailTaken
)

const uniqueViolation = "23505"

// DBObserver times a logical DB operation; observability.Prom implements it.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewUsersRepo(pool *pgxpool.Pool, obs DBObserver) *UsersRepo {
	return &UsersRepo{pool: pool, obs: obs}
}

const userColumns = `id, first_name, last_name, email, phone_number, password_hash,
	address_street, address_city, address_state, address_postal_code, address_country,
	role, created_at, updated_at`

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			u.ID, u.FirstName, u.LastName, u.Email, u.PhoneNumber, u.PasswordHash,
			u.Address.Street, u.Address.City, u.Address.State, u.Address.PostalCode, u.Address.Country,
			string(u.Role), u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		user.NormalizeEmail(email),
	)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, arg any) (user.User, error) {
	var u user.User
	var role string

	err := r.observe(op, func() error {
		err := r.pool.QueryRow(ctx, query, arg).Scan(
			&u.ID,
			&u.FirstName,
			&u.LastName,
			&u.Email,
			&u.PhoneNumber,
			&u.PasswordHash,
			&u.Address.Street,
			&u.Address.City,
			&u.Address.State,
			&u.Address.PostalCode,
			&u.Address.Country,
			&role,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
		// a miss is not a DB error for metrics purposes
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	if u.ID == "" {
		return user.User{}, ErrUserNotFound
	}

	u.Role = user.Role(role)
	return u, nil
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.obs == nil {
		return fn()
	}
	return r.obs.ObserveDB(op, fn)
}
