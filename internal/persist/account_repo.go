package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lootgo/server/internal/loot"
)

type AccountRow struct {
	ID           int64
	Name         string
	PasswordHash string
	Banned       bool
	Online       bool
	IP           string
	Pos          loot.Vec3
	CreatedAt    time.Time
	LastActive   *time.Time
}

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Load returns nil, nil when the account does not exist.
func (r *AccountRepo) Load(ctx context.Context, name string) (*AccountRow, error) {
	row := &AccountRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, password_hash, banned, online, COALESCE(ip,''),
		        pos_x, pos_y, pos_z, created_at, last_active
		 FROM accounts WHERE name = $1`, name,
	).Scan(
		&row.ID, &row.Name, &row.PasswordHash, &row.Banned, &row.Online, &row.IP,
		&row.Pos.X, &row.Pos.Y, &row.Pos.Z, &row.CreatedAt, &row.LastActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) Create(ctx context.Context, name, rawPassword, ip string, spawn loot.Vec3) (*AccountRow, error) {
	hash, err := HashPassword(rawPassword)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	row := &AccountRow{
		Name:         name,
		PasswordHash: hash,
		IP:           ip,
		Pos:          spawn,
		CreatedAt:    now,
		LastActive:   &now,
	}
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO accounts (name, password_hash, ip, pos_x, pos_y, pos_z, last_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		row.Name, row.PasswordHash, row.IP, spawn.X, spawn.Y, spawn.Z, row.LastActive,
	).Scan(&row.ID)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// HashPassword returns the bcrypt hash stored in accounts.password_hash.
func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func ValidatePassword(hash, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

func (r *AccountRepo) UpdateLastActive(ctx context.Context, name, ip string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET last_active = NOW(), ip = $2 WHERE name = $1`,
		name, ip,
	)
	return err
}

func (r *AccountRepo) SetOnline(ctx context.Context, name string, online bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET online = $2 WHERE name = $1`,
		name, online,
	)
	return err
}

// ResetOnline clears stale online flags left by a crash.
func (r *AccountRepo) ResetOnline(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE accounts SET online = FALSE WHERE online`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *AccountRepo) SavePosition(ctx context.Context, id int64, pos loot.Vec3) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET pos_x = $2, pos_y = $3, pos_z = $4 WHERE id = $1`,
		id, pos.X, pos.Y, pos.Z,
	)
	return err
}
