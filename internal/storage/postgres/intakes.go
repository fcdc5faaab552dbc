package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/macrotracker/intake-service/internal/storage"
)

const intakeColumns = `
	id, meal_group_id, user_id, food_id, food_name, date, period, amount, unit,
	calories_per_100, carbohydrates_per_100, fat_per_100, protein_per_100,
	calories_per_piece, carbohydrates_per_piece, fat_per_piece, protein_per_piece,
	calories_total, carbohydrates_total, fat_total, protein_total,
	created_at, updated_at
`

// PostgresIntakeStorage — Postgres implementation for intake records
type PostgresIntakeStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresIntakeStorage(pool *pgxpool.Pool) *PostgresIntakeStorage {
	return &PostgresIntakeStorage{pool: pool}
}

func (s *PostgresIntakeStorage) CreateIntake(ctx context.Context, intake *storage.Intake) error {
	now := time.Now()
	intake.CreatedAt = now
	intake.UpdatedAt = now

	query := `
		INSERT INTO intakes (
			meal_group_id, user_id, food_id, food_name, date, period, amount, unit,
			calories_per_100, carbohydrates_per_100, fat_per_100, protein_per_100,
			calories_per_piece, carbohydrates_per_piece, fat_per_piece, protein_per_piece,
			calories_total, carbohydrates_total, fat_total, protein_total,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`

	n := intake.Nutriments
	return s.pool.QueryRow(ctx, query,
		intake.MealGroupID,
		intake.UserID,
		intake.FoodID,
		intake.FoodName,
		intake.Date,
		intake.Period,
		intake.Amount,
		intake.Unit,
		n.CaloriesPer100, n.CarbsPer100, n.FatPer100, n.ProteinPer100,
		n.CaloriesPerPiece, n.CarbsPerPiece, n.FatPerPiece, n.ProteinPerPiece,
		n.Calories, n.Carbs, n.Fat, n.Protein,
		intake.CreatedAt,
		intake.UpdatedAt,
	).Scan(&intake.ID)
}

func (s *PostgresIntakeStorage) CreateIntakeBatch(ctx context.Context, intakes []storage.Intake) error {
	if len(intakes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO intakes (
			meal_group_id, user_id, food_id, food_name, date, period, amount, unit,
			calories_per_100, carbohydrates_per_100, fat_per_100, protein_per_100,
			calories_per_piece, carbohydrates_per_piece, fat_per_piece, protein_per_piece,
			calories_total, carbohydrates_total, fat_total, protein_total,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`

	now := time.Now()
	for i := range intakes {
		intakes[i].CreatedAt = now
		intakes[i].UpdatedAt = now

		n := intakes[i].Nutriments
		err := tx.QueryRow(ctx, query,
			intakes[i].MealGroupID,
			intakes[i].UserID,
			intakes[i].FoodID,
			intakes[i].FoodName,
			intakes[i].Date,
			intakes[i].Period,
			intakes[i].Amount,
			intakes[i].Unit,
			n.CaloriesPer100, n.CarbsPer100, n.FatPer100, n.ProteinPer100,
			n.CaloriesPerPiece, n.CarbsPerPiece, n.FatPerPiece, n.ProteinPerPiece,
			n.Calories, n.Carbs, n.Fat, n.Protein,
			intakes[i].CreatedAt,
			intakes[i].UpdatedAt,
		).Scan(&intakes[i].ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresIntakeStorage) GetIntake(ctx context.Context, id, userID int64) (*storage.Intake, error) {
	query := `
		SELECT ` + intakeColumns + `
		FROM intakes
		WHERE id = $1 AND user_id = $2
	`

	intake, err := scanIntake(s.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return intake, nil
}

func (s *PostgresIntakeStorage) ListIntakes(ctx context.Context, userID int64, date *string, limit, offset int) ([]storage.Intake, int, error) {
	var total int
	if date != nil {
		err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM intakes WHERE user_id = $1 AND date = $2`,
			userID, *date).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
	} else {
		err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM intakes WHERE user_id = $1`,
			userID).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
	}

	var rows pgx.Rows
	var err error
	if date != nil {
		query := `
			SELECT ` + intakeColumns + `
			FROM intakes
			WHERE user_id = $1 AND date = $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3 OFFSET $4
		`
		rows, err = s.pool.Query(ctx, query, userID, *date, limit, offset)
	} else {
		query := `
			SELECT ` + intakeColumns + `
			FROM intakes
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		`
		rows, err = s.pool.Query(ctx, query, userID, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var intakes []storage.Intake
	for rows.Next() {
		intake, err := scanIntake(rows)
		if err != nil {
			return nil, 0, err
		}
		intakes = append(intakes, *intake)
	}

	return intakes, total, rows.Err()
}

func (s *PostgresIntakeStorage) UpdateIntake(ctx context.Context, intake *storage.Intake) error {
	intake.UpdatedAt = time.Now()

	query := `
		UPDATE intakes
		SET date = $1, period = $2, amount = $3,
			calories_total = $4, carbohydrates_total = $5, fat_total = $6, protein_total = $7,
			updated_at = $8
		WHERE id = $9 AND user_id = $10
	`

	n := intake.Nutriments
	result, err := s.pool.Exec(ctx, query,
		intake.Date,
		intake.Period,
		intake.Amount,
		n.Calories, n.Carbs, n.Fat, n.Protein,
		intake.UpdatedAt,
		intake.ID,
		intake.UserID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *PostgresIntakeStorage) DeleteIntake(ctx context.Context, id, userID int64) error {
	result, err := s.pool.Exec(ctx,
		`DELETE FROM intakes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *PostgresIntakeStorage) FindFirstByMealGroup(ctx context.Context, mealGroupID string, userID int64) (*storage.Intake, error) {
	query := `
		SELECT ` + intakeColumns + `
		FROM intakes
		WHERE meal_group_id = $1 AND user_id = $2
		ORDER BY id
		LIMIT 1
	`

	intake, err := scanIntake(s.pool.QueryRow(ctx, query, mealGroupID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return intake, nil
}

func (s *PostgresIntakeStorage) DeleteByMealGroup(ctx context.Context, mealGroupID string, userID int64) (int, error) {
	result, err := s.pool.Exec(ctx,
		`DELETE FROM intakes WHERE meal_group_id = $1 AND user_id = $2`,
		mealGroupID, userID)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

func (s *PostgresIntakeStorage) DeleteBatchByUser(ctx context.Context, userID int64, batchSize int) (int, error) {
	// Bounded delete: one pass removes at most batchSize rows so a huge
	// user never holds one long transaction.
	query := `
		DELETE FROM intakes
		WHERE id IN (
			SELECT id FROM intakes
			WHERE user_id = $1
			LIMIT $2
		)
	`

	result, err := s.pool.Exec(ctx, query, userID, batchSize)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntake(row rowScanner) (*storage.Intake, error) {
	var intake storage.Intake
	n := &intake.Nutriments
	err := row.Scan(
		&intake.ID,
		&intake.MealGroupID,
		&intake.UserID,
		&intake.FoodID,
		&intake.FoodName,
		&intake.Date,
		&intake.Period,
		&intake.Amount,
		&intake.Unit,
		&n.CaloriesPer100, &n.CarbsPer100, &n.FatPer100, &n.ProteinPer100,
		&n.CaloriesPerPiece, &n.CarbsPerPiece, &n.FatPerPiece, &n.ProteinPerPiece,
		&n.Calories, &n.Carbs, &n.Fat, &n.Protein,
		&intake.CreatedAt,
		&intake.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &intake, nil
}
