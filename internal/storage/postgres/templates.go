package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/macrotracker/intake-service/internal/storage"
)

// PostgresTemplateStorage — Postgres implementation for meal templates
type PostgresTemplateStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresTemplateStorage(pool *pgxpool.Pool) *PostgresTemplateStorage {
	return &PostgresTemplateStorage{pool: pool}
}

const templateItemInsert = `
	INSERT INTO meal_template_items (
		template_id, food_id, food_name, amount, unit,
		calories_per_100, carbohydrates_per_100, fat_per_100, protein_per_100,
		calories_per_piece, carbohydrates_per_piece, fat_per_piece, protein_per_piece,
		calories_total, carbohydrates_total, fat_total, protein_total
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	RETURNING id
`

func (s *PostgresTemplateStorage) CreateTemplate(ctx context.Context, template *storage.MealTemplate) error {
	now := time.Now()
	template.CreatedAt = now
	template.UpdatedAt = now

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO meal_templates (user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, template.UserID, template.Name, template.CreatedAt, template.UpdatedAt).Scan(&template.ID)
	if err != nil {
		return err
	}

	for i := range template.Items {
		template.Items[i].TemplateID = template.ID
		if err := insertItem(ctx, tx, &template.Items[i]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresTemplateStorage) GetTemplate(ctx context.Context, id, userID int64) (*storage.MealTemplate, error) {
	var template storage.MealTemplate
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM meal_templates
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&template.ID,
		&template.UserID,
		&template.Name,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	items, err := s.loadItems(ctx, []int64{template.ID})
	if err != nil {
		return nil, err
	}
	template.Items = items[template.ID]

	return &template, nil
}

func (s *PostgresTemplateStorage) ListTemplates(ctx context.Context, userID int64) ([]storage.MealTemplate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM meal_templates
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []storage.MealTemplate
	var ids []int64
	for rows.Next() {
		var template storage.MealTemplate
		if err := rows.Scan(
			&template.ID,
			&template.UserID,
			&template.Name,
			&template.CreatedAt,
			&template.UpdatedAt,
		); err != nil {
			return nil, err
		}
		templates = append(templates, template)
		ids = append(ids, template.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return templates, nil
	}

	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		templates[i].Items = items[templates[i].ID]
	}

	return templates, nil
}

func (s *PostgresTemplateStorage) ReplaceTemplate(ctx context.Context, template *storage.MealTemplate) error {
	template.UpdatedAt = time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE meal_templates
		SET name = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
	`, template.Name, template.UpdatedAt, template.ID, template.UserID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM meal_template_items WHERE template_id = $1`, template.ID)
	if err != nil {
		return err
	}

	for i := range template.Items {
		template.Items[i].TemplateID = template.ID
		if err := insertItem(ctx, tx, &template.Items[i]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresTemplateStorage) DeleteTemplate(ctx context.Context, id, userID int64) error {
	// Items go with the template via ON DELETE CASCADE.
	result, err := s.pool.Exec(ctx,
		`DELETE FROM meal_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *PostgresTemplateStorage) loadItems(ctx context.Context, templateIDs []int64) (map[int64][]storage.TemplateItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, template_id, food_id, food_name, amount, unit,
			calories_per_100, carbohydrates_per_100, fat_per_100, protein_per_100,
			calories_per_piece, carbohydrates_per_piece, fat_per_piece, protein_per_piece,
			calories_total, carbohydrates_total, fat_total, protein_total
		FROM meal_template_items
		WHERE template_id = ANY($1)
		ORDER BY id
	`, templateIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]storage.TemplateItem)
	for rows.Next() {
		var item storage.TemplateItem
		n := &item.Nutriments
		if err := rows.Scan(
			&item.ID,
			&item.TemplateID,
			&item.FoodID,
			&item.FoodName,
			&item.Amount,
			&item.Unit,
			&n.CaloriesPer100, &n.CarbsPer100, &n.FatPer100, &n.ProteinPer100,
			&n.CaloriesPerPiece, &n.CarbsPerPiece, &n.FatPerPiece, &n.ProteinPerPiece,
			&n.Calories, &n.Carbs, &n.Fat, &n.Protein,
		); err != nil {
			return nil, err
		}
		result[item.TemplateID] = append(result[item.TemplateID], item)
	}

	return result, rows.Err()
}

func insertItem(ctx context.Context, tx pgx.Tx, item *storage.TemplateItem) error {
	n := item.Nutriments
	return tx.QueryRow(ctx, templateItemInsert,
		item.TemplateID,
		item.FoodID,
		item.FoodName,
		item.Amount,
		item.Unit,
		n.CaloriesPer100, n.CarbsPer100, n.FatPer100, n.ProteinPer100,
		n.CaloriesPerPiece, n.CarbsPerPiece, n.FatPerPiece, n.ProteinPerPiece,
		n.Calories, n.Carbs, n.Fat, n.Protein,
	).Scan(&item.ID)
}
