package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/service"
	"github.com/shenikar/incident_reporting_system/pkg/e"
)

// incidentColumns - общий список колонок для выборок инцидента
const incidentColumns = `
		id,
		title,
		description,
		category,
		severity,
		status,
		ST_Y(location::geometry) as latitude,
		ST_X(location::geometry) as longitude,
		media,
		created_at,
		updated_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Create создает новую запись об инциденте в бд.
// Координаты пишутся в порядке (lng, lat) — ST_MakePoint ожидает именно его.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (title, description, category, severity, status, location, media)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography, $8)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Category,
		incident.Severity,
		incident.Status,
		incident.Longitude,
		incident.Latitude,
		incident.Media,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return e.WrapPg("repository.Create", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident := &models.Incident{}
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE id = $1;`, incidentColumns)

	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.Severity,
		&incident.Status,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Media,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, e.WrapPg("repository.GetByID", err)
	}
	return incident, nil
}

// UpdateStatus устанавливает новый статус и обновляет updated_at.
// Переходы между статусами не ограничены, проверяется только членство в наборе
// на уровне сервиса.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Incident, error) {
	incident := &models.Incident{}
	query := fmt.Sprintf(`
		UPDATE incidents SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING %s;`, incidentColumns)

	err := r.db.QueryRow(ctx, query, id, status).Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.Severity,
		&incident.Status,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Media,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, e.WrapPg("repository.UpdateStatus", err)
	}
	return incident, nil
}

// Delete жестко удаляет инцидент и возвращает удаленную запись
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident := &models.Incident{}
	query := fmt.Sprintf(`DELETE FROM incidents WHERE id = $1 RETURNING %s;`, incidentColumns)

	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.Severity,
		&incident.Status,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Media,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, e.WrapPg("repository.Delete", err)
	}
	return incident, nil
}

// List возвращает инциденты по необязательным фильтрам, новые первыми.
// Фильтры объединяются по AND; при заданном точном severity диапазон игнорируется.
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	var conditions []string
	var args []any

	addCondition := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Category != "" {
		addCondition("category = $%d", filter.Category)
	}
	if filter.Status != "" {
		addCondition("status = $%d", filter.Status)
	}
	if filter.Severity != nil {
		addCondition("severity = $%d", *filter.Severity)
	} else {
		if filter.MinSeverity != nil {
			addCondition("severity >= $%d", *filter.MinSeverity)
		}
		if filter.MaxSeverity != nil {
			addCondition("severity <= $%d", *filter.MaxSeverity)
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM incidents`, incidentColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC;"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, e.WrapPg("repository.List", err)
	}
	defer rows.Close()

	return scanIncidents(rows, "repository.List")
}

// FindNearby находит инциденты в радиусе radiusKm от точки, ближайшие первыми.
// Радиус переводится в метры для ST_DWithin, результат ограничен limit записями.
func (r *IncidentRepository) FindNearby(ctx context.Context, lng, lat, radiusKm float64, limit int) ([]*models.Incident, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM incidents
		WHERE ST_DWithin(
			location,
			ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
			$3
		)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		LIMIT $4;`, incidentColumns)

	rows, err := r.db.Query(ctx, query, lng, lat, radiusKm*1000, limit)
	if err != nil {
		return nil, e.WrapPg("repository.FindNearby", err)
	}
	defer rows.Close()

	return scanIncidents(rows, "repository.FindNearby")
}

// GetStats возвращает количество инцидентов по статусам и категориям
func (r *IncidentRepository) GetStats(ctx context.Context) (*models.IncidentStats, error) {
	stats := &models.IncidentStats{}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM incidents;`).Scan(&stats.Total); err != nil {
		return nil, e.WrapPg("repository.GetStats", err)
	}

	byStatus, err := r.countGrouped(ctx, "status")
	if err != nil {
		return nil, err
	}
	stats.ByStatus = byStatus

	byCategory, err := r.countGrouped(ctx, "category")
	if err != nil {
		return nil, err
	}
	stats.ByCategory = byCategory

	return stats, nil
}

// countGrouped группирует счётчики по заданной колонке (status или category)
func (r *IncidentRepository) countGrouped(ctx context.Context, column string) ([]models.StatusCount, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM incidents GROUP BY %s ORDER BY %s;`, column, column, column)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, e.WrapPg("repository.countGrouped", err)
	}
	defer rows.Close()

	counts := make([]models.StatusCount, 0)
	for rows.Next() {
		var c models.StatusCount
		if err := rows.Scan(&c.Value, &c.Count); err != nil {
			return nil, e.WrapPg("repository.countGrouped", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapPg("repository.countGrouped", err)
	}
	return counts, nil
}

// scanIncidents вычитывает все строки выборки в слайс инцидентов
func scanIncidents(rows pgx.Rows, op string) ([]*models.Incident, error) {
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident := &models.Incident{}
		err := rows.Scan(
			&incident.ID,
			&incident.Title,
			&incident.Description,
			&incident.Category,
			&incident.Severity,
			&incident.Status,
			&incident.Latitude,
			&incident.Longitude,
			&incident.Media,
			&incident.CreatedAt,
			&incident.UpdatedAt,
		)
		if err != nil {
			return nil, e.WrapPg(op, err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapPg(op, err)
	}
	return incidents, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	// Срок жизни кэша - 5 минут
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
