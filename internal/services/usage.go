package services

import (
	"context"
	"errors"
	"log"

	"github.com/dkrstic/sitegrid-api/internal/database"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UsageService records one row per authenticated API-key call. Writes are
// best-effort: a failed insert is logged and swallowed, never surfaced to
// the request that triggered it.
type UsageService struct {
	db *database.DB
}

func NewUsageService(db *database.DB) *UsageService {
	return &UsageService{db: db}
}

func (s *UsageService) Record(keyID uuid.UUID, endpoint, method string, statusCode int, durationMs int64, clientIP string) {
	if len(endpoint) > 500 {
		endpoint = endpoint[:500]
	}
	if len(clientIP) > 64 {
		clientIP = clientIP[:64]
	}

	_, err := s.db.Pool.Exec(context.Background(), `
		INSERT INTO api_key_usage (api_key_id, endpoint, method, status_code, duration_ms, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, keyID, endpoint, method, statusCode, durationMs, clientIP)
	if err != nil {
		log.Printf("api key usage: failed to record call for key %s: %v", keyID, err)
	}
}

// checkKeyOwnership rejects reads against keys the tenant does not own.
func (s *UsageService) checkKeyOwnership(ctx context.Context, tenantID, keyID uuid.UUID) error {
	var one int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT 1 FROM api_keys WHERE id = $1 AND tenant_id = $2
	`, keyID, tenantID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAPIKeyNotFound
	}
	return err
}

func (s *UsageService) List(ctx context.Context, tenantID, keyID uuid.UUID, limit int) ([]models.APIKeyUsage, error) {
	if err := s.checkKeyOwnership(ctx, tenantID, keyID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, api_key_id, endpoint, method, status_code, duration_ms, client_ip, created_at
		FROM api_key_usage
		WHERE api_key_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, keyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []models.APIKeyUsage
	for rows.Next() {
		var u models.APIKeyUsage
		if err := rows.Scan(
			&u.ID, &u.APIKeyID, &u.Endpoint, &u.Method,
			&u.StatusCode, &u.DurationMs, &u.ClientIP, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, nil
}

type UsageStats struct {
	TotalRequests int64
	Last24hCount  int64
	AvgDurationMs float64
}

func (s *UsageService) Stats(ctx context.Context, tenantID, keyID uuid.UUID) (*UsageStats, error) {
	if err := s.checkKeyOwnership(ctx, tenantID, keyID); err != nil {
		return nil, err
	}

	var stats UsageStats
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours'),
			COALESCE(AVG(duration_ms), 0)
		FROM api_key_usage
		WHERE api_key_id = $1
	`, keyID).Scan(&stats.TotalRequests, &stats.Last24hCount, &stats.AvgDurationMs)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
