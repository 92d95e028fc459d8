package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/streamop/switchwatch/pkg/models"
)

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Stream Servers

// CreateStreamServer persists a stream server configuration
func (r *Repository) CreateStreamServer(ctx context.Context, server *models.StreamServer) error {
	if server.ID == "" {
		server.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stream_servers (id, name, kind, config)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		server.ID, server.Name, server.Kind, server.Config,
	).Scan(&server.CreatedAt, &server.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create stream server: %w", err)
	}

	return nil
}

// GetStreamServer retrieves a stream server by ID
func (r *Repository) GetStreamServer(ctx context.Context, id string) (*models.StreamServer, error) {
	var server models.StreamServer

	query := `
		SELECT id, name, kind, config, created_at, updated_at
		FROM stream_servers
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&server.ID, &server.Name, &server.Kind, &server.Config,
		&server.CreatedAt, &server.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("stream server not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream server: %w", err)
	}

	return &server, nil
}

// ListStreamServers retrieves all persisted stream server configurations
func (r *Repository) ListStreamServers(ctx context.Context) ([]*models.StreamServer, error) {
	query := `
		SELECT id, name, kind, config, created_at, updated_at
		FROM stream_servers
		ORDER BY created_at
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stream servers: %w", err)
	}
	defer rows.Close()

	var servers []*models.StreamServer
	for rows.Next() {
		var server models.StreamServer
		err := rows.Scan(
			&server.ID, &server.Name, &server.Kind, &server.Config,
			&server.CreatedAt, &server.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stream server: %w", err)
		}
		servers = append(servers, &server)
	}

	return servers, nil
}

// UpdateStreamServer updates a stream server configuration
func (r *Repository) UpdateStreamServer(ctx context.Context, server *models.StreamServer) error {
	query := `
		UPDATE stream_servers
		SET name = $2, kind = $3, config = $4, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		server.ID, server.Name, server.Kind, server.Config,
	)

	if err != nil {
		return fmt.Errorf("failed to update stream server: %w", err)
	}

	return nil
}

// DeleteStreamServer removes a stream server and its recorded events
func (r *Repository) DeleteStreamServer(ctx context.Context, id string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM health_events WHERE server_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete health events: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM stream_servers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete stream server: %w", err)
	}

	return tx.Commit(ctx)
}

// Health Events

// CreateHealthEvent records a confirmed decision transition
func (r *Repository) CreateHealthEvent(ctx context.Context, event *models.HealthEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	query := `
		INSERT INTO health_events (id, server_id, previous, decision, bitrate_kbps)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		event.ID, event.ServerID, event.Previous, event.Decision, event.BitrateKbps,
	).Scan(&event.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create health event: %w", err)
	}

	return nil
}

// ListHealthEvents retrieves recent decision transitions for a stream server
func (r *Repository) ListHealthEvents(ctx context.Context, serverID string, limit int) ([]*models.HealthEvent, error) {
	query := `
		SELECT id, server_id, previous, decision, bitrate_kbps, created_at
		FROM health_events
		WHERE server_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list health events: %w", err)
	}
	defer rows.Close()

	var events []*models.HealthEvent
	for rows.Next() {
		var event models.HealthEvent
		err := rows.Scan(
			&event.ID, &event.ServerID, &event.Previous, &event.Decision,
			&event.BitrateKbps, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health event: %w", err)
		}
		events = append(events, &event)
	}

	return events, nil
}

// Webhooks

// CreateWebhook creates a new webhook registration
func (r *Repository) CreateWebhook(ctx context.Context, webhook *models.Webhook) error {
	if webhook.ID == "" {
		webhook.ID = uuid.New().String()
	}

	query := `
		INSERT INTO webhooks (id, url, events, secret, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		webhook.ID, webhook.URL, webhook.Events, webhook.Secret, webhook.IsActive,
	).Scan(&webhook.CreatedAt, &webhook.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// ListWebhooks retrieves all webhook registrations
func (r *Repository) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	query := `
		SELECT id, url, events, secret, is_active, created_at, updated_at
		FROM webhooks
		ORDER BY created_at
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		var webhook models.Webhook
		err := rows.Scan(
			&webhook.ID, &webhook.URL, &webhook.Events, &webhook.Secret,
			&webhook.IsActive, &webhook.CreatedAt, &webhook.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, &webhook)
	}

	return webhooks, nil
}

// GetWebhooksByEvent retrieves active webhooks subscribed to an event type
func (r *Repository) GetWebhooksByEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	webhooks, err := r.ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}

	var subscribed []*models.Webhook
	for _, webhook := range webhooks {
		if webhook.IsActive && webhook.Events.Subscribed(event) {
			subscribed = append(subscribed, webhook)
		}
	}

	return subscribed, nil
}

// DeleteWebhook removes a webhook registration
func (r *Repository) DeleteWebhook(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

// Webhook Deliveries

// CreateDelivery records a webhook delivery attempt
func (r *Repository) CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	if delivery.ID == "" {
		delivery.ID = uuid.New().String()
	}

	query := `
		INSERT INTO webhook_deliveries (id, webhook_id, event, payload, status, status_code, response_body, retry_count, next_retry_at, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		delivery.ID, delivery.WebhookID, delivery.Event, delivery.Payload,
		delivery.Status, delivery.StatusCode, delivery.ResponseBody,
		delivery.RetryCount, delivery.NextRetryAt, delivery.CreatedAt, delivery.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	return nil
}

// UpdateDelivery updates a webhook delivery record
func (r *Repository) UpdateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	query := `
		UPDATE webhook_deliveries
		SET status = $2, status_code = $3, response_body = $4, retry_count = $5, next_retry_at = $6, completed_at = $7
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		delivery.ID, delivery.Status, delivery.StatusCode, delivery.ResponseBody,
		delivery.RetryCount, delivery.NextRetryAt, delivery.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update delivery: %w", err)
	}

	return nil
}

// GetPendingDeliveries retrieves deliveries awaiting retry
func (r *Repository) GetPendingDeliveries(ctx context.Context, limit int) ([]*models.WebhookDelivery, error) {
	query := `
		SELECT id, webhook_id, event, payload, status, status_code, response_body, retry_count, next_retry_at, created_at, completed_at
		FROM webhook_deliveries
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, models.WebhookDeliveryStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.WebhookDelivery
	for rows.Next() {
		var delivery models.WebhookDelivery
		err := rows.Scan(
			&delivery.ID, &delivery.WebhookID, &delivery.Event, &delivery.Payload,
			&delivery.Status, &delivery.StatusCode, &delivery.ResponseBody,
			&delivery.RetryCount, &delivery.NextRetryAt, &delivery.CreatedAt, &delivery.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, &delivery)
	}

	return deliveries, nil
}
