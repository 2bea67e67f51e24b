package store

import (
	"context"

	"github.com/google/uuid"
)

func (s *Store) InsertAuditLog(ctx context.Context, actorID *uuid.UUID, action, resourceType, resourceID string, ip *string, metadata []byte) error {
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, resource_type, resource_id, ip, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		actorID, action, resourceType, resourceID, ip, metadata)
	return err
}

func (s *Store) InsertDomainEvent(ctx context.Context, topic, aggregateRef string, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO domain_events (topic, aggregate_ref, payload)
		VALUES ($1, $2, $3)`,
		topic, aggregateRef, payload)
	return err
}
