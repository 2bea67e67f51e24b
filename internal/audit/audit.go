// Package audit records staff mutations for later review.
package audit

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/store"
)

// Recorder persists audit entries. A nil Recorder is a no-op so handlers
// can call it unconditionally.
type Recorder struct {
	Store  *store.Store
	Logger zerolog.Logger
}

func NewRecorder(s *store.Store, logger zerolog.Logger) *Recorder {
	return &Recorder{Store: s, Logger: logger}
}

// Record writes one audit entry using the request for actor and origin.
// Failures are logged, never surfaced; auditing must not break mutations.
func (r *Recorder) Record(req *http.Request, action, resourceType, resourceID string, metadata map[string]any) {
	if r == nil || r.Store == nil {
		return
	}
	var actorID *uuid.UUID
	if id, ok := common.UserID(req.Context()); ok {
		if parsed, err := uuid.Parse(id); err == nil {
			actorID = &parsed
		}
	}
	ip := common.ClientIP(req)
	var ipPtr *string
	if ip != "" {
		ipPtr = &ip
	}
	var payload []byte
	if len(metadata) > 0 {
		payload, _ = json.Marshal(metadata)
	}
	if err := r.Store.InsertAuditLog(req.Context(), actorID, action, resourceType, resourceID, ipPtr, payload); err != nil {
		r.Logger.Error().Err(err).Str("action", action).Str("resource", resourceType+"/"+resourceID).Msg("audit write failed")
	}
}
