package rawdata

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	SourceGitHub              = "github"
	EntityStandingsCurrent    = "standings_current"
	EntityStandingsHistorical = "standings_historical"
)

// Payload is a source document kept verbatim for audit and replay.
type Payload struct {
	Source          string
	EntityType      string
	EntityKey       string
	League          string
	PayloadJSON     string
	PayloadHash     string
	SourceUpdatedAt *time.Time
}

func NewPayload(source, entityType, entityKey, league string, raw []byte, sourceUpdatedAt *time.Time) Payload {
	sum := sha256.Sum256(raw)
	return Payload{
		Source:          source,
		EntityType:      entityType,
		EntityKey:       entityKey,
		League:          league,
		PayloadJSON:     string(raw),
		PayloadHash:     hex.EncodeToString(sum[:]),
		SourceUpdatedAt: sourceUpdatedAt,
	}
}
