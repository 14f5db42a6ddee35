// Package ops implements the operations exposed over the CLI and MCP
// surfaces. Each operation validates its input, talks to the database, and
// returns a JSON-shaped output struct or a typed error from internal/errors.
package ops

import (
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"medtrack/internal/config"
	"medtrack/internal/db"
	"medtrack/internal/errors"
	"medtrack/internal/med"
)

// Env bundles the dependencies every operation needs. Clock and Local are
// injected so tests can pin time and timezone; NewEnv wires the real ones.
type Env struct {
	DB    *sql.DB
	Cfg   *config.Config
	Clock med.Clock
	Local *time.Location
}

// NewEnv creates an Env backed by the wall clock and the system timezone.
func NewEnv(database *sql.DB, cfg *config.Config) *Env {
	return &Env{
		DB:    database,
		Cfg:   cfg,
		Clock: time.Now,
		Local: time.Local,
	}
}

func (e *Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Env) local() *time.Location {
	if e.Local != nil {
		return e.Local
	}
	return time.Local
}

func (e *Env) grace() int {
	if e.Cfg != nil && e.Cfg.DefaultGraceMinutes > 0 {
		return e.Cfg.DefaultGraceMinutes
	}
	return 60
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// resolveMedication looks up an active medication by ULID or by name.
// Exactly one of the two must be provided.
func resolveMedication(env *Env, id, name string) (*med.Medication, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	if id != "" && name != "" {
		return nil, errors.NewInvalidRequest("specify either item_id or name, not both")
	}
	if id != "" {
		return db.GetMedicationByID(env.DB, id, false)
	}

	nameNorm := med.Normalize(name)
	if nameNorm == "" {
		return nil, errors.NewInvalidRequest("must specify item_id or name")
	}
	return db.GetMedicationByName(env.DB, nameNorm, false)
}

// cleanOptionalString trims an optional string, collapsing blank to nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func formatRFC3339(ts int64, loc *time.Location) string {
	return time.Unix(ts, 0).In(loc).Format(time.RFC3339)
}
