package personastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/personakit/adoptctl/pkg/design"
	"github.com/personakit/adoptctl/pkg/engine"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS personas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL,
		structured_prompt TEXT,
		icon TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		model_profile TEXT NOT NULL DEFAULT '',
		max_budget_usd REAL,
		max_turns INTEGER,
		notification_channels TEXT,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS persona_triggers (
		id TEXT PRIMARY KEY,
		persona_id TEXT NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
		trigger_type TEXT NOT NULL,
		config TEXT,
		description TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 1
	);`,
	`CREATE TABLE IF NOT EXISTS persona_tools (
		id TEXT PRIMARY KEY,
		persona_id TEXT NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		requires_credential_type TEXT NOT NULL DEFAULT '',
		input_schema TEXT,
		implementation_guide TEXT NOT NULL DEFAULT ''
	);`,
}

var validTriggerTypes = map[string]bool{
	"manual":   true,
	"schedule": true,
	"polling":  true,
	"webhook":  true,
}

// Store persists finalized personas in SQLite.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrapf(err, "open persona db %s", path)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "apply persona schema")
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Create inserts the persona and its sub-entities. The persona row is the
// transaction anchor: if it cannot be written the whole creation fails, but
// individual trigger or tool failures are collected as entity errors and the
// persona is still committed. Connectors the user has no credential for are
// reported as needing setup.
func (s *Store) Create(ctx context.Context, draft *design.Draft) (engine.CreateResult, error) {
	if err := draft.Validate(); err != nil {
		return engine.CreateResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return engine.CreateResult{}, errors.Wrap(err, "begin persona tx")
	}
	defer func() { _ = tx.Rollback() }()

	res := engine.CreateResult{PersonaID: uuid.NewString()}

	structured, err := marshalNullable(draft.StructuredPrompt)
	if err != nil {
		return engine.CreateResult{}, err
	}
	channels, err := marshalNullable(draft.NotificationChannels)
	if err != nil {
		return engine.CreateResult{}, err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO personas
		(id, name, description, system_prompt, structured_prompt, icon, color,
		 model_profile, max_budget_usd, max_turns, notification_channels, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.PersonaID, draft.Name, draft.Description, draft.SystemPrompt, structured,
		draft.Icon, draft.Color, draft.ModelProfile,
		nullFloat(draft.MaxBudgetUSD), nullInt(draft.MaxTurns), channels,
		time.Now().UTC())
	if err != nil {
		return engine.CreateResult{}, errors.Wrap(err, "insert persona")
	}

	for _, trig := range draft.Triggers {
		triggerType := trig.TriggerType
		if !validTriggerTypes[triggerType] {
			triggerType = "manual"
		}
		cfg, mErr := marshalNullable(trig.Config)
		if mErr != nil {
			res.EntityErrors = append(res.EntityErrors, engine.EntityError{
				EntityType: "trigger", EntityName: trig.TriggerType, Err: mErr.Error(),
			})
			continue
		}
		_, iErr := tx.ExecContext(ctx, `INSERT INTO persona_triggers
			(id, persona_id, trigger_type, config, description, enabled)
			VALUES (?, ?, ?, ?, ?, 1)`,
			uuid.NewString(), res.PersonaID, triggerType, cfg, trig.Description)
		if iErr != nil {
			res.EntityErrors = append(res.EntityErrors, engine.EntityError{
				EntityType: "trigger", EntityName: triggerType, Err: iErr.Error(),
			})
			continue
		}
		res.TriggersCreated++
	}

	for _, tool := range draft.Tools {
		if tool.Name == "" {
			res.EntityErrors = append(res.EntityErrors, engine.EntityError{
				EntityType: "tool", EntityName: "(unnamed)", Err: "tool has no name",
			})
			continue
		}
		schemaJSON, mErr := marshalNullable(tool.InputSchema)
		if mErr != nil {
			res.EntityErrors = append(res.EntityErrors, engine.EntityError{
				EntityType: "tool", EntityName: tool.Name, Err: mErr.Error(),
			})
			continue
		}
		_, iErr := tx.ExecContext(ctx, `INSERT INTO persona_tools
			(id, persona_id, name, category, description, requires_credential_type,
			 input_schema, implementation_guide)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), res.PersonaID, tool.Name, tool.Category, tool.Description,
			tool.RequiresCredentialType, schemaJSON, tool.ImplementationGuide)
		if iErr != nil {
			res.EntityErrors = append(res.EntityErrors, engine.EntityError{
				EntityType: "tool", EntityName: tool.Name, Err: iErr.Error(),
			})
			continue
		}
		res.ToolsCreated++
	}

	for _, conn := range draft.RequiredConnectors {
		if !conn.HasCredential {
			res.ConnectorsNeedingSetup = append(res.ConnectorsNeedingSetup, conn.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return engine.CreateResult{}, errors.Wrap(err, "commit persona")
	}
	log.Info().Str("persona_id", res.PersonaID).Str("name", draft.Name).
		Int("triggers", res.TriggersCreated).Int("tools", res.ToolsCreated).
		Int("entity_errors", len(res.EntityErrors)).Msg("persona created")
	return res, nil
}

// Persona is the stored core of a created persona, for lookups and tests.
type Persona struct {
	ID           string
	Name         string
	Description  string
	SystemPrompt string
	Icon         string
	Color        string
}

func (s *Store) Get(ctx context.Context, id string) (Persona, error) {
	var p Persona
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description, system_prompt, icon, color
		FROM personas WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.SystemPrompt, &p.Icon, &p.Color)
	if err == sql.ErrNoRows {
		return Persona{}, errors.Errorf("persona %s not found", id)
	}
	if err != nil {
		return Persona{}, errors.Wrap(err, "get persona")
	}
	return p, nil
}

func (s *Store) CountTriggers(ctx context.Context, personaID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM persona_triggers WHERE persona_id = ?`, personaID).Scan(&n)
	return n, errors.Wrap(err, "count triggers")
}

func (s *Store) CountTools(ctx context.Context, personaID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM persona_tools WHERE persona_id = ?`, personaID).Scan(&n)
	return n, errors.Wrap(err, "count tools")
}

func marshalNullable(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case json.RawMessage:
		if len(t) == 0 {
			return nil, nil
		}
		return string(t), nil
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
	case []design.NotificationChannel:
		if len(t) == 0 {
			return nil, nil
		}
	case *design.StructuredPrompt:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal persona field")
	}
	return string(b), nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
