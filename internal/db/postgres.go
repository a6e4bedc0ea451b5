package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/types"
	"github.com/pathbyte/pathbyte-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "pathbyte", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.RoadmapProgress{},
		&types.RoadmapItemProgress{},
		&types.RoadmapSubSkillNote{},
	); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	fks := []struct {
		name string
		stmt string
	}{
		{"fk_user_token_user_id", `
			ALTER TABLE "user_token"
			DROP CONSTRAINT IF EXISTS "fk_user_token_user_id",
			ADD CONSTRAINT "fk_user_token_user_id"
			FOREIGN KEY ("user_id") REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"fk_roadmap_progress_user_id", `
			ALTER TABLE "roadmap_progress"
			DROP CONSTRAINT IF EXISTS "fk_roadmap_progress_user_id",
			ADD CONSTRAINT "fk_roadmap_progress_user_id"
			FOREIGN KEY ("user_id") REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"fk_roadmap_item_progress_parent_id", `
			ALTER TABLE "roadmap_item_progress"
			DROP CONSTRAINT IF EXISTS "fk_roadmap_item_progress_parent_id",
			ADD CONSTRAINT "fk_roadmap_item_progress_parent_id"
			FOREIGN KEY ("roadmap_progress_id") REFERENCES "roadmap_progress"("id")
			ON DELETE CASCADE`},
		{"fk_roadmap_subskill_note_parent_id", `
			ALTER TABLE "roadmap_subskill_note"
			DROP CONSTRAINT IF EXISTS "fk_roadmap_subskill_note_parent_id",
			ADD CONSTRAINT "fk_roadmap_subskill_note_parent_id"
			FOREIGN KEY ("roadmap_progress_id") REFERENCES "roadmap_progress"("id")
			ON DELETE CASCADE`},
	}
	for _, fk := range fks {
		if err := s.db.Exec(fk.stmt).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}
	return nil
}

// EnsureRollupTrigger installs the AFTER-row trigger that recomputes the
// parent's completion_percentage inside the same transaction as any
// roadmap_item_progress mutation. Integer division here must stay identical
// to progress.ComputeCompletionCounts.
func (s *PostgresService) EnsureRollupTrigger() error {
	s.log.Info("Installing roadmap rollup trigger...")
	if err := s.db.Exec(`
		CREATE OR REPLACE FUNCTION recompute_roadmap_completion() RETURNS trigger AS $$
		DECLARE
			target_id uuid;
			completed_count integer;
			total_count integer;
			pct integer;
		BEGIN
			IF TG_OP = 'DELETE' THEN
				target_id := OLD.roadmap_progress_id;
			ELSE
				target_id := NEW.roadmap_progress_id;
			END IF;

			SELECT COUNT(*) FILTER (WHERE completed), COUNT(*)
			INTO completed_count, total_count
			FROM roadmap_item_progress
			WHERE roadmap_progress_id = target_id;

			IF total_count = 0 THEN
				pct := 0;
			ELSE
				pct := (100 * completed_count) / total_count;
			END IF;

			UPDATE roadmap_progress
			SET completion_percentage = pct,
			    last_updated = now()
			WHERE id = target_id;

			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql;
	`).Error; err != nil {
		s.log.Error("Failed to create rollup trigger function", "error", err)
		return fmt.Errorf("failed to create rollup trigger function: %w", err)
	}

	if err := s.db.Exec(`
		DROP TRIGGER IF EXISTS roadmap_item_progress_rollup ON roadmap_item_progress;
	`).Error; err != nil {
		return fmt.Errorf("failed to drop old rollup trigger: %w", err)
	}
	if err := s.db.Exec(`
		CREATE TRIGGER roadmap_item_progress_rollup
		AFTER INSERT OR UPDATE OR DELETE ON roadmap_item_progress
		FOR EACH ROW EXECUTE FUNCTION recompute_roadmap_completion();
	`).Error; err != nil {
		s.log.Error("Failed to create rollup trigger", "error", err)
		return fmt.Errorf("failed to create rollup trigger: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
