// Package postgresql provides the PostgreSQL persistence implementation
// for articles, broadcasts, feeds and workflows.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/dukex/newscast/pkg/persistence"
	"github.com/dukex/newscast/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	articles     *ArticleRepository
	broadcasts   *BroadcastRepository
	avatars      *AvatarRepository
	feeds        *FeedRepository
	feedArticles *FeedArticleRepository
	workflows    *WorkflowRepository
	executions   *ExecutionRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		articles:     NewArticleRepository(database, logger),
		broadcasts:   NewBroadcastRepository(database, logger),
		avatars:      NewAvatarRepository(database, logger),
		feeds:        NewFeedRepository(database, logger),
		feedArticles: NewFeedArticleRepository(database, logger),
		workflows:    NewWorkflowRepository(database, logger),
		executions:   NewExecutionRepository(database, logger),
	}, nil
}

func (p *Persistence) Articles() persistence.ArticleRepository         { return p.articles }
func (p *Persistence) Broadcasts() persistence.BroadcastRepository     { return p.broadcasts }
func (p *Persistence) Avatars() persistence.AvatarRepository           { return p.avatars }
func (p *Persistence) Feeds() persistence.FeedRepository               { return p.feeds }
func (p *Persistence) FeedArticles() persistence.FeedArticleRepository { return p.feedArticles }
func (p *Persistence) Workflows() persistence.WorkflowRepository       { return p.workflows }
func (p *Persistence) Executions() persistence.ExecutionRepository     { return p.executions }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
