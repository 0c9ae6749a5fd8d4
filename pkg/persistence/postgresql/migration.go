package postgresql

// migrations returns the schema migrations for the PostgreSQL
// persistence layer, keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: migrationV1,
	}
}

const migrationV1 = `
	CREATE TABLE IF NOT EXISTS articles (
		id UUID PRIMARY KEY,
		source_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		formatted_text TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'NORMAL',
		language TEXT NOT NULL DEFAULT 'fr',
		original_url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'DRAFT',
		scheduled_at TIMESTAMP WITH TIME ZONE,
		broadcast_at TIMESTAMP WITH TIME ZONE,
		published_at TIMESTAMP WITH TIME ZONE,
		created_by TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category) WHERE deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS avatars (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		voice_provider TEXT NOT NULL DEFAULT '',
		voice_id TEXT NOT NULL DEFAULT '',
		video_avatar_id TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'fr',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS broadcasts (
		id UUID PRIMARY KEY,
		article_id UUID NOT NULL REFERENCES articles(id),
		avatar_id UUID NOT NULL REFERENCES avatars(id),
		broadcast_type TEXT NOT NULL DEFAULT 'RECORDED',
		status TEXT NOT NULL DEFAULT 'SCHEDULED',
		scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
		generation_job_id TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		audio_url TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL DEFAULT '',
		thumbnail_url TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		view_count BIGINT NOT NULL DEFAULT 0,
		started_at TIMESTAMP WITH TIME ZONE,
		ended_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_broadcasts_status ON broadcasts(status) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_broadcasts_avatar ON broadcasts(avatar_id) WHERE deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS feeds (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'fr',
		update_frequency INTEGER NOT NULL DEFAULT 60,
		fact_check_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		ai_summary_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		scrape_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_fetched_at TIMESTAMP WITH TIME ZONE,
		created_by TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE,
		CONSTRAINT feeds_url_unique UNIQUE (url)
	);

	CREATE TABLE IF NOT EXISTS feed_articles (
		id UUID PRIMARY KEY,
		feed_id UUID NOT NULL REFERENCES feeds(id),
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		original_url TEXT NOT NULL,
		published_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		fact_check_status TEXT NOT NULL DEFAULT 'PENDING',
		fact_check_result JSONB,
		fact_checked_at TIMESTAMP WITH TIME ZONE,
		ai_summary TEXT NOT NULL DEFAULT '',
		ai_summary_generated_at TIMESTAMP WITH TIME ZONE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE,
		CONSTRAINT feed_articles_feed_url_unique UNIQUE (feed_id, original_url)
	);

	CREATE INDEX IF NOT EXISTS idx_feed_articles_feed ON feed_articles(feed_id);

	CREATE TABLE IF NOT EXISTS workflows (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		trigger_type TEXT NOT NULL DEFAULT 'manual',
		trigger_config JSONB NOT NULL DEFAULT '{}',
		definition JSONB NOT NULL DEFAULT '{}',
		engine_workflow_id TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		created_by TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE,
		CONSTRAINT workflows_name_unique UNIQUE (name)
	);

	CREATE TABLE IF NOT EXISTS executions (
		id UUID PRIMARY KEY,
		workflow_id UUID NOT NULL REFERENCES workflows(id),
		engine_execution_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'RUNNING',
		input_data JSONB,
		output_data JSONB,
		error TEXT NOT NULL DEFAULT '',
		triggered_by TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		finished_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_executions_workflow ON executions(workflow_id);
`
