package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE candidates (
				id TEXT PRIMARY KEY,
				full_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				status VARCHAR(100) NOT NULL,
				job_id TEXT,
				attributes JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_candidates_status ON candidates(status);

			CREATE TABLE transition_rules (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				from_stage VARCHAR(100) NOT NULL,
				to_stage VARCHAR(100) NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT true,
				conditions JSONB,
				auto_send_notification BOOLEAN NOT NULL DEFAULT false,
				notification_template VARCHAR(255),
				require_approval BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				CHECK (from_stage <> to_stage)
			);

			CREATE INDEX idx_transition_rules_from_stage ON transition_rules(from_stage) WHERE enabled;

			CREATE TABLE pipeline_activity_logs (
				id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				candidate_id TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
				old_stage VARCHAR(100) NOT NULL,
				new_stage VARCHAR(100) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_pipeline_activity_logs_transition
				ON pipeline_activity_logs(candidate_id, old_stage, new_stage, created_at DESC);

			CREATE TABLE transition_executions (
				id TEXT PRIMARY KEY,
				candidate_id TEXT NOT NULL,
				rule_id TEXT NOT NULL,
				from_stage VARCHAR(100) NOT NULL,
				to_stage VARCHAR(100) NOT NULL,
				execution_type VARCHAR(20) NOT NULL CHECK (execution_type IN ('automatic', 'manual')),
				triggered_by VARCHAR(20) NOT NULL CHECK (triggered_by IN ('system', 'user')),
				conditions_met JSONB,
				execution_result VARCHAR(20) NOT NULL CHECK (execution_result IN ('success', 'error', 'skipped')),
				activity_log_id TEXT,
				notification_sent BOOLEAN NOT NULL DEFAULT false,
				notification_id TEXT,
				error_message TEXT,
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_transition_executions_recent
				ON transition_executions(candidate_id, from_stage, to_stage, executed_at DESC);
		`,
		2: `
			CREATE OR REPLACE FUNCTION log_candidate_stage_change() RETURNS TRIGGER AS $$
			BEGIN
				IF NEW.status IS DISTINCT FROM OLD.status THEN
					INSERT INTO pipeline_activity_logs (candidate_id, old_stage, new_stage, created_at)
					VALUES (NEW.id, OLD.status, NEW.status, NEW.updated_at);
				END IF;

				RETURN NEW;
			END;
			$$ LANGUAGE plpgsql;

			CREATE TRIGGER candidates_stage_change
				AFTER UPDATE OF status ON candidates
				FOR EACH ROW EXECUTE FUNCTION log_candidate_stage_change();
		`,
	}
}
