package sqlite

const schema = `
-- One row per duplicate decision
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    draft_title TEXT NOT NULL,
    organization TEXT NOT NULL DEFAULT '',
    project TEXT NOT NULL DEFAULT '',
    method TEXT NOT NULL,
    is_duplicate INTEGER NOT NULL DEFAULT 0,
    matched_issue_id TEXT NOT NULL DEFAULT '',
    score REAL NOT NULL DEFAULT 0 CHECK(score >= 0 AND score <= 1),
    candidates_considered INTEGER NOT NULL DEFAULT 0 CHECK(candidates_considered >= 0),
    outcome TEXT NOT NULL,
    result_issue_id TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at);
CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);
CREATE INDEX IF NOT EXISTS idx_decisions_project ON decisions(project);
CREATE INDEX IF NOT EXISTS idx_decisions_matched ON decisions(matched_issue_id);
`
