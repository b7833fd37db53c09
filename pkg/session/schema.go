package session

// Schema is the SQL schema for the session log.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL,
    role        TEXT NOT NULL,
    content     TEXT NOT NULL,
    context     TEXT,
    created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`

// timeLayout is fixed width so MIN/MAX over created_at order chronologically.
const timeLayout = "2006-01-02 15:04:05.000000"
