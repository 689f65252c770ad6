package store

const schema = `
CREATE TABLE IF NOT EXISTS devices (
    id TEXT PRIMARY KEY,
    model TEXT,
    android_sdk INTEGER,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    device_id TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    user_index INTEGER NOT NULL,
    protected BOOLEAN,
    PRIMARY KEY (device_id, user_id),
    FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS packages (
    device_id TEXT NOT NULL,
    user_index INTEGER NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    state TEXT NOT NULL,
    PRIMARY KEY (device_id, user_index, name),
    FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id TEXT NOT NULL,
    snapshot_path TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL,
    user_count INTEGER,
    package_count INTEGER
);

CREATE INDEX IF NOT EXISTS idx_users_device ON users(device_id);
CREATE INDEX IF NOT EXISTS idx_packages_user ON packages(device_id, user_index);
CREATE INDEX IF NOT EXISTS idx_snapshots_device ON snapshots(device_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
`
