package repository

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS source_files (
		id           UUID PRIMARY KEY,
		source_path  TEXT NOT NULL,
		filename     TEXT NOT NULL,
		file_ext     TEXT NOT NULL,
		file_size    BIGINT NOT NULL,
		content_hash BYTEA NOT NULL UNIQUE,
		uploaded_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id               UUID PRIMARY KEY,
		name             TEXT NOT NULL,
		normalized_name  TEXT NOT NULL UNIQUE,
		document_count   INTEGER NOT NULL DEFAULT 0,
		purchase_orders  INTEGER NOT NULL DEFAULT 0,
		invoices         INTEGER NOT NULL DEFAULT 0,
		receipts         INTEGER NOT NULL DEFAULT 0,
		total_amount     NUMERIC NOT NULL DEFAULT 0,
		last_document_at DATE,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id                    UUID PRIMARY KEY,
		file_id               UUID REFERENCES source_files (id),
		vendor_id             UUID REFERENCES vendors (id),
		source_ref            TEXT NOT NULL,
		document_type         TEXT NOT NULL,
		document_number       TEXT,
		vendor                TEXT,
		document_date         DATE,
		total_amount          NUMERIC,
		reference_po          TEXT,
		item                  TEXT,
		quantity              INTEGER,
		unit_price            NUMERIC,
		date_received         DATE,
		extraction_confidence DOUBLE PRECISION NOT NULL,
		extraction_method     TEXT NOT NULL,
		raw_text              TEXT NOT NULL,
		metadata              JSONB NOT NULL,
		created_at            TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_type_idx ON documents (document_type)`,
	`CREATE INDEX IF NOT EXISTS documents_date_idx ON documents (document_date)`,
	`CREATE TABLE IF NOT EXISTS line_items (
		document_id           UUID NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
		line_no               INTEGER NOT NULL,
		item_description      TEXT NOT NULL,
		quantity              INTEGER NOT NULL,
		unit_price            NUMERIC NOT NULL,
		line_total            NUMERIC NOT NULL,
		extraction_confidence DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (document_id, line_no)
	)`,
	`CREATE TABLE IF NOT EXISTS parse_runs (
		id                    UUID PRIMARY KEY,
		file_id               UUID NOT NULL REFERENCES source_files (id),
		document_id           UUID REFERENCES documents (id),
		format                TEXT NOT NULL,
		started_at            TIMESTAMPTZ NOT NULL,
		finished_at           TIMESTAMPTZ,
		status                TEXT NOT NULL,
		error_message         TEXT,
		extraction_confidence DOUBLE PRECISION,
		extraction_method     TEXT,
		parser_version        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS parse_runs_file_idx ON parse_runs (file_id)`,
}

// SQLite keeps ids, money and dates as TEXT so values round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS source_files (
		id           TEXT PRIMARY KEY,
		source_path  TEXT NOT NULL,
		filename     TEXT NOT NULL,
		file_ext     TEXT NOT NULL,
		file_size    INTEGER NOT NULL,
		content_hash BLOB NOT NULL UNIQUE,
		uploaded_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		normalized_name  TEXT NOT NULL UNIQUE,
		document_count   INTEGER NOT NULL DEFAULT 0,
		purchase_orders  INTEGER NOT NULL DEFAULT 0,
		invoices         INTEGER NOT NULL DEFAULT 0,
		receipts         INTEGER NOT NULL DEFAULT 0,
		total_amount     TEXT NOT NULL DEFAULT '0',
		last_document_at TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id                    TEXT PRIMARY KEY,
		file_id               TEXT REFERENCES source_files (id),
		vendor_id             TEXT REFERENCES vendors (id),
		source_ref            TEXT NOT NULL,
		document_type         TEXT NOT NULL,
		document_number       TEXT,
		vendor                TEXT,
		document_date         TEXT,
		total_amount          TEXT,
		reference_po          TEXT,
		item                  TEXT,
		quantity              INTEGER,
		unit_price            TEXT,
		date_received         TEXT,
		extraction_confidence REAL NOT NULL,
		extraction_method     TEXT NOT NULL,
		raw_text              TEXT NOT NULL,
		metadata              TEXT NOT NULL,
		created_at            TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_type_idx ON documents (document_type)`,
	`CREATE INDEX IF NOT EXISTS documents_date_idx ON documents (document_date)`,
	`CREATE TABLE IF NOT EXISTS line_items (
		document_id           TEXT NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
		line_no               INTEGER NOT NULL,
		item_description      TEXT NOT NULL,
		quantity              INTEGER NOT NULL,
		unit_price            TEXT NOT NULL,
		line_total            TEXT NOT NULL,
		extraction_confidence REAL NOT NULL,
		PRIMARY KEY (document_id, line_no)
	)`,
	`CREATE TABLE IF NOT EXISTS parse_runs (
		id                    TEXT PRIMARY KEY,
		file_id               TEXT NOT NULL REFERENCES source_files (id),
		document_id           TEXT REFERENCES documents (id),
		format                TEXT NOT NULL,
		started_at            TEXT NOT NULL,
		finished_at           TEXT,
		status                TEXT NOT NULL,
		error_message         TEXT,
		extraction_confidence REAL,
		extraction_method     TEXT,
		parser_version        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS parse_runs_file_idx ON parse_runs (file_id)`,
}
