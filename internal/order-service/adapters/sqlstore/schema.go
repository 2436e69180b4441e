package sqlstore

const (
	constraintProductName = "uq_product_name"
	constraintProductSKU  = "uq_product_sku"
)

// Timestamps are RFC3339 TEXT in both dialects so one scan path serves both.
// Order line items are a JSON snapshot of the request, never rewritten.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT    NOT NULL,
    sku         TEXT    NOT NULL,
    category    TEXT    NOT NULL,
    description TEXT,
    price       TEXT    NOT NULL,
    stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
    created_at  TEXT    NOT NULL,
    CONSTRAINT uq_product_name UNIQUE (name),
    CONSTRAINT uq_product_sku  UNIQUE (sku)
);

CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

CREATE TABLE IF NOT EXISTS orders (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    line_items  TEXT    NOT NULL DEFAULT '[]',
    total_price TEXT    NOT NULL,
    status      TEXT    NOT NULL DEFAULT 'pending',
    created_at  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    INTEGER NOT NULL REFERENCES orders(id),
    status      TEXT    NOT NULL,
    message     TEXT    NOT NULL DEFAULT '',
    trace_id    TEXT    NOT NULL DEFAULT '',
    span_id     TEXT    NOT NULL DEFAULT '',
    created_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_history_order_id ON order_history(order_id, id);

CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id    TEXT    NOT NULL UNIQUE,
    topic       TEXT    NOT NULL,
    key         TEXT    NOT NULL,
    payload     TEXT    NOT NULL,
    created_at  TEXT    NOT NULL,
    sent_at     TEXT
);

CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at, id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
    id          BIGSERIAL PRIMARY KEY,
    name        VARCHAR(255)   NOT NULL,
    sku         VARCHAR(50)    NOT NULL,
    category    VARCHAR(100)   NOT NULL,
    description TEXT,
    price       NUMERIC(12, 2) NOT NULL,
    stock       INTEGER        NOT NULL DEFAULT 0 CHECK (stock >= 0),
    created_at  TEXT           NOT NULL,
    CONSTRAINT uq_product_name UNIQUE (name),
    CONSTRAINT uq_product_sku  UNIQUE (sku)
);

CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

CREATE TABLE IF NOT EXISTS orders (
    id          BIGSERIAL PRIMARY KEY,
    line_items  TEXT           NOT NULL DEFAULT '[]',
    total_price NUMERIC(12, 2) NOT NULL,
    status      VARCHAR(50)    NOT NULL DEFAULT 'pending',
    created_at  TEXT           NOT NULL
);

CREATE TABLE IF NOT EXISTS order_history (
    id          BIGSERIAL PRIMARY KEY,
    order_id    BIGINT      NOT NULL REFERENCES orders(id),
    status      VARCHAR(50) NOT NULL,
    message     TEXT        NOT NULL DEFAULT '',
    trace_id    TEXT        NOT NULL DEFAULT '',
    span_id     TEXT        NOT NULL DEFAULT '',
    created_at  TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_history_order_id ON order_history(order_id, id);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    event_id    TEXT NOT NULL UNIQUE,
    topic       TEXT NOT NULL,
    key         TEXT NOT NULL,
    payload     TEXT NOT NULL,
    created_at  TEXT NOT NULL,
    sent_at     TEXT
);

CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at, id);
`
