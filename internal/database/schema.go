package database

// schema is applied in order by Migrate.  seat_ledger's primary key is the
// storage-level guarantee that a seat is booked at most once.
var schema = []string{
    `CREATE TABLE IF NOT EXISTS vehicles (
        id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        number      VARCHAR(32)     NOT NULL UNIQUE,
        name        VARCHAR(128)    NOT NULL,
        seats       INT             NOT NULL,
        price_cents BIGINT          NOT NULL,
        CONSTRAINT chk_vehicles_price CHECK (price_cents > 0)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS holds (
        id                 CHAR(36)        NOT NULL PRIMARY KEY,
        vehicle_id         BIGINT UNSIGNED NOT NULL,
        status             VARCHAR(16)     NOT NULL,
        owner_id           VARCHAR(64)     NOT NULL DEFAULT '',
        payment_session_id CHAR(36)        NULL,
        created_at         DATETIME(6)     NOT NULL,
        expires_at         DATETIME(6)     NOT NULL,
        updated_at         DATETIME(6)     NOT NULL,
        KEY idx_holds_vehicle_status (vehicle_id, status),
        CONSTRAINT fk_holds_vehicle FOREIGN KEY (vehicle_id) REFERENCES vehicles (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS hold_seats (
        hold_id          CHAR(36)     NOT NULL,
        position         INT          NOT NULL,
        seat_number      INT          NOT NULL,
        passenger_name   VARCHAR(128) NOT NULL,
        passenger_age    INT          NOT NULL,
        passenger_gender VARCHAR(16)  NOT NULL,
        PRIMARY KEY (hold_id, seat_number),
        CONSTRAINT fk_hold_seats_hold FOREIGN KEY (hold_id) REFERENCES holds (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS seat_ledger (
        vehicle_id       BIGINT UNSIGNED NOT NULL,
        seat_number      INT             NOT NULL,
        hold_id          CHAR(36)        NOT NULL,
        passenger_name   VARCHAR(128)    NOT NULL,
        passenger_age    INT             NOT NULL,
        passenger_gender VARCHAR(16)     NOT NULL,
        created_at       DATETIME(6)     NOT NULL,
        PRIMARY KEY (vehicle_id, seat_number),
        KEY idx_seat_ledger_hold (hold_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS payment_sessions (
        id           CHAR(36)     NOT NULL PRIMARY KEY,
        hold_id      CHAR(36)     NOT NULL,
        amount_cents BIGINT       NOT NULL,
        external_ref VARCHAR(64)  NOT NULL,
        redirect_url VARCHAR(512) NOT NULL,
        outcome      VARCHAR(16)  NOT NULL,
        created_at   DATETIME(6)  NOT NULL,
        resolved_at  DATETIME(6)  NULL,
        KEY idx_payment_sessions_hold (hold_id),
        CONSTRAINT fk_payment_sessions_hold FOREIGN KEY (hold_id) REFERENCES holds (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
