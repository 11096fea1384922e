package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered schema.  Every statement is idempotent so the
// list can be replayed on each deploy.  listings and listing_pictures are
// owned by the catalog service; they are created here so a single database
// can host both during development.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		public_id     CHAR(36)     NOT NULL UNIQUE,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		roles         SET('ROLE_TENANT','ROLE_LANDLORD') NOT NULL DEFAULT 'ROLE_TENANT',
		is_active     BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)    NOT NULL UNIQUE,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS listings (
		id                 BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		public_id          CHAR(36)     NOT NULL UNIQUE,
		landlord_public_id CHAR(36)     NOT NULL,
		title              VARCHAR(255) NOT NULL,
		description        TEXT         NOT NULL,
		location           VARCHAR(255) NOT NULL,
		bedrooms           INT          NOT NULL,
		bathrooms          INT          NOT NULL,
		guests             INT          NOT NULL,
		beds               INT          NOT NULL,
		price              BIGINT       NOT NULL,
		booking_category   VARCHAR(32)  NOT NULL,
		created_at         DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at         DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		INDEX idx_listings_landlord (landlord_public_id),
		INDEX idx_listings_search (location, bathrooms, bedrooms, guests, beds),
		INDEX idx_listings_category (booking_category)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS listing_pictures (
		id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		listing_id        BIGINT UNSIGNED NOT NULL,
		file              MEDIUMBLOB   NOT NULL,
		file_content_type VARCHAR(128) NOT NULL,
		is_cover          BOOLEAN      NOT NULL DEFAULT FALSE,
		CONSTRAINT fk_picture_listing FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE,
		INDEX idx_pictures_cover (listing_id, is_cover)
	) ENGINE=InnoDB`,
	// One row per listing that has ever been booked.  Creating a reservation
	// takes this row's exclusive lock first, which serialises concurrent
	// creates on the same listing.
	`CREATE TABLE IF NOT EXISTS listing_locks (
		listing_public_id CHAR(36)    NOT NULL PRIMARY KEY,
		touched_at        DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		public_id       CHAR(36)    NOT NULL UNIQUE,
		start_at        DATETIME(6) NOT NULL,
		end_at          DATETIME(6) NOT NULL,
		total_price     BIGINT      NOT NULL,
		nb_of_travelers INT         NOT NULL DEFAULT 1,
		fk_tenant       CHAR(36)    NOT NULL,
		fk_listing      CHAR(36)    NOT NULL,
		created_at      DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at      DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		CONSTRAINT chk_reservation_interval CHECK (start_at < end_at),
		INDEX idx_reservations_listing (fk_listing, start_at, end_at),
		INDEX idx_reservations_tenant (fk_tenant)
	) ENGINE=InnoDB`,
}

// Migrate runs all migrations in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
