package postgres

// SQL queries for event storage operations

const (
	// queryUpsertUser records the acting user. An event without a username
	// never clears a username the user already has.
	queryUpsertUser = `
		INSERT INTO users (id, username, display_name)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (id) DO UPDATE SET
			username     = COALESCE(EXCLUDED.username, users.username),
			display_name = COALESCE(EXCLUDED.display_name, users.display_name)
	`

	// querySaveEvent inserts an event.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	querySaveEvent = `
		INSERT INTO events (id, type, date, user_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
		RETURNING seq
	`

	// queryRecentEvents fetches the newest events across all users.
	queryRecentEvents = `
		SELECT
			e.id, e.type, e.date, e.user_id,
			COALESCE(u.username, ''), COALESCE(u.display_name, ''), e.payload
		FROM events e
		JOIN users u ON u.id = e.user_id
		ORDER BY e.date DESC, e.seq DESC
		LIMIT $1
	`

	// queryUserEvents fetches the newest events of one user.
	// A NULL limit returns every event (LIMIT NULL is LIMIT ALL).
	queryUserEvents = `
		SELECT
			e.id, e.type, e.date, e.user_id,
			COALESCE(u.username, ''), COALESCE(u.display_name, ''), e.payload
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE u.username = $1
		ORDER BY e.date DESC, e.seq DESC
		LIMIT $2
	`
)
