package postgres

const (
	queryCreateRoom = `
		INSERT INTO rooms (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at`
	queryGetRoom    = `SELECT id, name, description, created_at FROM rooms WHERE id = $1`
	queryListRooms  = `SELECT id, name, description, created_at FROM rooms ORDER BY id ASC`
	queryRoomExists = `SELECT EXISTS(SELECT 1 FROM rooms WHERE id = $1)`

	querySaveMessage = `
		INSERT INTO messages (room_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	// $2 IS NULL: первая страница
	queryHistory = `
		SELECT m.id, m.room_id, m.user_id, m.content, m.created_at, u.username, u.city
		FROM messages AS m
		JOIN users AS u ON u.id = m.user_id
		WHERE m.room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR m.created_at < $2
		    OR (m.created_at = $2 AND m.id < $3)
		  )
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $4`

	queryCreateUser = `
		INSERT INTO users (username, email, city, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	queryGetUserByID = `
		SELECT id, username, email, city, is_active, created_at
		FROM users
		WHERE id = $1`
	queryGetUserByUsername = `
		SELECT id, username, email, city, is_active, created_at
		FROM users
		WHERE username = $1`
)
