package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipstream/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository, applying the
// schema migrations before returning.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ApplicationName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &postgresRepository{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool, bounded by the context.
func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

const accountColumns = `id, handle, email, full_name, password_hash, COALESCE(refresh_token, ''), avatar_url, cover_url, created_at, updated_at`

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.Handle,
		&account.Email,
		&account.FullName,
		&account.PasswordHash,
		&account.RefreshToken,
		&account.AvatarURL,
		&account.CoverURL,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	return account, err
}

func (r *postgresRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (models.Account, error) {
	handle, err := NormalizeHandle(params.Handle)
	if err != nil {
		return models.Account{}, err
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return models.Account{}, fmt.Errorf("email is required")
	}
	if params.PasswordDigest == "" {
		return models.Account{}, fmt.Errorf("password digest is required")
	}
	now := time.Now().UTC()
	account := models.Account{
		ID:           generateID(),
		Handle:       handle,
		Email:        email,
		FullName:     strings.TrimSpace(params.FullName),
		PasswordHash: params.PasswordDigest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO accounts (id, handle, email, full_name, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, account.ID, account.Handle, account.Email, account.FullName, account.PasswordHash, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, ErrConflict
		}
		return models.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return account, nil
}

func (r *postgresRepository) GetAccount(ctx context.Context, id string) (models.Account, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, fmt.Errorf("query account: %w", err)
	}
	return account, true, nil
}

func (r *postgresRepository) FindAccountByIdentifier(ctx context.Context, identifier string) (models.Account, bool, error) {
	email := NormalizeEmail(identifier)
	handle, handleErr := NormalizeHandle(identifier)
	if handleErr != nil {
		handle = email
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE handle = $1 OR email = $2`, handle, email)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, fmt.Errorf("query account by identifier: %w", err)
	}
	return account, true, nil
}

func (r *postgresRepository) UpdateAccount(ctx context.Context, id string, update AccountUpdate) (models.Account, error) {
	assignments := make([]string, 0, 4)
	args := []interface{}{id}
	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Email != nil {
		email := NormalizeEmail(*update.Email)
		if email == "" {
			return models.Account{}, fmt.Errorf("email cannot be empty")
		}
		appendSet("email", email)
	}
	if update.FullName != nil {
		appendSet("full_name", strings.TrimSpace(*update.FullName))
	}
	if update.AvatarURL != nil {
		appendSet("avatar_url", *update.AvatarURL)
	}
	if update.CoverURL != nil {
		appendSet("cover_url", *update.CoverURL)
	}
	if len(assignments) == 0 {
		account, ok, err := r.GetAccount(ctx, id)
		if err != nil {
			return models.Account{}, err
		}
		if !ok {
			return models.Account{}, ErrNotFound
		}
		return account, nil
	}
	appendSet("updated_at", time.Now().UTC())
	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $1 RETURNING `+accountColumns,
		strings.Join(assignments, ", "))
	account, err := scanAccount(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, ErrConflict
		}
		return models.Account{}, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

func (r *postgresRepository) SetAccountPassword(ctx context.Context, id, digest string) error {
	if digest == "" {
		return fmt.Errorf("password digest is required")
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, digest, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) BeginSession(ctx context.Context, accountID, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("refresh token is required")
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		accountID, refreshToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshToken relies on a conditional UPDATE as the compare-and-set:
// the row only changes when the stored refresh token still equals the
// presented one, so racing rotations for the same account resolve to a single
// winner inside Postgres.
func (r *postgresRepository) RotateRefreshToken(ctx context.Context, accountID, presented, next string) error {
	if presented == "" || next == "" {
		return ErrRefreshTokenMismatch
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET refresh_token = $3, updated_at = $4 WHERE id = $1 AND refresh_token = $2`,
		accountID, presented, next, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRefreshTokenMismatch
	}
	return nil
}

func (r *postgresRepository) EndSession(ctx context.Context, accountID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET refresh_token = NULL, updated_at = $2 WHERE id = $1`,
		accountID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

const videoColumns = `id, owner_id, title, description, video_url, video_key, thumbnail_url, thumbnail_key, duration_seconds, views, published, created_at, updated_at`

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID,
		&video.OwnerID,
		&video.Title,
		&video.Description,
		&video.VideoURL,
		&video.VideoKey,
		&video.ThumbnailURL,
		&video.ThumbnailKey,
		&video.DurationSeconds,
		&video.Views,
		&video.Published,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	return video, err
}

func (r *postgresRepository) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, fmt.Errorf("title is required")
	}
	if len(title) > MaxVideoTitleLength {
		return models.Video{}, fmt.Errorf("title exceeds %d characters", MaxVideoTitleLength)
	}
	if params.VideoURL == "" {
		return models.Video{}, fmt.Errorf("video url is required")
	}
	now := time.Now().UTC()
	video := models.Video{
		ID:              generateID(),
		OwnerID:         params.OwnerID,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		VideoURL:        params.VideoURL,
		VideoKey:        params.VideoKey,
		ThumbnailURL:    params.ThumbnailURL,
		ThumbnailKey:    params.ThumbnailKey,
		DurationSeconds: params.DurationSeconds,
		Published:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO videos (id, owner_id, title, description, video_url, video_key, thumbnail_url, thumbnail_key, duration_seconds, published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.VideoKey,
		video.ThumbnailURL, video.ThumbnailKey, video.DurationSeconds, video.Published, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) GetVideo(ctx context.Context, id string) (models.Video, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	video, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, false, nil
	}
	if err != nil {
		return models.Video{}, false, fmt.Errorf("query video: %w", err)
	}
	return video, true, nil
}

func (r *postgresRepository) ListVideos(ctx context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	clauses := make([]string, 0, 2)
	args := make([]interface{}, 0, 1)
	if ownerID != "" {
		args = append(args, ownerID)
		clauses = append(clauses, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if !includeUnpublished {
		clauses = append(clauses, "published")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	videos := make([]models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

func (r *postgresRepository) UpdateVideo(ctx context.Context, id string, update VideoUpdate) (models.Video, error) {
	assignments := make([]string, 0, 4)
	args := []interface{}{id}
	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, fmt.Errorf("title cannot be empty")
		}
		if len(title) > MaxVideoTitleLength {
			return models.Video{}, fmt.Errorf("title exceeds %d characters", MaxVideoTitleLength)
		}
		appendSet("title", title)
	}
	if update.Description != nil {
		if len(*update.Description) > MaxVideoDescriptionLength {
			return models.Video{}, fmt.Errorf("description exceeds %d characters", MaxVideoDescriptionLength)
		}
		appendSet("description", strings.TrimSpace(*update.Description))
	}
	if update.ThumbnailURL != nil {
		appendSet("thumbnail_url", *update.ThumbnailURL)
	}
	if update.ThumbnailKey != nil {
		appendSet("thumbnail_key", *update.ThumbnailKey)
	}
	if len(assignments) == 0 {
		video, ok, err := r.GetVideo(ctx, id)
		if err != nil {
			return models.Video{}, err
		}
		if !ok {
			return models.Video{}, ErrNotFound
		}
		return video, nil
	}
	appendSet("updated_at", time.Now().UTC())
	query := fmt.Sprintf(`UPDATE videos SET %s WHERE id = $1 RETURNING `+videoColumns,
		strings.Join(assignments, ", "))
	video, err := scanVideo(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, ErrNotFound
	}
	if err != nil {
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) SetVideoPublished(ctx context.Context, id string, published bool) (models.Video, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE videos SET published = $2, updated_at = $3 WHERE id = $1 RETURNING `+videoColumns,
		id, published, time.Now().UTC())
	video, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, ErrNotFound
	}
	if err != nil {
		return models.Video{}, fmt.Errorf("set video published: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) AddVideoViews(ctx context.Context, id string, delta int64) error {
	if delta <= 0 {
		return nil
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE videos SET views = views + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("add video views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func (r *postgresRepository) RecordWatch(ctx context.Context, accountID, videoID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO watch_history (account_id, video_id, watched_at) VALUES ($1, $2, now())
		 ON CONFLICT (account_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at`,
		accountID, videoID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("record watch: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`DELETE FROM watch_history WHERE account_id = $1 AND video_id NOT IN (
			SELECT video_id FROM watch_history WHERE account_id = $1
			ORDER BY watched_at DESC LIMIT $2)`,
		accountID, watchHistoryLimit)
	if err != nil {
		return fmt.Errorf("trim watch history: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListWatchHistory(ctx context.Context, accountID string) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos
		 JOIN watch_history ON watch_history.video_id = videos.id
		 WHERE watch_history.account_id = $1
		 ORDER BY watch_history.watched_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()
	videos := make([]models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}
	return videos, nil
}

func (r *postgresRepository) DeleteVideo(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) CreatePlaylist(ctx context.Context, ownerID, name, description string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, fmt.Errorf("name is required")
	}
	if len(name) > MaxPlaylistNameLength {
		return models.Playlist{}, fmt.Errorf("name exceeds %d characters", MaxPlaylistNameLength)
	}
	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          generateID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) loadPlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT video_id FROM playlist_videos WHERE playlist_id = $1 ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist videos: %w", err)
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan playlist video: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list playlist videos: %w", err)
	}
	return ids, nil
}

func (r *postgresRepository) GetPlaylist(ctx context.Context, id string) (models.Playlist, bool, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, description, created_at, updated_at FROM playlists WHERE id = $1`, id)
	var playlist models.Playlist
	err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description, &playlist.CreatedAt, &playlist.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Playlist{}, false, nil
	}
	if err != nil {
		return models.Playlist{}, false, fmt.Errorf("query playlist: %w", err)
	}
	playlist.VideoIDs, err = r.loadPlaylistVideoIDs(ctx, id)
	if err != nil {
		return models.Playlist{}, false, err
	}
	return playlist, true, nil
}

func (r *postgresRepository) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, name, description, created_at, updated_at
FROM playlists WHERE owner_id = $1 ORDER BY created_at DESC, id
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()
	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description, &playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	for i := range playlists {
		playlists[i].VideoIDs, err = r.loadPlaylistVideoIDs(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

func (r *postgresRepository) UpdatePlaylist(ctx context.Context, id string, update PlaylistUpdate) (models.Playlist, error) {
	assignments := make([]string, 0, 2)
	args := []interface{}{id}
	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Playlist{}, fmt.Errorf("name cannot be empty")
		}
		if len(name) > MaxPlaylistNameLength {
			return models.Playlist{}, fmt.Errorf("name exceeds %d characters", MaxPlaylistNameLength)
		}
		appendSet("name", name)
	}
	if update.Description != nil {
		appendSet("description", strings.TrimSpace(*update.Description))
	}
	if len(assignments) == 0 {
		playlist, ok, err := r.GetPlaylist(ctx, id)
		if err != nil {
			return models.Playlist{}, err
		}
		if !ok {
			return models.Playlist{}, ErrNotFound
		}
		return playlist, nil
	}
	appendSet("updated_at", time.Now().UTC())
	query := fmt.Sprintf(`UPDATE playlists SET %s WHERE id = $1 RETURNING id`, strings.Join(assignments, ", "))
	var returned string
	err := r.pool.QueryRow(ctx, query, args...).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Playlist{}, ErrNotFound
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	playlist, _, err := r.GetPlaylist(ctx, id)
	return playlist, err
}

func (r *postgresRepository) AddPlaylistVideo(ctx context.Context, playlistID, videoID string) (models.Playlist, error) {
	_, err := r.pool.Exec(ctx, `
INSERT INTO playlist_videos (playlist_id, video_id, position)
SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM playlist_videos WHERE playlist_id = $1
ON CONFLICT (playlist_id, video_id) DO NOTHING
`, playlistID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("add playlist video: %w", err)
	}
	playlist, ok, err := r.GetPlaylist(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, err
	}
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	return playlist, nil
}

func (r *postgresRepository) RemovePlaylistVideo(ctx context.Context, playlistID, videoID string) (models.Playlist, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2`, playlistID, videoID)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("remove playlist video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, ErrNotFound
	}
	playlist, ok, err := r.GetPlaylist(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, err
	}
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	return playlist, nil
}

func (r *postgresRepository) DeletePlaylist(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
