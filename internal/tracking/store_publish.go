package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"publisher/internal/faults"
)

const publishedColumns = `id, project, entity_type, entity_id, task, name, path, file_type,
	version_number, comment, user_name, created_at`

// RegisterPublish records file and returns it with its id assigned. A zero
// version number takes the next free number for the name.
func (s *Store) RegisterPublish(ctx context.Context, file PublishedFile) (*PublishedFile, error) {
	if strings.TrimSpace(file.Name) == "" || strings.TrimSpace(file.Path) == "" {
		return nil, faults.Wrap(faults.ErrValidation, "tracking", "register publish", "name and path are required", nil)
	}
	if file.VersionNumber == 0 {
		next, err := s.NextVersionNumber(ctx, file.Project, file.Name)
		if err != nil {
			return nil, err
		}
		file.VersionNumber = next
	}
	if file.FileType == "" {
		file.FileType = "File"
	}
	file.CreatedAt = nowUTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO published_files (
            project, entity_type, entity_id, task, name, path, file_type,
            version_number, comment, user_name, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.Project,
		nullableString(file.EntityType),
		nullableInt(file.EntityID),
		nullableString(file.Task),
		file.Name,
		file.Path,
		file.FileType,
		file.VersionNumber,
		nullableString(file.Comment),
		nullableString(file.User),
		formatTime(file.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert published file: %w", err)
	}
	if file.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &file, nil
}

func (s *Store) NextVersionNumber(ctx context.Context, project, name string) (int, error) {
	var highest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version_number) FROM published_files WHERE project = ? AND name = ?`,
		project, name,
	).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("read highest version: %w", err)
	}
	return int(highest.Int64) + 1, nil
}

// PublishedFiles lists published files for project, newest first. An empty
// project lists everything.
func (s *Store) PublishedFiles(ctx context.Context, project string, limit int) ([]PublishedFile, error) {
	query := `SELECT ` + publishedColumns + ` FROM published_files`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list published files: %w", err)
	}
	defer rows.Close()

	var files []PublishedFile
	for rows.Next() {
		file, err := scanPublished(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

// GetPublishedFile returns the published file with id.
func (s *Store) GetPublishedFile(ctx context.Context, id int64) (*PublishedFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+publishedColumns+` FROM published_files WHERE id = ?`, id)
	file, err := scanPublished(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.Wrap(faults.ErrNotFound, "tracking", "get published file", fmt.Sprintf("id %d", id), nil)
	}
	return file, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPublished(row scanner) (*PublishedFile, error) {
	var (
		file                            PublishedFile
		entityType, task, comment, user sql.NullString
		entityID                        sql.NullInt64
		createdAt                       string
	)
	if err := row.Scan(
		&file.ID, &file.Project, &entityType, &entityID, &task, &file.Name, &file.Path,
		&file.FileType, &file.VersionNumber, &comment, &user, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan published file: %w", err)
	}
	file.EntityType = entityType.String
	file.EntityID = entityID.Int64
	file.Task = task.String
	file.Comment = comment.String
	file.User = user.String
	file.CreatedAt = parseTime(createdAt)
	return &file, nil
}

// CreateVersion records a review version.
func (s *Store) CreateVersion(ctx context.Context, version Version) (*Version, error) {
	if strings.TrimSpace(version.Code) == "" {
		return nil, faults.Wrap(faults.ErrValidation, "tracking", "create version", "code is required", nil)
	}
	version.CreatedAt = nowUTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO versions (
            project, entity_type, entity_id, code, description, published_file_id,
            path_to_movie, path_to_frames, user_name, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		version.Project,
		nullableString(version.EntityType),
		nullableInt(version.EntityID),
		version.Code,
		nullableString(version.Description),
		nullableInt(version.PublishedFileID),
		nullableString(version.PathToMovie),
		nullableString(version.PathToFrames),
		nullableString(version.User),
		formatTime(version.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}
	if version.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &version, nil
}

// Versions lists versions, newest first.
func (s *Store) Versions(ctx context.Context, limit int) ([]Version, error) {
	query := `SELECT id, project, entity_type, entity_id, code, description, published_file_id,
        path_to_movie, path_to_frames, user_name, created_at FROM versions ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var (
			v                                     Version
			entityType, desc, movie, frames, user sql.NullString
			entityID, publishedID                 sql.NullInt64
			createdAt                             string
		)
		if err := rows.Scan(&v.ID, &v.Project, &entityType, &entityID, &v.Code, &desc, &publishedID,
			&movie, &frames, &user, &createdAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		v.EntityType = entityType.String
		v.EntityID = entityID.Int64
		v.Description = desc.String
		v.PublishedFileID = publishedID.Int64
		v.PathToMovie = movie.String
		v.PathToFrames = frames.String
		v.User = user.String
		v.CreatedAt = parseTime(createdAt)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Upload records a file attached to a tracking record. The file must exist;
// its size is captured at upload time.
func (s *Store) Upload(ctx context.Context, upload Upload) (*Upload, error) {
	if upload.EntityKind == "" || upload.EntityID == 0 || upload.Field == "" {
		return nil, faults.Wrap(faults.ErrValidation, "tracking", "upload", "entity kind, entity id, and field are required", nil)
	}
	info, err := os.Stat(upload.Path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrNotFound, "tracking", "upload", upload.Path, err)
	}
	upload.Size = info.Size()
	upload.CreatedAt = nowUTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (entity_kind, entity_id, field, path, size, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		upload.EntityKind, upload.EntityID, upload.Field, upload.Path, upload.Size, formatTime(upload.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert upload: %w", err)
	}
	if upload.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &upload, nil
}

// Uploads lists the uploads attached to one record.
func (s *Store) Uploads(ctx context.Context, entityKind string, entityID int64) ([]Upload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_kind, entity_id, field, path, size, created_at
         FROM uploads WHERE entity_kind = ? AND entity_id = ? ORDER BY id`,
		entityKind, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var (
			u         Upload
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.EntityKind, &u.EntityID, &u.Field, &u.Path, &u.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		u.CreatedAt = parseTime(createdAt)
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}
